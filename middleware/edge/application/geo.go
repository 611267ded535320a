package application

import (
	"net/http"
	"strings"

	"edge-gateway/middleware/edge/domain"
)

// GeoResolver aplica os defaults documentados sobre o Locator.
// Qualquer erro ou panic do colaborador vira default, nunca falha a requisição.
type GeoResolver struct {
	Locator domain.Locator
}

func (g GeoResolver) Resolve(r *http.Request) domain.Location {
	loc := g.locate(r)

	loc.IP = orDefault(loc.IP, domain.UnknownIdentity)
	loc.Region = orDefault(loc.Region, domain.DefaultRegion)
	loc.Country = orDefault(loc.Country, domain.DefaultCountry)
	loc.City = orDefault(loc.City, domain.DefaultCity)
	return loc
}

func (g GeoResolver) locate(r *http.Request) (loc domain.Location) {
	if g.Locator == nil {
		return loc
	}
	defer func() {
		if recover() != nil {
			loc = domain.Location{}
		}
	}()
	l, err := g.Locator.Locate(r)
	if err != nil {
		return domain.Location{}
	}
	return l
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
