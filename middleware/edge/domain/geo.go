package domain

import (
	"net/http"
	"time"
)

const (
	DefaultRegion  = "unknown"
	DefaultCountry = "US"
	DefaultCity    = "unknown"
)

// Location é o que a borda sabe sobre a origem da requisição.
// Apenas informativo: nunca decide admissão.
type Location struct {
	IP      string
	Region  string
	Country string
	City    string
}

// Locator é o colaborador externo de geolocalização/IP. O mecanismo real
// depende da plataforma (headers do CDN, base GeoIP, etc).
type Locator interface {
	Locate(r *http.Request) (Location, error)
}

// Clock e IDGenerator são injetados para deixar o pipeline determinístico em teste.
type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}
