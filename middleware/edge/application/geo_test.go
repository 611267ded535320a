package application

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"edge-gateway/middleware/edge/domain"
)

type stubLocator struct {
	loc domain.Location
	err error
}

func (s stubLocator) Locate(*http.Request) (domain.Location, error) { return s.loc, s.err }

type panicLocator struct{}

func (panicLocator) Locate(*http.Request) (domain.Location, error) { panic("geoip down") }

func TestGeoResolver_Resolve(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)

	cases := []struct {
		name    string
		locator domain.Locator
		want    domain.Location
	}{
		{
			name:    "full location",
			locator: stubLocator{loc: domain.Location{IP: "1.2.3.4", Region: "SP", Country: "BR", City: "São Paulo"}},
			want:    domain.Location{IP: "1.2.3.4", Region: "SP", Country: "BR", City: "São Paulo"},
		},
		{
			name:    "missing fields default",
			locator: stubLocator{loc: domain.Location{IP: "1.2.3.4", Country: " "}},
			want:    domain.Location{IP: "1.2.3.4", Region: "unknown", Country: "US", City: "unknown"},
		},
		{
			name:    "locator error degrades",
			locator: stubLocator{loc: domain.Location{Country: "BR"}, err: errors.New("boom")},
			want:    domain.Location{IP: "unknown", Region: "unknown", Country: "US", City: "unknown"},
		},
		{
			name:    "locator panic degrades",
			locator: panicLocator{},
			want:    domain.Location{IP: "unknown", Region: "unknown", Country: "US", City: "unknown"},
		},
		{
			name: "no locator",
			want: domain.Location{IP: "unknown", Region: "unknown", Country: "US", City: "unknown"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := GeoResolver{Locator: tc.locator}
			got := g.Resolve(r)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, g.Resolve(r))
		})
	}
}
