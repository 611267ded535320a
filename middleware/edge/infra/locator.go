package infra

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"edge-gateway/middleware/edge/domain"
)

// Headers de geolocalização preenchidos pelo CDN/edge na frente do gateway.
const (
	HeaderRegion    = "X-Vercel-IP-Country-Region"
	HeaderCountry   = "X-Vercel-IP-Country"
	HeaderCity      = "X-Vercel-IP-City"
	HeaderCFCountry = "CF-IPCountry"
)

// HeaderLocator implementa domain.Locator lendo IP e região dos headers.
//
// Com TrustXForwardedFor=false só RemoteAddr é usado para o IP: headers de
// proxy podem ser forjados pelo cliente quando não há proxy confiável na frente.
type HeaderLocator struct {
	TrustXForwardedFor bool
}

func (l HeaderLocator) Locate(r *http.Request) (domain.Location, error) {
	loc := domain.Location{
		IP:      l.clientIP(r),
		Region:  strings.TrimSpace(r.Header.Get(HeaderRegion)),
		Country: strings.TrimSpace(r.Header.Get(HeaderCountry)),
		City:    strings.TrimSpace(r.Header.Get(HeaderCity)),
	}
	if loc.Country == "" {
		// "XX" é o valor do Cloudflare para país desconhecido
		if c := strings.TrimSpace(r.Header.Get(HeaderCFCountry)); c != "XX" {
			loc.Country = c
		}
	}
	if city, err := url.PathUnescape(loc.City); err == nil {
		loc.City = city
	}
	return loc, nil
}

func (l HeaderLocator) clientIP(r *http.Request) string {
	if l.TrustXForwardedFor {
		// pega o primeiro IP do X-Forwarded-For (cliente original)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
		for _, h := range []string{"X-Real-IP", "CF-Connecting-IP"} {
			if ip := net.ParseIP(strings.TrimSpace(r.Header.Get(h))); ip != nil {
				return ip.String()
			}
		}
	}

	// fallback: RemoteAddr
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
