package application

import (
	"net/url"
	"regexp"

	"edge-gateway/middleware/edge/domain"
)

const (
	ReasonMissingUserAgent  = "Missing user agent"
	ReasonSuspiciousPattern = "Suspicious request pattern"
)

// DefaultSuspiciousPatterns é a tabela ordenada de padrões de injeção.
// Todos são case-insensitive e avaliados contra a URL completa.
var DefaultSuspiciousPatterns = []string{
	`(?i)\b(union\s+(all\s+)?select|select\s+.+\s+from|insert\s+into|delete\s+from|drop\s+table|update\s+\w+\s+set)\b`,
	`(?i)<script`,
	`(?i)\bscript\b`,
	`(?i)(javascript|vbscript):`,
	`(?i)onload\s*=`,
	`(?i)onerror\s*=`,
}

// SecurityRequest é o recorte da requisição que o filtro enxerga.
type SecurityRequest struct {
	URL       string
	UserAgent string
}

// SecurityFilter rejeita requisições por heurística de blocklist.
type SecurityFilter struct {
	bots     *BotClassifier
	patterns []*regexp.Regexp
}

// NewSecurityFilter compila os padrões. Lista vazia usa DefaultSuspiciousPatterns.
func NewSecurityFilter(bots *BotClassifier, patterns []string) (*SecurityFilter, error) {
	if len(patterns) == 0 {
		patterns = DefaultSuspiciousPatterns
	}
	f := &SecurityFilter{bots: bots, patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

func (f *SecurityFilter) Evaluate(req SecurityRequest) domain.Verdict {
	if req.UserAgent == "" && !f.bots.IsBot(req.UserAgent) {
		return domain.Reject(ReasonMissingUserAgent)
	}

	// clientes costumam mandar a URL percent-encoded (%3Cscript%3E); testa as duas formas
	candidates := []string{req.URL}
	if decoded, err := url.QueryUnescape(req.URL); err == nil && decoded != req.URL {
		candidates = append(candidates, decoded)
	}

	for _, re := range f.patterns {
		for _, c := range candidates {
			if re.MatchString(c) {
				return domain.Reject(ReasonSuspiciousPattern)
			}
		}
	}
	return domain.Allow
}
