// Package policy reúne a configuração estática do pipeline de borda: tabela de
// rate limit, allow-list de CORS, assinaturas de bots, padrões suspeitos e a
// lista de assets que passam direto.
//
// Os valores padrão ficam em Default(); um arquivo YAML opcional sobrescreve
// seção por seção (seção ausente mantém o padrão).
package policy

import (
	"errors"
	"fmt"
	"os"
	"time"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"

	"gopkg.in/yaml.v3"
)

type Policy struct {
	Rules              []domain.Rule `yaml:"rules"`
	AllowedOrigins     []string      `yaml:"allowed_origins"`
	BotSignatures      []string      `yaml:"bot_signatures"`
	SuspiciousPatterns []string      `yaml:"suspicious_patterns"`
	BypassPrefixes     []string      `yaml:"bypass_prefixes"`
	BypassSuffixes     []string      `yaml:"bypass_suffixes"`
	// SlowThreshold: requisições acima disso sempre geram log de performance.
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

func DefaultRules() []domain.Rule {
	return []domain.Rule{
		{ID: "analyze", RoutePrefix: "/api/analyze", MaxRequests: 10, Window: time.Minute},
		{ID: "analysis", RoutePrefix: "/api/analysis", MaxRequests: 30, Window: time.Minute},
		{ID: "teams", RoutePrefix: "/api/teams", MaxRequests: 100, Window: time.Minute},
		{ID: "players", RoutePrefix: "/api/players", MaxRequests: 200, Window: time.Minute},
		{ID: domain.DefaultRuleID, MaxRequests: 500, Window: time.Minute},
	}
}

func Default() Policy {
	return Policy{
		Rules: DefaultRules(),
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"https://tradeanalysis.app",
			"https://www.tradeanalysis.app",
		},
		BotSignatures:      append([]string(nil), application.DefaultBotSignatures...),
		SuspiciousPatterns: append([]string(nil), application.DefaultSuspiciousPatterns...),
		BypassPrefixes:     []string{"/_next/", "/favicon"},
		BypassSuffixes:     []string{".ico", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".css", ".js", ".map"},
		SlowThreshold:      time.Second,
	}
}

// Load lê o YAML em path por cima de Default(). path vazio ou arquivo
// inexistente devolvem Default().
func Load(path string) (Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}

	var file Policy
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	p.merge(file)

	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("validate policy %s: %w", path, err)
	}
	return p, nil
}

func (p *Policy) merge(o Policy) {
	if len(o.Rules) > 0 {
		p.Rules = o.Rules
	}
	if len(o.AllowedOrigins) > 0 {
		p.AllowedOrigins = o.AllowedOrigins
	}
	if len(o.BotSignatures) > 0 {
		p.BotSignatures = o.BotSignatures
	}
	if len(o.SuspiciousPatterns) > 0 {
		p.SuspiciousPatterns = o.SuspiciousPatterns
	}
	if len(o.BypassPrefixes) > 0 {
		p.BypassPrefixes = o.BypassPrefixes
	}
	if len(o.BypassSuffixes) > 0 {
		p.BypassSuffixes = o.BypassSuffixes
	}
	if o.SlowThreshold > 0 {
		p.SlowThreshold = o.SlowThreshold
	}
}

// Validate confere a tabela de regras montando o classificador.
func (p Policy) Validate() error {
	if _, err := application.NewRouteClassifier(p.Rules); err != nil {
		return err
	}
	if p.SlowThreshold <= 0 {
		return errors.New("slow_threshold must be > 0")
	}
	return nil
}
