// Package application contém os casos de uso do pipeline de admissão:
// classificação de rota, rate limit por janela fixa, filtro de segurança,
// detecção de bots, resolução de região e limite de concorrência.
//
// Depende apenas do pacote domain. O único contato com net/http é o
// GeoResolver, que repassa a requisição ao Locator.
// Ex.: RateLimiter.CheckAndConsume(ctx, ip, rule, now) retorna uma Decision
// (allow/deny + remaining + reset).
package application
