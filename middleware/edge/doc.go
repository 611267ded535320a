// Package edge é o adapter HTTP (net/http) do pipeline de admissão da borda.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (só o Locator conhece net/http)
//   - application: casos de uso (classificação, janela fixa, filtro de segurança, bots, geo)
//   - infra: implementações concretas (stores de contador, estatísticas, locator, ids)
//   - policy: tabela de regras, allow-lists e assinaturas, com carga opcional via YAML
//   - edge (este pacote): Dispatcher, anotação de headers, CORS e limite de concorrência
//
// Fluxo de uma requisição no Dispatcher:
//
//  1. Assets estáticos passam direto, sem nenhum header extra
//  2. Filtro de segurança (403 em caso de rejeição)
//  3. Marcação de bot (só anota)
//  4. Rate limit por (identidade, regra), apenas em /api/ (429 em caso de estouro)
//  5. Headers de região, segurança e rastreio
//  6. CORS em /api/, com OPTIONS respondido na hora
//  7. Server-Timing, log de performance e repasse ao próximo handler
//
// O binário cmd/gateway monta o Dispatcher na frente de um reverse proxy; o
// cmd/example-server mostra o mesmo pipeline injetado num router chi.
package edge
