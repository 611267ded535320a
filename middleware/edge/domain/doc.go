// Package domain define os tipos e contratos do pipeline de admissão na borda:
// regras de rate limit, estado por chave, veredito de segurança, localização do
// cliente e eventos de estatística.
//
// Este pacote não depende de implementações concretas. A única referência a
// net/http é o Locator, porque geolocalização é extraída da própria requisição.
// Stores, relógio e gerador de IDs entram por interface para que a camada
// application possa ser testada sem rede e sem tempo real.
package domain
