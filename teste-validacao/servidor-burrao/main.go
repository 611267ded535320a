// Servidor "burrão": upstream de validação manual do gateway.
//
//	UPSTREAM_URL=http://localhost:8081 go run ./cmd/gateway serve
//	go run ./teste-validacao/servidor-burrao
//	curl -i localhost:8080/api/teams?delay=1500ms
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	logger.Info().Str("addr", addr).Msg("servidor burrão rodando")
	if err := http.ListenAndServe(addr, newHandler(logger)); err != nil {
		logger.Fatal().Err(err).Msg("erro ao subir o servidor")
	}
}
