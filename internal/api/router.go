package api

import (
	"net/http"

	"github.com/rs/zerolog"
)

// NewRouter registers all routes and wraps them in the middleware chain.
func NewRouter(h *Handlers, corsOrigin string, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /users", h.PutUser)
	mux.HandleFunc("GET /users", h.ListUsers)
	mux.HandleFunc("GET /users/{username}", h.GetUser)
	mux.HandleFunc("POST /transactions", h.PostTransaction)
	mux.HandleFunc("PUT /coins", h.PutCoins)
	mux.HandleFunc("GET /coins", h.ListCoins)
	mux.HandleFunc("GET /health", h.Health)

	return RequestID(log)(
		Recovery(
			Logger(
				CORS(corsOrigin)(mux),
			),
		),
	)
}
