package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server tuned for the mediation API: request bodies are
// small (query values, dataset payloads), so short timeouts are safe.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
