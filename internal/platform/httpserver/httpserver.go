package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with defaults sized for image uploads.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Writes wait on the slower recognition backend.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
