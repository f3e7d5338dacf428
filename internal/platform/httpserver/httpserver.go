// Package httpserver builds the process HTTP server from resolved config.
package httpserver

import (
	"net/http"
	"time"

	"agencyops/internal/platform/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
	// writeSlack leaves room to flush a timeout response after the request
	// deadline fires.
	writeSlack = 5 * time.Second
)

// New returns a server for handler. Read and write deadlines follow the
// configured request timeout so a slow client cannot outlive the handler.
func New(cfg config.Server, handler http.Handler) *http.Server {
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout + writeSlack,
		IdleTimeout:       idleTimeout,
	}
}
