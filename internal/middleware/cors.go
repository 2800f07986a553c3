package middleware

import (
	"net/http"

	"ppcp-backend/internal/config"

	"github.com/rs/cors"
)

// NewCORS builds the CORS handler from server.cors_*. Sessions travel in the
// Authorization header, so credentials are only allowed for an explicit origin list.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	origins := cfg.Server.CorsAllowedOrigins
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: cfg.Server.CorsAllowedMethods,
		AllowedHeaders: cfg.Server.CorsAllowedHeaders,
		// Export, backup and PDF downloads carry their file name here
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})

	return c.Handler
}
