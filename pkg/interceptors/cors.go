package interceptors

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the given origins to call the API with the group header
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", GroupIDHeader},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	})
	return c.Handler
}
