package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSConfig controls which origins may open streaming connections.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

// AllowsOrigin reports whether the given request origin is permitted.
func (cfg CORSConfig) AllowsOrigin(origin string) bool {
	for _, allowed := range cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (cfg CORSConfig) wildcard() bool {
	for _, allowed := range cfg.AllowedOrigins {
		if allowed == "*" {
			return true
		}
	}
	return false
}

// CORSMiddleware handles CORS headers against a configured origin allow-list.
// Preflight requests are answered here and never reach the handlers.
func CORSMiddleware(cfg CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if origin != "" && cfg.AllowsOrigin(origin) {
			// Credentialed responses must echo the concrete origin.
			if cfg.wildcard() && !cfg.AllowCredentials {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			if cfg.AllowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Last-Event-ID")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
