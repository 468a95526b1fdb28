// Package middleware carries the debug server's HTTP middleware.
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS permits browser-based tooling (devtools panels, dashboards) to
// read the debug surface. The surface is loopback-only and read-only,
// so any origin may ask.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Accept", "Origin"},
		MaxAge:       12 * time.Hour,
	})
}
