package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jart/sparkles/internal/api/envelope"
	"github.com/jart/sparkles/internal/auth"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			envelope.Error(c, http.StatusUnauthorized, "authorization header required")
			c.Abort()
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 {
			envelope.Error(c, http.StatusUnauthorized, "invalid authorization header")
			c.Abort()
			return
		}

		userID, err := auth.ValidateToken(bearerToken[1])
		if err != nil {
			envelope.Error(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// RealIPMiddleware replaces the client IP with X-Forwarded-For when
// present. Behind nginx the TCP peer is localhost; the proxy carries
// the real address in the header.
func RealIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
			// first hop is the client when multiple proxies append
			if i := strings.IndexByte(ip, ','); i >= 0 {
				ip = ip[:i]
			}
			ip = strings.TrimSpace(ip)
			// trim the prefix nginx adds on hybrid ip4/ip6 sockets
			ip = strings.TrimPrefix(ip, "::ffff:")
			c.Set("client_ip", ip)
		} else {
			c.Set("client_ip", c.ClientIP())
		}
		c.Next()
	}
}

// NeverCacheMiddleware marks every response uncacheable; the API is
// all user-specific state.
func NeverCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}

// ClientIP returns the address stashed by RealIPMiddleware.
func ClientIP(c *gin.Context) string {
	return c.GetString("client_ip")
}
