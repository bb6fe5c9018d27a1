package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeySession is the key for storing the verified session in gin context
	ContextKeySession = "session"
	// InternalSecretHeader carries the shared secret for internal endpoints
	InternalSecretHeader = "X-Internal-Secret"
)

// RequireSession middleware rejects requests without a valid session cookie.
func RequireSession(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authentication required",
			})
			return
		}

		sess, err := m.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authentication required",
			})
			return
		}

		c.Set(ContextKeySession, sess)
		c.Next()
	}
}

// RequireInternal guards internal endpoints with a shared-secret header.
// With no secret configured the endpoints are disabled outright.
func RequireInternal(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(InternalSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Internal secret required",
			})
			return
		}
		c.Next()
	}
}

// GetSession returns the verified session from context (if authenticated)
func GetSession(c *gin.Context) (*Session, bool) {
	v, exists := c.Get(ContextKeySession)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok
}
