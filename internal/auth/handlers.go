package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeaura/invoicer/internal/logging"
	"github.com/codeaura/invoicer/internal/metrics"
)

// Handler exposes login, logout, and session verification endpoints.
type Handler struct {
	manager *Manager
	secure  bool
}

func NewHandler(manager *Manager, secureCookies bool) *Handler {
	return &Handler{manager: manager, secure: secureCookies}
}

// RegisterRoutes registers the auth endpoints on the given router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
	r.DELETE("/auth/logout", h.Logout)
}

// RegisterProtectedRoutes registers endpoints that require a valid session.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/auth/verify", h.Verify)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and sets the session cookie.
// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Username and password are required",
		})
		return
	}

	token, err := h.manager.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			logging.L(c.Request.Context()).Warn("failed login attempt", "username", req.Username)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_credentials",
				"message": "Invalid username or password",
			})
			return
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		logging.L(c.Request.Context()).Error("login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Login failed",
		})
		return
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	maxAge := int(h.manager.TTL().Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful"})
}

// Logout clears the session cookie.
// DELETE /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, "", -1, "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// Verify reports whether the request carries a valid session.
// GET /auth/verify (behind RequireSession)
func (h *Handler) Verify(c *gin.Context) {
	sess, ok := GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Authentication required",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"username":      sess.Username,
	})
}
