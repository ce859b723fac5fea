package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const tokenTTL = 24 * time.Hour

type loginRequest struct {
	Key string `json:"key" binding:"required"`
}

// login exchanges the configured API key for a signed bearer token.
// POST /api/login
func (s *Server) login(c *gin.Context) {
	if s.opts.APIKey == "" {
		respondError(c, http.StatusServiceUnavailable, "no API key configured", "")
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Key != s.opts.APIKey {
		respondError(c, http.StatusUnauthorized, "invalid API key", "")
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})

	signed, err := token.SignedString([]byte(s.opts.APIKey))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to sign token", err.Error())
		return
	}

	respondSuccess(c, gin.H{
		"token":      signed,
		"expires_at": now.Add(tokenTTL),
	})
}

// authMiddleware accepts either the raw API key in X-API-Key or a bearer
// token from /api/login. With no key configured, only loopback requests
// are allowed through.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.APIKey == "" {
			if !isLocalRequest(c) {
				respondError(c, http.StatusUnauthorized, "no API key configured, remote access denied", "")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		if c.GetHeader("X-API-Key") == s.opts.APIKey {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && s.verifyToken(token) {
			c.Next()
			return
		}

		respondError(c, http.StatusUnauthorized, "authentication required", "")
		c.Abort()
	}
}

func (s *Server) verifyToken(token string) bool {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.opts.APIKey), nil
	})
	return err == nil && parsed.Valid
}

func isLocalRequest(c *gin.Context) bool {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
