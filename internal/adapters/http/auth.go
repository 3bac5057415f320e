package http

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/trycode2018/chathub/internal/domain"
)

// AuthMiddleware verifies the HS256 bearer token and exposes the
// authenticated user name to handlers. Browser WebSocket clients cannot
// set headers, so the token may also arrive as the access_token query
// parameter. Token issuance belongs to the account system, not here.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing token"})
			return
		}
		claims := jwt.MapClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid token"})
			return
		}
		sub, err := claims.GetSubject()
		if err != nil || domain.ValidateUserName(domain.UserName(sub)) != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid subject"})
			return
		}
		c.Set("user_name", sub)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("access_token")
}
