package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/config"
)

const ContextAccountIDKey = "current_account_id"

// AccountIDFromToken extracts the account id from an already-issued
// token. Identity issuance lives outside this service; the messaging
// core only verifies the signature and trusts the subject claim.
func AccountIDFromToken(tokenStr string) (uint, bool) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		// only accept HMAC signing
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}

	switch sub := claims["sub"].(type) {
	case string:
		id, err := strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return 0, false
		}
		return uint(id), true
	case float64:
		// jwt lib may parse numeric as float64
		return uint(sub), true
	}
	return 0, false
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization header"})
			return
		}

		accountID, ok := AccountIDFromToken(parts[1])
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}

		c.Set(ContextAccountIDKey, accountID)
		c.Next()
	}
}

// AccountID reads the authenticated account id set by AuthMiddleware.
func AccountID(c *gin.Context) uint {
	v, _ := c.Get(ContextAccountIDKey)
	id, _ := v.(uint)
	return id
}
