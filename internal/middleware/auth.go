package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/visits-backend-go/pkg/response"
)

// UserIDKey is the gin context key holding the authenticated user id
const UserIDKey = "userID"

// Auth verifies an HS256 bearer token and stores its subject as the user id.
// The token may also arrive as the access_token query parameter, which
// EventSource clients need because they cannot set headers.
func Auth(secret, issuer string) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(secret)

	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.Unauthorized(c, "Missing bearer token")
			return
		}

		claims := &jwt.RegisteredClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			response.Unauthorized(c, "Invalid token")
			return
		}
		if claims.Subject == "" {
			response.Unauthorized(c, "Token has no subject")
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return c.Query("access_token")
}

// UserID returns the authenticated user id for the request
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
