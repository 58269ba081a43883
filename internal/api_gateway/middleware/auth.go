package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
)

// PrincipalKey is the gin context key holding the request's *auth.Principal
const PrincipalKey = "principal"

// Claims are the bearer token claims accepted by the API
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate resolves the bearer token into a principal through policy.
// Requests without a token continue with no principal and are rejected by
// the services that need one. A token that does not verify is a 401.
func Authenticate(logger *slog.Logger, secret []byte, issuer string, policy *auth.Policy) gin.HandlerFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c, "Authorization header must be a bearer token")
			return
		}

		claims := &Claims{}
		_, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err == nil && claims.UserID == "" {
			err = errors.New("token has no user_id")
		}
		if err != nil {
			logger.Warn("Rejected bearer token",
				"correlation_id", GetCorrelationID(c),
				"error", err)
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(PrincipalKey, policy.Principal(claims.UserID, claims.Role))
		c.Next()
	}
}

// GetPrincipal returns the principal stored by Authenticate, or nil
func GetPrincipal(c *gin.Context) *auth.Principal {
	if v, exists := c.Get(PrincipalKey); exists {
		if p, ok := v.(*auth.Principal); ok {
			return p
		}
	}
	return nil
}

// SignToken issues an HS256 token for userID with role, valid for ttl
func SignToken(secret []byte, issuer, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	}
	if id := GetCorrelationID(c); id != "" {
		response["correlation_id"] = id
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, response)
}
