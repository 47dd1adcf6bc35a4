package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
)

const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"

	operatorKey = "operator"
)

// OperatorClaims are carried by tokens minted for parking staff.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 operator token.
func IssueToken(secret, subject, role string, ttl time.Duration, now time.Time) (string, error) {
	claims := OperatorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Protect rejects requests without a valid bearer token.
func Protect(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c)
		if !ok {
			return apperr.Unauthorized("Missing bearer token")
		}
		claims, err := parseToken(raw, secret)
		if err != nil {
			return apperr.Unauthorized("Invalid or expired token")
		}
		c.Locals(operatorKey, claims)
		return c.Next()
	}
}

// OptionalAuth attaches the operator when a valid token is sent and lets
// anonymous requests through. A bad token is still rejected.
func OptionalAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c)
		if !ok {
			return c.Next()
		}
		claims, err := parseToken(raw, secret)
		if err != nil {
			return apperr.Unauthorized("Invalid or expired token")
		}
		c.Locals(operatorKey, claims)
		return c.Next()
	}
}

// RequireRole must run after Protect.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *fiber.Ctx) error {
		claims, ok := Operator(c)
		if !ok {
			return apperr.Unauthorized("Authentication required")
		}
		if !allowed[claims.Role] {
			return apperr.Forbidden("Insufficient permissions")
		}
		return c.Next()
	}
}

// Operator returns the claims stored by Protect or OptionalAuth.
func Operator(c *fiber.Ctx) (*OperatorClaims, bool) {
	claims, ok := c.Locals(operatorKey).(*OperatorClaims)
	return claims, ok && claims != nil
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return raw, raw != ""
}

func parseToken(raw, secret string) (*OperatorClaims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret not configured")
	}
	claims := &OperatorClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
