package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const adminSubjectKey = "admin_subject"

// AdminAuth verifies a HS256 bearer token on the admin surface and
// rejects any subject other than the configured admin identity. The
// verified subject is stored on the echo context for handlers.
func AdminAuth(secret, adminID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get("Authorization"))
			if raw == "" || !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			tokenStr := strings.TrimSpace(raw[len("bearer "):])

			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			if claims.Subject != adminID {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "not an admin"})
			}

			c.Set(adminSubjectKey, claims.Subject)
			return next(c)
		}
	}
}

// AdminSubject returns the subject set by AdminAuth, or "".
func AdminSubject(c echo.Context) string {
	s, _ := c.Get(adminSubjectKey).(string)
	return s
}

// SignAdminToken issues a short-lived admin token. Used at deploy time
// and by tests.
func SignAdminToken(secret, adminID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   adminID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
