// Package echomw provides the Echo middlewares of the receipt intake server.
package echomw

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

const (
	// Env var holding the token intake clients must present.
	EnvIntakeBearerToken = "RECEIPT_INTAKE_BEARER_TOKEN"

	// Realm for WWW-Authenticate header.
	authRealm = "receipt-intake"
)

// TokenFromEnv reads RECEIPT_INTAKE_BEARER_TOKEN.
func TokenFromEnv() string {
	return strings.TrimSpace(os.Getenv(EnvIntakeBearerToken))
}

// RequireBearerToken validates Authorization: Bearer <token> against
// expectedToken. On failure responds 401; an empty expectedToken rejects everything.
func RequireBearerToken(expectedToken string) echo.MiddlewareFunc {
	expected := []byte(strings.TrimSpace(expectedToken))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(expected) == 0 {
				// Fail closed if not configured.
				return unauthorized(c)
			}

			received, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return unauthorized(c)
			}

			// Constant-time compare.
			if subtle.ConstantTimeCompare([]byte(received), expected) != 1 {
				return unauthorized(c)
			}
			return next(c)
		}
	}
}

// bearerToken extracts the token of a "Bearer <token>" header; the scheme is case-insensitive.
func bearerToken(header string) (token string, ok bool) {
	auth := strings.TrimSpace(header)
	const bearer = "bearer "
	if len(auth) < len(bearer) || !strings.EqualFold(auth[:len(bearer)], bearer) {
		return "", false
	}
	token = strings.TrimSpace(auth[len(bearer):])
	return token, token != ""
}

func unauthorized(c echo.Context) error {
	LogRouteAccess(c, tl.Info, "Unauthorized access attempt", palette.Yellow)

	// Helpful for clients/tools; avoids browser basic-auth popups.
	c.Response().Header().Set("WWW-Authenticate", `Bearer realm="`+authRealm+`"`)
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error": "unauthorized",
	})
}
