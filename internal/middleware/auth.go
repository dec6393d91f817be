package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"prompt-storefront/internal/auth"
)

const identityKey = "identity"

type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's identity on the context.
func AuthMiddleware(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

// OptionalAuthMiddleware lets anonymous requests through. A token that is
// present but invalid is still rejected so clients notice expired sessions.
func OptionalAuthMiddleware(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request())
			if !ok {
				return next(c)
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

var errNoIdentity = errors.New("no identity on request")

// Identity returns the authenticated caller. Handlers mounted behind
// AuthMiddleware can rely on it being set.
func Identity(c echo.Context) (*auth.Identity, error) {
	identity, ok := c.Get(identityKey).(*auth.Identity)
	if !ok || identity == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, errNoIdentity.Error())
	}
	return identity, nil
}

// UserID is empty for anonymous requests.
func UserID(c echo.Context) string {
	if identity, ok := c.Get(identityKey).(*auth.Identity); ok && identity != nil {
		return identity.UserID
	}
	return ""
}
