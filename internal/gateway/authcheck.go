package gateway

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// TokenValidator checks bearer tokens against the auth service before
// a request is proxied upstream. The auth service stays the single
// owner of token verification.
type TokenValidator struct {
	authURL string
	client  *http.Client
}

func NewTokenValidator(authURL string) *TokenValidator {
	return &TokenValidator{
		authURL: authURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Middleware rejects requests whose token the auth service does not accept.
func (v *TokenValidator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, v.authURL+"/validate", nil)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "building validation request")
			}
			req.Header.Set("Authorization", authHeader)

			resp, err := v.client.Do(req)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "auth service unavailable")
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			return next(c)
		}
	}
}
