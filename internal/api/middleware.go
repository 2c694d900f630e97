package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// addressKey is the echo context key holding the authenticated wallet address.
const addressKey = "trainer-address"

// TokenVerifier checks a session token and returns the wallet address it was
// issued for. The auth TokenIssuer satisfies it.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate builds middleware that requires a valid session token on every
// request. The token normally travels as "Authorization: Bearer <token>"; a
// "token" query parameter is also accepted because browser WebSocket clients
// cannot set request headers.
func Authenticate(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				token = c.QueryParam("token")
			}
			if token == "" {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "missing session token"})
			}
			address, err := verifier.Verify(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid session token"})
			}
			c.Set(addressKey, address)
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// requesterAddress returns the wallet address set by Authenticate.
//
// Precondition: The route must be behind Authenticate.
func requesterAddress(c echo.Context) string {
	address, _ := c.Get(addressKey).(string)
	return address
}
