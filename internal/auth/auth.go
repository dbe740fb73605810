// Package auth maps bearer tokens onto callers.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"food-order-service/internal/apperr"
	"food-order-service/internal/entity"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const contextKey = "user"

type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Middleware accepts HS256 tokens from the Authorization header or, for
// websocket clients, the token query parameter. Missing, malformed and
// invalid tokens are all rejected with 401.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    secret,
		SigningMethod: jwt.SigningMethodHS256.Name,
		ContextKey:    contextKey,
		TokenLookup:   "header:Authorization:Bearer ,query:token",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var extractErr *echojwt.TokenExtractionError
			if errors.As(err, &extractErr) {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed token").SetInternal(err)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token").SetInternal(err)
		},
	})
}

// Sign issues a token for caller valid for ttl from now.
func Sign(secret []byte, caller entity.Caller, ttl time.Duration, now time.Time) (string, error) {
	if caller.ID == "" || !caller.Role.Valid() {
		return "", fmt.Errorf("invalid caller %q with role %q", caller.ID, caller.Role)
	}
	claims := Claims{
		Role: string(caller.Role),
		Name: caller.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func CallerFrom(c echo.Context) (entity.Caller, error) {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok {
		return entity.Caller{}, apperr.New(apperr.Unauthorized, "missing credentials")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" || !entity.Role(claims.Role).Valid() {
		return entity.Caller{}, apperr.New(apperr.Unauthorized, "invalid credentials")
	}
	return entity.Caller{
		ID:   claims.Subject,
		Role: entity.Role(claims.Role),
		Name: claims.Name,
	}, nil
}
