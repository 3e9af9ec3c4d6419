package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/logging"
	"github.com/iliyamo/account-auth/internal/token"
)

// TokenDecoder is satisfied by *token.Verifier.
type TokenDecoder interface {
	Decode(raw string) (*token.Claims, error)
	Audience(purpose token.Purpose) string
}

// SessionConfig configures the Session guard.
type SessionConfig struct {
	CookieName string
	Issuer     string
	Log        logging.Logger
}

const claimsKey = "claims"

type claimsCtxKey struct{}

// Session returns an Echo middleware that admits only requests carrying a
// valid session token in the configured cookie. The token must be signed
// by us, unexpired, minted for the session audience and by our issuer.
// Decoded claims are exposed through ClaimsFrom.
func Session(v TokenDecoder, cfg SessionConfig) echo.MiddlewareFunc {
	log := cfg.Log
	if log == nil {
		log = logging.Nop{}
	}
	audience := v.Audience(token.PurposeSession)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(cfg.CookieName)
			if err != nil || ck.Value == "" {
				return apperror.Unauthorized("access token is missing")
			}

			ctx := c.Request().Context()
			claims, err := v.Decode(ck.Value)
			if err != nil {
				log.Debug(ctx, "session token rejected", "error", err)
				return apperror.Unauthorized("access token is invalid")
			}
			if !claims.HasAudience(audience) || claims.Issuer != cfg.Issuer {
				log.Debug(ctx, "session token rejected", "aud", claims.Audience, "iss", claims.Issuer)
				return apperror.Unauthorized("access token is invalid")
			}

			c.Set(claimsKey, claims)
			c.SetRequest(c.Request().WithContext(context.WithValue(ctx, claimsCtxKey{}, claims)))
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims attached by Session.
func ClaimsFrom(c echo.Context) (*token.Claims, bool) {
	cl, ok := c.Get(claimsKey).(*token.Claims)
	return cl, ok && cl != nil
}

// ClaimsFromContext is ClaimsFrom for code that only sees the request context.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	cl, ok := ctx.Value(claimsCtxKey{}).(*token.Claims)
	return cl, ok && cl != nil
}
