package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/services/session"
)

// newAuthMiddleware authenticates requests carrying a Bearer JWT whose session has not been revoked.
// The parsed Claims are stored in the echo.Context.
func newAuthMiddleware(sessions session.Store, logger core.Logger) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, ctx echo.Context) (bool, error) {
			claims, err := parseToken(key)
			if err != nil {
				return false, err
			}
			revoked, err := sessions.IsRevoked(ctx.Request().Context(), claims.ID)
			if err != nil {
				logger.Error("checking session revocation", err, claims.Actor())
				return false, echo.NewHTTPError(http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
			}
			if revoked {
				return false, errInvalidToken
			}
			ctx.Set(contextClaimKey, claims)
			return true, nil
		},
		ErrorHandler: func(err error, ctx echo.Context) error {
			if herr, ok := err.(*echo.HTTPError); ok {
				return herr
			}
			return errMissingToken
		},
	})
}

// canMiddleware refuses the request before its body is read unless the caller's role may perform `act`.
// Services repeat the check along with their ownership rules.
func canMiddleware(act core.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := getContextActor(ctx).Can(act); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// rateLimitMiddleware refuses a request once the caller has used up `limit` requests in `window`.
// Callers are keyed by user when authenticated, by IP otherwise.
func (s *server) rateLimitMiddleware(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			key := scope + ":" + ctx.RealIP()
			if actor := getContextActor(ctx); actor.UserID != "" {
				key = scope + ":" + actor.UserID
			}
			conf := s.opts.RateLimit
			if !s.opts.Limiter.Allow(ctx.Request().Context(), key, conf.Limit, conf.Window) {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
