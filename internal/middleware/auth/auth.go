package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/resale_shop/internal/apperr"
	"github.com/Skotchmaster/resale_shop/internal/logging"
	"github.com/Skotchmaster/resale_shop/internal/models"
	"github.com/Skotchmaster/resale_shop/internal/session"
)

const (
	CtxUserID = "user_id"
	CtxKind   = "kind"
)

type Middleware struct {
	Sessions *session.Manager
	Secure   bool
}

func (m *Middleware) require(kind models.PrincipalKind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("middleware", "auth.require_"+string(kind))

			ck, err := c.Cookie(session.CookieName)
			if err != nil || ck.Value == "" {
				return apperr.Unauthorized()
			}

			p, err := m.Sessions.Resolve(ctx, ck.Value)
			if err != nil {
				if !errors.Is(err, session.ErrInvalidSession) {
					l.Error("resolve_session_error", "status", http.StatusInternalServerError, "error", err)
					return apperr.Internal(err)
				}
				c.SetCookie(session.DeleteCookie(m.Secure))
				return apperr.Unauthorized()
			}

			if p.Kind != kind {
				l.Warn("auth_error", "status", http.StatusForbidden, "reason", "wrong principal kind", "kind", p.Kind)
				return apperr.Forbidden()
			}

			c.Set(CtxUserID, p.ID)
			c.Set(CtxKind, p.Kind)
			return next(c)
		}
	}
}

func (m *Middleware) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(models.KindUser)(next)
}

// UserID returns the principal id set by the middleware.
func UserID(c echo.Context) (uint, error) {
	id, ok := c.Get(CtxUserID).(uint)
	if !ok || id == 0 {
		return 0, apperr.Unauthorized()
	}
	return id, nil
}
