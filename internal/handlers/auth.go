package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/resale_shop/internal/checkout"
	"github.com/Skotchmaster/resale_shop/internal/logging"
	"github.com/Skotchmaster/resale_shop/internal/middleware/auth"
	authsvc "github.com/Skotchmaster/resale_shop/internal/service/auth"
	"github.com/Skotchmaster/resale_shop/internal/session"
	"github.com/Skotchmaster/resale_shop/internal/transport"
)

type AuthHTTP struct {
	Svc      *authsvc.AuthService
	Checkout *checkout.Store
	Secure   bool
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return invalidBody()
	}

	user, err := h.Svc.Register(ctx, authsvc.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		return fail(l, "register", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return invalidBody()
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login", err)
	}

	c.SetCookie(session.CreateCookie(res.Token, res.ExpiresAt, h.Secure))
	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, res.User)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if ck, err := c.Cookie(session.CookieName); err == nil {
		if err := h.Svc.Logout(ctx, ck.Value); err != nil {
			c.SetCookie(session.DeleteCookie(h.Secure))
			return fail(l, "logout", err)
		}
	}

	c.SetCookie(session.DeleteCookie(h.Secure))
	if h.Checkout != nil {
		if err := h.Checkout.Clear(c.Request(), c.Response()); err != nil {
			l.Error("clear_checkout_error", "error", err)
		}
	}

	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	user, err := h.Svc.Me(ctx, userID)
	if err != nil {
		return fail(l, "me", err)
	}
	return c.JSON(http.StatusOK, user)
}
