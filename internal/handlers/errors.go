package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/resale_shop/internal/apperr"
	"github.com/Skotchmaster/resale_shop/internal/checkout"
	authsvc "github.com/Skotchmaster/resale_shop/internal/service/auth"
	cartsvc "github.com/Skotchmaster/resale_shop/internal/service/cart"
	catalogsvc "github.com/Skotchmaster/resale_shop/internal/service/catalog"
	ordersvc "github.com/Skotchmaster/resale_shop/internal/service/order"
	"github.com/Skotchmaster/resale_shop/internal/validation"
)

func stripPrefix(err error, prefix string) string {
	return strings.TrimPrefix(err.Error(), prefix+": ")
}

func notFoundMessage(err error) string {
	msg := err.Error()
	if what, ok := strings.CutSuffix(msg, ": not found"); ok {
		return what + " not found"
	}
	return msg
}

func withFields(ae *apperr.Error, err error) *apperr.Error {
	if fields := validation.Fields(err); len(fields) > 0 {
		return ae.WithDetails(echo.Map{"fields": fields})
	}
	return ae
}

// toAppErr maps service errors onto the API error shape.
func toAppErr(err error) *apperr.Error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}

	var pce *ordersvc.PriceChangedError
	if errors.As(err, &pce) {
		return apperr.New(http.StatusConflict, apperr.CodePriceChanged, "prices changed, review the cart and confirm").
			WithDetails(echo.Map{"changes": pce.Changes}).Wrap(err)
	}

	switch {
	case errors.Is(err, authsvc.ErrValidation), errors.Is(err, cartsvc.ErrValidation), errors.Is(err, ordersvc.ErrValidation):
		return withFields(apperr.Validation(stripPrefix(err, "validation")), err).Wrap(err)
	case errors.Is(err, checkout.ErrInvalidAddress):
		return withFields(apperr.Validation(err.Error()), err).Wrap(err)
	case errors.Is(err, authsvc.ErrNotFound), errors.Is(err, cartsvc.ErrNotFound),
		errors.Is(err, catalogsvc.ErrNotFound), errors.Is(err, ordersvc.ErrNotFound):
		return apperr.New(http.StatusNotFound, apperr.CodeNotFound, notFoundMessage(err)).Wrap(err)
	case errors.Is(err, authsvc.ErrEmailTaken):
		return apperr.New(http.StatusConflict, apperr.CodeEmailTaken, "email already registered").Wrap(err)
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return apperr.New(http.StatusUnauthorized, apperr.CodeInvalidCredentials, "invalid email or password").Wrap(err)
	case errors.Is(err, cartsvc.ErrQuantityMin):
		return apperr.New(http.StatusBadRequest, apperr.CodeQuantityMin, "quantity cannot go below 1").Wrap(err)
	case errors.Is(err, ordersvc.ErrCartEmpty):
		return apperr.New(http.StatusBadRequest, apperr.CodeCartEmpty, "cart is empty").Wrap(err)
	case errors.Is(err, ordersvc.ErrInProgress):
		return apperr.New(http.StatusConflict, apperr.CodeCheckoutInProgress, "checkout already in progress, retry shortly").Wrap(err)
	case errors.Is(err, ordersvc.ErrConflict):
		return apperr.New(http.StatusConflict, apperr.CodeConflict, stripPrefix(err, "conflict")).Wrap(err)
	case errors.Is(err, ordersvc.ErrInvalidSignature):
		return apperr.New(http.StatusBadRequest, apperr.CodeInvalidSignature, "payment signature does not match").Wrap(err)
	case errors.Is(err, ordersvc.ErrGateway):
		return apperr.New(http.StatusBadGateway, apperr.CodeGateway, "payment gateway unavailable, try again").Wrap(err)
	default:
		return apperr.Internal(err)
	}
}

// fail logs err at a level matching its status and returns the API error.
func fail(l *slog.Logger, op string, err error) *apperr.Error {
	ae := toAppErr(err)
	if ae.Status >= http.StatusInternalServerError {
		l.Error(op+"_error", "status", ae.Status, "code", ae.Code, "error", err)
	} else {
		l.Warn(op+"_error", "status", ae.Status, "code", ae.Code, "reason", ae.Message)
	}
	return ae
}

func parseID(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return uint(v), nil
}

func invalidBody() *apperr.Error {
	return apperr.Validation("invalid body")
}
