// Package apperr defines the single error shape returned by the API:
//
//	{"code": "CART_EMPTY", "message": "cart is empty"}
//
// Clients branch on code; message is for humans.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	CodeValidation         = "VALIDATION"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeCartEmpty          = "CART_EMPTY"
	CodeQuantityMin        = "QUANTITY_MIN"
	CodePriceChanged       = "PRICE_CHANGED"
	CodeCheckoutInProgress = "CHECKOUT_IN_PROGRESS"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeGateway            = "GATEWAY_ERROR"
	CodeCSRF               = "CSRF"
	CodeInternal           = "INTERNAL"
)

type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, CodeValidation, message)
}

func Unauthorized() *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, "login required")
}

func Forbidden() *Error {
	return New(http.StatusForbidden, CodeForbidden, "not enough rights")
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, what+" not found")
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, "internal error").Wrap(err)
}

type body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Handler renders every error returned from a handler as the structured body.
// Outside production the wrapped cause is exposed as detail.
func Handler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		b, status := render(err)
		if !production && status >= 500 && err != nil {
			b.Detail = err.Error()
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, b)
		}
		if werr != nil {
			c.Logger().Error(werr)
		}
	}
}

func render(err error) (body, int) {
	var ae *Error
	if errors.As(err, &ae) {
		return body{Code: ae.Code, Message: ae.Message, Details: ae.Details}, ae.Status
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return body{Code: codeForStatus(he.Code), Message: msg}, he.Code
	}

	return body{Code: CodeInternal, Message: "internal error"}, http.StatusInternalServerError
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}
