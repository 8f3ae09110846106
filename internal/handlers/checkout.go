package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/resale_shop/internal/checkout"
	"github.com/Skotchmaster/resale_shop/internal/logging"
)

type CheckoutHTTP struct {
	Store *checkout.Store
}

type checkoutResponse struct {
	checkout.State
	StepIndex int `json:"step_index"`
}

func (h *CheckoutHTTP) respond(c echo.Context, st checkout.State) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "checkout")
	if err := h.Store.Save(c.Request(), c.Response(), st); err != nil {
		return fail(l, "save_checkout", err)
	}
	return c.JSON(http.StatusOK, checkoutResponse{State: st, StepIndex: int(st.Step)})
}

// GetState resumes the wizard at the furthest step its stored fields allow.
func (h *CheckoutHTTP) GetState(c echo.Context) error {
	st, _ := h.Store.Load(c.Request())
	st.Step = checkout.Resume(st)
	return h.respond(c, st)
}

func (h *CheckoutHTTP) SetAddress(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "checkout.address")

	var addr checkout.Address
	if err := c.Bind(&addr); err != nil {
		l.Warn("set_address_error", "status", 400, "reason", "invalid body", "error", err)
		return invalidBody()
	}
	addr.Normalize()
	if err := addr.Validate(); err != nil {
		return fail(l, "set_address", err)
	}

	st, _ := h.Store.Load(c.Request())
	st.ShippingAddress = &addr
	return h.respond(c, st)
}

func (h *CheckoutHTTP) Next(c echo.Context) error {
	st, _ := h.Store.Load(c.Request())
	st.Step = checkout.Next(st.Step)
	return h.respond(c, st)
}

func (h *CheckoutHTTP) Prev(c echo.Context) error {
	st, _ := h.Store.Load(c.Request())
	st.Step = checkout.Prev(st.Step)
	return h.respond(c, st)
}

func (h *CheckoutHTTP) Reset(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "checkout.reset")
	if err := h.Store.Clear(c.Request(), c.Response()); err != nil {
		return fail(l, "reset_checkout", err)
	}
	return c.JSON(http.StatusOK, checkoutResponse{State: checkout.State{}, StepIndex: 0})
}
