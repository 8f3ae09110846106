package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/resale_shop/internal/checkout"
	"github.com/Skotchmaster/resale_shop/internal/logging"
	"github.com/Skotchmaster/resale_shop/internal/middleware/auth"
	ordersvc "github.com/Skotchmaster/resale_shop/internal/service/order"
	"github.com/Skotchmaster/resale_shop/internal/transport"
	"github.com/Skotchmaster/resale_shop/internal/util"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderHTTP struct {
	Svc      *ordersvc.OrderService
	Checkout *checkout.Store
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return invalidBody()
	}

	out, err := h.Svc.CreateOrder(ctx, ordersvc.CreateOrderInput{
		UserID:             userID,
		IdempotencyKey:     c.Request().Header.Get(HeaderIdempotencyKey),
		AcceptPriceChanges: req.AcceptPriceChanges,
	})
	if err != nil {
		return fail(l, "create_order", err)
	}

	if h.Checkout != nil {
		st, _ := h.Checkout.Load(c.Request())
		st.GatewayOrderID = out.OrderID
		total := out.Total
		st.Total = &total
		st.Step = checkout.StepPayment
		if err := h.Checkout.Save(c.Request(), c.Response(), st); err != nil {
			l.Error("save_checkout_error", "error", err)
		}
	}

	status := http.StatusCreated
	if out.Reused {
		status = http.StatusOK
	}
	l.Info("create_order_success", "gateway_order_id", out.OrderID, "reused", out.Reused)
	return c.JSON(status, out)
}

func (h *OrderHTTP) VerifyPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.verify")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req transport.VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("verify_payment_error", "status", 400, "reason", "invalid body", "error", err)
		return invalidBody()
	}
	orderID, paymentID, signature := req.Fields()

	order, created, err := h.Svc.VerifyPayment(ctx, ordersvc.VerifyInput{
		UserID:    userID,
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: signature,
	})
	if err != nil {
		return fail(l, "verify_payment", err)
	}

	if h.Checkout != nil {
		if err := h.Checkout.Clear(c.Request(), c.Response()); err != nil {
			l.Error("clear_checkout_error", "error", err)
		}
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	l.Info("verify_payment_success", "order_id", order.ID, "created", created)
	return c.JSON(status, echo.Map{"success": true, "order": order})
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.ListOrders(ctx, userID, page, size)
	if err != nil {
		return fail(l, "list_orders", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrder(ctx, userID, id)
	if err != nil {
		return fail(l, "get_order", err)
	}
	return c.JSON(http.StatusOK, order)
}
