package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/resale_shop/internal/logging"
	"github.com/Skotchmaster/resale_shop/internal/middleware/auth"
	cartsvc "github.com/Skotchmaster/resale_shop/internal/service/cart"
	"github.com/Skotchmaster/resale_shop/internal/transport"
)

type CartHTTP struct {
	Svc *cartsvc.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	view, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		return fail(l, "get_cart", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "reason", "invalid body", "error", err)
		return invalidBody()
	}

	item, err := h.Svc.AddToCart(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(l, "add_to_cart", err)
	}

	l.Info("item added to cart", "product_id", item.ProductID, "quantity", item.Quantity)
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_quantity")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req transport.UpdateCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_quantity_error", "status", 400, "reason", "invalid body", "error", err)
		return invalidBody()
	}

	item, err := h.Svc.ChangeQuantity(ctx, userID, id, req.Action)
	if err != nil {
		ae := fail(l, "update_quantity", err)
		if errors.Is(err, cartsvc.ErrQuantityMin) && item != nil {
			return ae.WithDetails(transport.QuantityMinDetails{ID: item.ID, Quantity: item.Quantity})
		}
		return ae
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Svc.RemoveItem(ctx, userID, id); err != nil {
		return fail(l, "remove_from_cart", err)
	}
	return c.JSON(http.StatusOK, transport.DeleteCartItemResponse{ID: id, Deleted: true})
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Clear(ctx, userID); err != nil {
		return fail(l, "clear_cart", err)
	}

	l.Info("cart successfully cleared")
	return c.JSON(http.StatusOK, echo.Map{"message": "cart cleared"})
}
