package transport

import "strings"

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  uint `json:"quantity"`
}

type UpdateCartRequest struct {
	Action string `json:"action"`
}

type CreateOrderRequest struct {
	AcceptPriceChanges bool `json:"accept_price_changes"`
}

// VerifyPaymentRequest accepts both plain and gateway-prefixed field names.
type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`

	OrderIDCamel   string `json:"orderId"`
	PaymentIDCamel string `json:"paymentId"`

	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	GatewaySignature string `json:"razorpay_signature"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (r VerifyPaymentRequest) Fields() (orderID, paymentID, signature string) {
	return firstNonEmpty(r.OrderID, r.OrderIDCamel, r.GatewayOrderID),
		firstNonEmpty(r.PaymentID, r.PaymentIDCamel, r.GatewayPaymentID),
		firstNonEmpty(r.Signature, r.GatewaySignature)
}

type DeleteCartItemResponse struct {
	ID      uint `json:"id"`
	Deleted bool `json:"deleted"`
}

type QuantityMinDetails struct {
	ID       uint `json:"id"`
	Quantity uint `json:"quantity"`
}
