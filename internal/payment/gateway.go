package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

var ErrGateway = errors.New("payment gateway error")

type GatewayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
}

// Client creates orders through the Razorpay SDK. baseURL replaces the SDK's
// default API host, so sandboxes and test servers can stand in for it.
type Client struct {
	rzp   *razorpay.Client
	keyID string
}

func NewClient(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rzp := razorpay.NewClient(keyID, keySecret)
	if baseURL = strings.TrimRight(baseURL, "/"); baseURL != "" {
		rzp.Order.Request.BaseURL = baseURL
	}
	rzp.Order.Request.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &Client{rzp: rzp, keyID: keyID}
}

func (c *Client) KeyID() string { return c.keyID }

type createResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder posts to /v1/orders. The SDK has no context support, so the
// call is abandoned when ctx ends and left to the http client timeout.
func (c *Client) CreateOrder(ctx context.Context, in GatewayOrderRequest) (*GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":   in.Amount,
		"currency": in.Currency,
		"receipt":  in.Receipt,
	}
	if len(in.Notes) > 0 {
		data["notes"] = in.Notes
	}

	done := make(chan createResult, 1)
	go func() {
		body, err := c.rzp.Order.Create(data, nil)
		done <- createResult{body: body, err: err}
	}()

	var res createResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrGateway, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("%w: create order: %v", ErrGateway, res.err)
	}

	out := &GatewayOrder{
		ID:       str(res.body["id"]),
		Amount:   minor(res.body["amount"]),
		Currency: str(res.body["currency"]),
		Receipt:  str(res.body["receipt"]),
		Status:   str(res.body["status"]),
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: empty order id", ErrGateway)
	}
	return out, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

// minor reads a JSON number the SDK decoded as float64.
func minor(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(math.Round(n))
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
