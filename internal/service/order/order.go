package order

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/resale_shop/internal/events"
	"github.com/Skotchmaster/resale_shop/internal/logging"
	"github.com/Skotchmaster/resale_shop/internal/models"
	"github.com/Skotchmaster/resale_shop/internal/payment"
	"github.com/Skotchmaster/resale_shop/internal/repo"
	"github.com/Skotchmaster/resale_shop/internal/util"
)

var (
	ErrValidation       = errors.New("validation")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrCartEmpty        = errors.New("cart is empty")
	ErrPriceChanged     = errors.New("prices changed since the items were added")
	ErrInProgress       = errors.New("checkout already in progress")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrGateway          = errors.New("payment gateway unavailable")
)

const (
	maxIdempotencyKeyLen = 64

	// an attempt left in creating this long is treated as abandoned
	defaultStaleAfter = time.Minute
)

type PriceChange struct {
	ItemID    uint            `json:"id"`
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	OldPrice  decimal.Decimal `json:"old_price"`
	NewPrice  decimal.Decimal `json:"new_price"`
}

// PriceChangedError lists the lines that were re-quoted. The cart snapshots
// already hold the new prices when it is returned.
type PriceChangedError struct {
	Changes []PriceChange
}

func (e *PriceChangedError) Error() string {
	return fmt.Sprintf("%v: %d line(s) re-quoted", ErrPriceChanged, len(e.Changes))
}

func (e *PriceChangedError) Unwrap() error { return ErrPriceChanged }

type CreateOrderInput struct {
	UserID             uint
	IdempotencyKey     string
	AcceptPriceChanges bool
}

type CheckoutOrder struct {
	OrderID  string          `json:"order_id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	KeyID    string          `json:"key_id"`
	Total    decimal.Decimal `json:"total"`
	Reused   bool            `json:"reused"`
}

type VerifyInput struct {
	UserID    uint
	OrderID   string
	PaymentID string
	Signature string
}

type OrderPage struct {
	Data []models.Order `json:"data"`
	Meta util.Meta      `json:"meta"`
}

type OrderService struct {
	Repo      *repo.GormRepo
	Gateway   payment.Gateway
	Events    events.Publisher
	KeyID     string
	KeySecret string
	Currency  string

	// StaleAfter bounds how long a creating attempt blocks its key. It should
	// exceed the gateway client timeout.
	StaleAfter time.Duration
}

func (s *OrderService) staleBefore() time.Time {
	d := s.StaleAfter
	if d <= 0 {
		d = defaultStaleAfter
	}
	return time.Now().UTC().Add(-d)
}

func cartTotal(lines []repo.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LivePrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// cartHash fingerprints the cart contents that determine the charge.
func cartHash(userID uint, lines []repo.CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%d:%d:%s", l.ProductID, l.Quantity, l.LivePrice.StringFixed(2)))
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", userID, strings.Join(parts, ","))))
	return hex.EncodeToString(sum[:])
}

// attemptItems snapshots the lines at the prices being charged.
func attemptItems(lines []repo.CartLine) []models.CheckoutAttemptItem {
	items := make([]models.CheckoutAttemptItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.CheckoutAttemptItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.LivePrice,
		})
	}
	return items
}

func newReceipt() string {
	return "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *OrderService) checkoutOrder(a *models.CheckoutAttempt, total decimal.Decimal, reused bool) *CheckoutOrder {
	return &CheckoutOrder{
		OrderID:  *a.GatewayOrderID,
		Amount:   a.Amount,
		Currency: a.Currency,
		Receipt:  a.Receipt,
		KeyID:    s.KeyID,
		Total:    total,
		Reused:   reused,
	}
}

// CreateOrder quotes the caller's cart at live prices and opens a gateway
// order for it. Repeating the call with the same key and cart returns the
// gateway order already created.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CheckoutOrder, error) {
	l := logging.FromContext(ctx).With("svc", "order.create", "user_id", in.UserID)

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return nil, fmt.Errorf("%w: idempotency key longer than %d characters", ErrValidation, maxIdempotencyKeyLen)
	}

	lines, err := s.Repo.GetCartLines(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	var changes []PriceChange
	for _, ln := range lines {
		if ln.PriceChanged() {
			changes = append(changes, PriceChange{
				ItemID: ln.ItemID, ProductID: ln.ProductID, Name: ln.Name,
				OldPrice: ln.UnitPrice, NewPrice: ln.LivePrice,
			})
		}
	}
	if len(changes) > 0 {
		if err := s.Repo.RequoteCart(ctx, in.UserID, lines); err != nil {
			return nil, err
		}
		if !in.AcceptPriceChanges {
			l.Info("cart_requoted", "lines", len(changes))
			return nil, &PriceChangedError{Changes: changes}
		}
	}

	total := cartTotal(lines)
	amount := payment.ToMinorUnits(total)
	if amount <= 0 {
		return nil, fmt.Errorf("%w: order total must be positive", ErrValidation)
	}

	hash := cartHash(in.UserID, lines)
	if key == "" {
		key = "cart:" + hash[:40]
	}

	att := &models.CheckoutAttempt{
		UserID:         in.UserID,
		IdempotencyKey: key,
		CartHash:       hash,
		Amount:         amount,
		Currency:       s.Currency,
		Receipt:        newReceipt(),
		Items:          attemptItems(lines),
	}

	existing, err := s.Repo.FindAttempt(ctx, in.UserID, key)
	switch {
	case err == nil:
		if existing.CartHash != hash {
			return nil, fmt.Errorf("%w: idempotency key was used for a different cart", ErrConflict)
		}
		switch existing.Status {
		case models.AttemptCreated:
			l.Info("checkout_reused", "gateway_order_id", *existing.GatewayOrderID)
			return s.checkoutOrder(existing, total, true), nil
		case models.AttemptFailed, models.AttemptCreating:
			att.ID = existing.ID
			ok, err := s.Repo.ReclaimAttempt(ctx, att, s.staleBefore())
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrInProgress
			}
			if existing.Status == models.AttemptCreating {
				l.Warn("stale_attempt_reclaimed", "attempt_id", existing.ID, "updated_at", existing.UpdatedAt)
			}
		default:
			return nil, ErrInProgress
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.Repo.CreateAttempt(ctx, att); err != nil {
			if errors.Is(err, repo.ErrAttemptExists) {
				return nil, ErrInProgress
			}
			return nil, err
		}
	default:
		return nil, err
	}

	gwOrder, err := s.Gateway.CreateOrder(ctx, payment.GatewayOrderRequest{
		Amount:   amount,
		Currency: s.Currency,
		Receipt:  att.Receipt,
		Notes:    map[string]string{"user_id": fmt.Sprint(in.UserID)},
	})
	if err != nil {
		l.Error("gateway_create_order_error", "attempt_id", att.ID, "error", err)
		if merr := s.Repo.MarkAttemptFailed(ctx, att.ID); merr != nil {
			l.Error("mark_attempt_failed_error", "attempt_id", att.ID, "error", merr)
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if err := s.Repo.MarkAttemptCreated(ctx, att, gwOrder.ID); err != nil {
		return nil, fmt.Errorf("record gateway order %s: %w", gwOrder.ID, err)
	}

	events.Emit(ctx, s.Events, events.TopicOrder, gwOrder.ID, map[string]any{
		"type":           "checkout_started",
		"userID":         in.UserID,
		"gatewayOrderID": gwOrder.ID,
		"amount":         amount,
		"currency":       s.Currency,
	})
	return s.checkoutOrder(att, total, false), nil
}

// VerifyPayment trusts the payment only when the signature matches. The
// returned bool is false when the payment had already been recorded.
func (s *OrderService) VerifyPayment(ctx context.Context, in VerifyInput) (*models.Order, bool, error) {
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	in.Signature = strings.TrimSpace(in.Signature)
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, false, fmt.Errorf("%w: order_id, payment_id and signature are required", ErrValidation)
	}

	if !payment.VerifySignature(s.KeySecret, in.OrderID, in.PaymentID, in.Signature) {
		logging.FromContext(ctx).Warn("payment_signature_mismatch", "user_id", in.UserID, "gateway_order_id", in.OrderID)
		return nil, false, ErrInvalidSignature
	}

	order, created, err := s.Repo.PlaceOrder(ctx, repo.PlaceOrderInput{
		UserID:         in.UserID,
		GatewayOrderID: in.OrderID,
		PaymentID:      in.PaymentID,
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("checkout: %w", ErrNotFound)
	case errors.Is(err, repo.ErrAlreadyPaid):
		return nil, false, fmt.Errorf("%w: gateway order already paid with another payment", ErrConflict)
	case err != nil:
		return nil, false, err
	}

	if created {
		events.Emit(ctx, s.Events, events.TopicOrder, in.PaymentID, map[string]any{
			"type":           "order_paid",
			"userID":         in.UserID,
			"orderID":        order.ID,
			"gatewayOrderID": in.OrderID,
			"paymentID":      in.PaymentID,
			"total":          order.Total.StringFixed(2),
		})
	}
	return order, created, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uint, page, size int) (*OrderPage, error) {
	offset, limit := util.Calculate(page, size)
	total, orders, err := s.Repo.ListOrders(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &OrderPage{Data: orders, Meta: util.NewMeta(page, offset, limit, total)}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, id uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order: %w", ErrNotFound)
	}
	return order, err
}
