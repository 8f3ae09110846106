package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/resale_shop/internal/events"
	"github.com/Skotchmaster/resale_shop/internal/models"
	"github.com/Skotchmaster/resale_shop/internal/repo"
)

var (
	ErrValidation  = errors.New("validation")
	ErrNotFound    = errors.New("not found")
	ErrQuantityMin = errors.New("quantity cannot go below 1")
)

const (
	ActionIncrement = "increment"
	ActionDecrement = "decrement"
)

type Line struct {
	repo.CartLine
	PriceChanged bool `json:"price_changed"`
}

type View struct {
	Items        []Line          `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	PriceChanged bool            `json:"price_changed"`
}

func NewView(lines []repo.CartLine) *View {
	v := &View{Items: make([]Line, 0, len(lines)), Subtotal: decimal.Zero}
	for _, l := range lines {
		changed := l.PriceChanged()
		v.Items = append(v.Items, Line{CartLine: l, PriceChanged: changed})
		v.Subtotal = v.Subtotal.Add(l.LivePrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		v.PriceChanged = v.PriceChanged || changed
	}
	return v
}

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *CartService) GetCart(ctx context.Context, userID uint) (*View, error) {
	lines, err := s.Repo.GetCartLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewView(lines), nil
}

func (s *CartService) AddToCart(ctx context.Context, userID, productID, quantity uint) (*models.CartItem, error) {
	if productID == 0 {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if quantity == 0 {
		quantity = 1
	}

	product, err := s.Repo.GetApprovedProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product: %w", ErrNotFound)
		}
		return nil, err
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: product.SellingPrice,
	}
	if err := s.Repo.AddToCart(ctx, item); err != nil {
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicCart, fmt.Sprint(userID), map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": productID,
		"quantity":  item.Quantity,
	})
	return item, nil
}

func (s *CartService) ChangeQuantity(ctx context.Context, userID, itemID uint, action string) (*models.CartItem, error) {
	var increment bool
	switch action {
	case ActionIncrement:
		increment = true
	case ActionDecrement:
	default:
		return nil, fmt.Errorf("%w: action must be %q or %q", ErrValidation, ActionIncrement, ActionDecrement)
	}

	item, err := s.Repo.ChangeQuantity(ctx, userID, itemID, increment)
	switch {
	case errors.Is(err, repo.ErrQuantityMin):
		return item, ErrQuantityMin
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("cart item: %w", ErrNotFound)
	case err != nil:
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicCart, fmt.Sprint(userID), map[string]any{
		"type":     "cart_quantity_changed",
		"userID":   userID,
		"id":       item.ID,
		"quantity": item.Quantity,
	})
	return item, nil
}

// RemoveItem deletes a line owned by userID. Lines of other users are
// reported as not found.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) error {
	if err := s.Repo.DeleteCartItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("cart item: %w", ErrNotFound)
		}
		return err
	}

	events.Emit(ctx, s.Events, events.TopicCart, fmt.Sprint(userID), map[string]any{
		"type":   "cart_item_removed",
		"userID": userID,
		"id":     itemID,
	})
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	if err := s.Repo.ClearCart(ctx, userID); err != nil {
		return err
	}
	events.Emit(ctx, s.Events, events.TopicCart, fmt.Sprint(userID), map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return nil
}
