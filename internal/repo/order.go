package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/resale_shop/internal/models"
)

type PlaceOrderInput struct {
	UserID         uint
	GatewayOrderID string
	PaymentID      string
}

// PlaceOrder records a verified payment. In one transaction it locks the
// checkout attempt, inserts the order with the attempt's item snapshot (what
// the gateway charged for), takes those quantities out of the cart and marks
// the attempt paid. Lines added to the cart after the gateway order was
// created stay in the cart. A payment id that was already recorded returns
// the existing order with created=false.
func (r *GormRepo) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, bool, error) {
	var (
		order   models.Order
		created bool
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var att models.CheckoutAttempt
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("gateway_order_id = ? AND user_id = ?", in.GatewayOrderID, in.UserID).
			First(&att).Error; err != nil {
			return err
		}

		err := tx.Preload("Items").Where("payment_id = ?", in.PaymentID).First(&order).Error
		if err == nil {
			if order.UserID != in.UserID || order.GatewayOrderID != in.GatewayOrderID {
				return gorm.ErrRecordNotFound
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if att.Status == models.AttemptPaid {
			return ErrAlreadyPaid
		}

		var snapshot []models.CheckoutAttemptItem
		if err := tx.Where("attempt_id = ?", att.ID).Order("id").Find(&snapshot).Error; err != nil {
			return fmt.Errorf("load item snapshot: %w", err)
		}
		if len(snapshot) == 0 {
			return ErrEmptyAttempt
		}

		order = models.Order{
			UserID:         in.UserID,
			GatewayOrderID: in.GatewayOrderID,
			PaymentID:      in.PaymentID,
			PaymentStatus:  models.PaymentStatusPaid,
			Total:          decimal.New(att.Amount, -2),
			Currency:       att.Currency,
		}
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		items := make([]models.OrderItem, 0, len(snapshot))
		for _, it := range snapshot {
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		order.Items = items

		for _, it := range snapshot {
			if err := consumeCartLine(tx, in.UserID, it); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}

		// paid attempts release their key so an identical future cart can check out again
		if err := tx.Model(&models.CheckoutAttempt{}).Where("id = ?", att.ID).Updates(map[string]any{
			"status":          models.AttemptPaid,
			"idempotency_key": "paid:" + in.GatewayOrderID,
		}).Error; err != nil {
			return fmt.Errorf("mark attempt paid: %w", err)
		}

		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &order, created, nil
}

// consumeCartLine removes the paid quantity of one product from the cart,
// deleting the line when nothing is left of it.
func consumeCartLine(tx *gorm.DB, userID uint, it models.CheckoutAttemptItem) error {
	res := tx.Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ? AND quantity > ?", userID, it.ProductID, it.Quantity).
		Update("quantity", gorm.Expr("quantity - ?", it.Quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return tx.Where("user_id = ? AND product_id = ?", userID, it.ProductID).Delete(&models.CartItem{}).Error
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, userID, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
