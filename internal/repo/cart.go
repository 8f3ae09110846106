package repo

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/resale_shop/internal/models"
)

// CartLine is a cart row joined with the product it refers to.
type CartLine struct {
	ItemID    uint            `json:"id"`
	ProductID uint            `json:"product_id"`
	Quantity  uint            `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Name      string          `json:"name"`
	Images    string          `json:"images"`
	LivePrice decimal.Decimal `json:"selling_price"`
}

func (l CartLine) PriceChanged() bool { return !l.UnitPrice.Equal(l.LivePrice) }

func cartLines(db *gorm.DB, userID uint) ([]CartLine, error) {
	var lines []CartLine
	err := db.Table("cart_items").
		Select("cart_items.id AS item_id, cart_items.product_id, cart_items.quantity, cart_items.unit_price, " +
			"products.name, products.images, products.selling_price AS live_price").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *GormRepo) GetCartLines(ctx context.Context, userID uint) ([]CartLine, error) {
	return cartLines(r.DB.WithContext(ctx), userID)
}

// AddToCart increments an existing line or creates one; either way the price
// snapshot is set to price.
func (r *GormRepo) AddToCart(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).
			Updates(map[string]any{
				"quantity":   gorm.Expr("quantity + ?", item.Quantity),
				"unit_price": item.UnitPrice,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).First(item).Error
		}
		return tx.Create(item).Error
	})
}

// ChangeQuantity moves a line by one unit. A decrement at quantity 1 returns
// ErrQuantityMin together with the unchanged row.
func (r *GormRepo) ChangeQuantity(ctx context.Context, userID, itemID uint, increment bool) (*models.CartItem, error) {
	var item models.CartItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", itemID, userID).
			First(&item).Error; err != nil {
			return err
		}

		expr := gorm.Expr("quantity + 1")
		if !increment {
			if item.Quantity <= 1 {
				return ErrQuantityMin
			}
			expr = gorm.Expr("quantity - 1")
		}
		if err := tx.Model(&item).Update("quantity", expr).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", item.ID).First(&item).Error
	})
	if err != nil {
		if errors.Is(err, ErrQuantityMin) {
			return &item, err
		}
		return nil, err
	}
	return &item, nil
}

// DeleteCartItem removes one line owned by userID.
func (r *GormRepo) DeleteCartItem(ctx context.Context, userID, itemID uint) error {
	res := r.DB.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, itemID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ClearCart(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

// RequoteCart sets every line's snapshot to the product's current selling price.
func (r *GormRepo) RequoteCart(ctx context.Context, userID uint, lines []CartLine) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range lines {
			if !l.PriceChanged() {
				continue
			}
			if err := tx.Model(&models.CartItem{}).
				Where("id = ? AND user_id = ?", l.ItemID, userID).
				Update("unit_price", l.LivePrice).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
