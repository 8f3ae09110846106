package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/resale_shop/internal/models"
)

func (r *GormRepo) FindAttempt(ctx context.Context, userID uint, key string) (*models.CheckoutAttempt, error) {
	var a models.CheckoutAttempt
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAttempt inserts a new attempt in state creating together with its item
// snapshot. Losing a race on the (user_id, idempotency_key) index returns
// ErrAttemptExists.
func (r *GormRepo) CreateAttempt(ctx context.Context, a *models.CheckoutAttempt) error {
	a.Status = models.AttemptCreating
	err := r.DB.WithContext(ctx).Create(a).Error
	if err == nil {
		return nil
	}
	if _, ferr := r.FindAttempt(ctx, a.UserID, a.IdempotencyKey); ferr == nil {
		return ErrAttemptExists
	}
	return err
}

// ReclaimAttempt moves an attempt back to creating when it failed, or when it
// has been stuck in creating since before staleBefore (the process died during
// the gateway call). The item snapshot is replaced with a.Items. Only one
// caller wins.
func (r *GormRepo) ReclaimAttempt(ctx context.Context, a *models.CheckoutAttempt, staleBefore time.Time) (bool, error) {
	var won bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CheckoutAttempt{}).
			Where("id = ? AND (status = ? OR (status = ? AND updated_at < ?))",
				a.ID, models.AttemptFailed, models.AttemptCreating, staleBefore).
			Updates(map[string]any{
				"status":    models.AttemptCreating,
				"cart_hash": a.CartHash,
				"amount":    a.Amount,
				"currency":  a.Currency,
				"receipt":   a.Receipt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}

		if err := tx.Where("attempt_id = ?", a.ID).Delete(&models.CheckoutAttemptItem{}).Error; err != nil {
			return fmt.Errorf("drop item snapshot: %w", err)
		}
		items := make([]models.CheckoutAttemptItem, len(a.Items))
		for i, it := range a.Items {
			it.ID = 0
			it.AttemptID = a.ID
			items[i] = it
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("write item snapshot: %w", err)
			}
		}
		a.Items = items
		won = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if won {
		a.Status = models.AttemptCreating
	}
	return won, nil
}

func (r *GormRepo) MarkAttemptCreated(ctx context.Context, a *models.CheckoutAttempt, gatewayOrderID string) error {
	res := r.DB.WithContext(ctx).Model(&models.CheckoutAttempt{}).
		Where("id = ? AND status = ?", a.ID, models.AttemptCreating).
		Updates(map[string]any{"status": models.AttemptCreated, "gateway_order_id": gatewayOrderID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	a.Status = models.AttemptCreated
	a.GatewayOrderID = &gatewayOrderID
	return nil
}

func (r *GormRepo) MarkAttemptFailed(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&models.CheckoutAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptCreating).
		Update("status", models.AttemptFailed).Error
}
