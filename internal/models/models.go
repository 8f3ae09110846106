package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name         string    `gorm:"not null"                   json:"name"`
	Email        string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Phone        string    `gorm:"size:20"                    json:"phone,omitempty"`
	PasswordHash string    `gorm:"not null"                   json:"-"`
	CreatedAt    time.Time `                                  json:"created_at"`
}

type Vendor struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name         string    `gorm:"not null"                   json:"name"`
	Email        string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null"                   json:"-"`
	CreatedAt    time.Time `                                  json:"created_at"`
}

type Admin struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"      json:"id"`
	Email        string `gorm:"size:191;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null"                      json:"-"`
}

type ProductStatus string

const (
	ProductPending  ProductStatus = "pending"
	ProductApproved ProductStatus = "approved"
	ProductRejected ProductStatus = "rejected"
)

type Product struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"          json:"id"`
	VendorID      uint            `gorm:"index;not null"                    json:"vendor_id"`
	Name          string          `gorm:"not null"                          json:"name"`
	Description   string          `                                         json:"description"`
	Condition     string          `gorm:"size:32"                           json:"condition"`
	Size          string          `gorm:"size:16"                           json:"size"`
	Images        string          `                                         json:"images"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2);not null"       json:"-"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"       json:"selling_price"`
	Status        ProductStatus   `gorm:"size:16;index;default:'pending'"   json:"status"`
	CreatedAt     time.Time       `                                         json:"created_at"`
}

// CartItem.UnitPrice is the selling price seen when the line was last added or re-quoted.
type CartItem struct {
	ID        uint            `gorm:"primaryKey"                              json:"id"`
	UserID    uint            `gorm:"uniqueIndex:idx_cart_user_product;not null" json:"user_id"`
	ProductID uint            `gorm:"uniqueIndex:idx_cart_user_product;not null" json:"product_id"`
	Quantity  uint            `gorm:"default:1;check:quantity>0"              json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"             json:"unit_price"`
	CreatedAt time.Time       `                                               json:"created_at"`
	UpdatedAt time.Time       `                                               json:"updated_at"`
}

type AttemptStatus string

const (
	AttemptCreating AttemptStatus = "creating"
	AttemptCreated  AttemptStatus = "created"
	AttemptPaid     AttemptStatus = "paid"
	AttemptFailed   AttemptStatus = "failed"
)

// CheckoutAttempt is the local record of one gateway order.
type CheckoutAttempt struct {
	ID             uint          `gorm:"primaryKey"                                   json:"id"`
	UserID         uint          `gorm:"uniqueIndex:idx_attempt_user_key;not null"   json:"user_id"`
	IdempotencyKey string        `gorm:"size:128;uniqueIndex:idx_attempt_user_key;not null" json:"idempotency_key"`
	CartHash       string        `gorm:"size:64;not null"                             json:"cart_hash"`
	GatewayOrderID *string       `gorm:"size:64;uniqueIndex"                          json:"gateway_order_id,omitempty"`
	Amount         int64         `gorm:"not null"                                     json:"amount"`
	Currency       string        `gorm:"size:8;not null"                              json:"currency"`
	Receipt        string        `gorm:"size:64;not null"                             json:"receipt"`
	Status         AttemptStatus `gorm:"size:16;not null"                             json:"status"`
	CreatedAt      time.Time     `                                                    json:"created_at"`
	UpdatedAt      time.Time     `                                                    json:"updated_at"`

	Items []CheckoutAttemptItem `gorm:"foreignKey:AttemptID" json:"items,omitempty"`
}

// CheckoutAttemptItem is a cart line as it was priced for the gateway order.
// Orders are built from these rows, not from the cart at payment time.
type CheckoutAttemptItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	AttemptID uint            `gorm:"index;not null"              json:"attempt_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	Quantity  uint            `gorm:"not null"                    json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
}

const PaymentStatusPaid = "PAID"

type Order struct {
	ID             uint            `gorm:"primaryKey"                   json:"id"`
	UserID         uint            `gorm:"index;not null"               json:"user_id"`
	GatewayOrderID string          `gorm:"size:64;index;not null"       json:"gateway_order_id"`
	PaymentID      string          `gorm:"size:64;uniqueIndex;not null" json:"payment_id"`
	PaymentStatus  string          `gorm:"size:16;not null"             json:"payment_status"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"  json:"total"`
	Currency       string          `gorm:"size:8;not null"              json:"currency"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID"           json:"items,omitempty"`
	CreatedAt      time.Time       `                                    json:"created_at"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	Quantity  uint            `gorm:"not null"                    json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
}

type PrincipalKind string

const (
	KindUser   PrincipalKind = "user"
	KindVendor PrincipalKind = "vendor"
	KindAdmin  PrincipalKind = "admin"
)

type Session struct {
	ID            uint          `gorm:"primaryKey"                   json:"id"`
	Token         string        `gorm:"size:64;uniqueIndex;not null" json:"-"`
	PrincipalKind PrincipalKind `gorm:"size:16;not null"             json:"kind"`
	PrincipalID   uint          `gorm:"index;not null"               json:"principal_id"`
	ExpiresAt     time.Time     `gorm:"not null"                     json:"expires_at"`
	Revoked       bool          `gorm:"default:false"                json:"revoked"`
	CreatedAt     time.Time     `                                    json:"created_at"`
}

// All lists every model the service migrates.
func All() []any {
	return []any{
		&User{}, &Vendor{}, &Admin{}, &Product{}, &CartItem{},
		&CheckoutAttempt{}, &CheckoutAttemptItem{}, &Order{}, &OrderItem{}, &Session{},
	}
}
