package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrQuantityMin      = errors.New("quantity cannot go below 1")
	ErrAttemptExists    = errors.New("checkout attempt already exists")
	ErrAlreadyPaid      = errors.New("gateway order already paid")
	ErrEmptyAttempt     = errors.New("checkout attempt has no items")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}
