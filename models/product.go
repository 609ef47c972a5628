package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int                 `json:"id" db:"id"`
	Name          string              `json:"name" db:"name"`
	Price         decimal.Decimal     `json:"price" db:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price" db:"discount_price"`
	Stock         int                 `json:"stock" db:"stock"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// UnitPrice is what a customer pays for one unit: the discount price when set.
func (p Product) UnitPrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsPositive() {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}
