package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog view the storefront needs next to stock figures.
type Product struct {
	ID           string
	Sku          string
	Name         string
	Price        decimal.Decimal
	IsActive     bool
	UpdatedAtUtc time.Time
}

// ProductStockInfo joins a product with its stock counters.
type ProductStockInfo struct {
	Product   Product
	Stock     StockRecord
	Available int
	InStock   bool
	LowStock  bool
}
