package parts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/display"
)

// Part categories.
const (
	CategoryRawMaterial  = "Raw Material"
	CategoryFinishedPart = "Finished Part"
)

// Part is a stocked item. CurrentStock is owned by the inventory ledger.
type Part struct {
	ID            uuid.UUID           `json:"id"`
	PartNo        string              `json:"part_no"`
	Description   string              `json:"description"`
	Category      string              `json:"category"`
	UnitOfMeasure string              `json:"unit_of_measure"`
	UnitRate      decimal.Decimal     `json:"unit_rate"`
	OpeningStock  int                 `json:"opening_stock"`
	CurrentStock  int                 `json:"current_stock"`
	MinimumStock  int                 `json:"minimum_stock"`
	OrderQuantity int                 `json:"order_quantity"`
	StockStatus   display.StockStatus `json:"stock_status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// StockValue is current stock priced at the unit rate.
func (p Part) StockValue() decimal.Decimal {
	return p.UnitRate.Mul(decimal.NewFromInt(int64(p.CurrentStock)))
}

// PartInput carries the fields a caller may set. Opening stock is honoured on create only.
type PartInput struct {
	PartNo        string
	Description   string
	Category      string
	UnitOfMeasure string
	UnitRate      decimal.Decimal
	OpeningStock  int
	MinimumStock  int
	OrderQuantity int
}

// ListFilters narrows part listings.
type ListFilters struct {
	Page     int
	PerPage  int
	Search   string
	Category string
	// StockStatus is Critical, Low or Good.
	StockStatus string
	SortBy      string
	SortDir     string
}

// ReorderLevel holds the replenishment settings of one part.
type ReorderLevel struct {
	ID            uuid.UUID           `json:"id"`
	PartID        uuid.UUID           `json:"part_id"`
	PartNo        string              `json:"part_no"`
	Description   string              `json:"description"`
	CurrentStock  int                 `json:"current_stock"`
	OrderQuantity int                 `json:"order_quantity"`
	ReorderLevel  int                 `json:"reorder_level"`
	MaxStockLevel int                 `json:"max_stock_level"`
	LeadTimeDays  int                 `json:"lead_time_days"`
	StockStatus   display.StockStatus `json:"stock_status,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Below reports whether the part has fallen to or under its reorder level.
func (r ReorderLevel) Below() bool {
	return r.CurrentStock <= r.ReorderLevel
}

// SuggestedOrder is the quantity that refills the part to its maximum, never less than the
// part's order quantity.
func (r ReorderLevel) SuggestedOrder() int {
	qty := r.MaxStockLevel - r.CurrentStock
	if qty < r.OrderQuantity {
		qty = r.OrderQuantity
	}
	if qty < 0 {
		return 0
	}
	return qty
}

// ReorderInput sets a part's reorder level.
type ReorderInput struct {
	ReorderLevel  int
	MaxStockLevel int
	LeadTimeDays  int
}
