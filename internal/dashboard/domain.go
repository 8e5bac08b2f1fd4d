// Package dashboard aggregates stock, vendor and movement figures for the landing page.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/display"
)

// TrendMonths is the number of calendar months in the movement trend, current month included.
const TrendMonths = 6

// Overview is the full dashboard payload.
type Overview struct {
	KPIs        KPIs                `json:"kpis"`
	Categories  []CategoryStock     `json:"inventory_by_category"`
	Vendors     []VendorPerformance `json:"vendor_performance"`
	Trend       []MonthTrend        `json:"monthly_trend"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// KPIs are the headline counters.
type KPIs struct {
	TotalParts      int             `json:"total_parts"`
	ActiveVendors   int             `json:"active_vendors"`
	PendingGRRs     int             `json:"pending_grrs"`
	LowStockItems   int             `json:"low_stock_items"`
	StockValue      decimal.Decimal `json:"stock_value"`
	StockValueLabel string          `json:"stock_value_label"`
}

// CategoryStock sums parts and stock value per category.
type CategoryStock struct {
	Category   string          `json:"category"`
	Parts      int             `json:"parts"`
	Units      int             `json:"units"`
	StockValue decimal.Decimal `json:"stock_value"`
}

// VendorPerformance pairs a vendor's rating with its receipt history.
type VendorPerformance struct {
	VendorCode   string               `json:"vendor_code"`
	Name         string               `json:"name"`
	Rating       decimal.Decimal      `json:"rating"`
	Bucket       display.RatingBucket `json:"bucket"`
	GRRs         int                  `json:"grrs"`
	AcceptedGRRs int                  `json:"accepted_grrs"`
}

// MonthTrend is the quantity received and issued in one month.
type MonthTrend struct {
	Month    string `json:"month"`
	Received int    `json:"received"`
	Issued   int    `json:"issued"`
}

// MonthTotal is a raw per-month ledger sum by direction.
type MonthTotal struct {
	Month time.Time
	In    int
	Out   int
}
