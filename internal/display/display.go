// Package display holds the enumerated presentation attributes of domain values.
package display

import "github.com/shopspring/decimal"

// Variant names the badge style.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSecondary   Variant = "secondary"
	VariantOutline     Variant = "outline"
	VariantDestructive Variant = "destructive"
)

// Badge describes how a status is presented.
type Badge struct {
	Label   string  `json:"label"`
	Variant Variant `json:"variant"`
	Color   string  `json:"color"`
}

// Kind groups the statuses of one entity.
type Kind string

const (
	KindGRR        Kind = "grr"
	KindMIR        Kind = "mir"
	KindInspection Kind = "inspection"
	KindPO         Kind = "purchase_order"
	KindVendor     Kind = "vendor"
	KindStock      Kind = "stock"
	KindRating     Kind = "rating"
	KindTestResult Kind = "test_result"
)

var (
	green  = Badge{Variant: VariantDefault, Color: "green"}
	yellow = Badge{Variant: VariantSecondary, Color: "yellow"}
	blue   = Badge{Variant: VariantOutline, Color: "blue"}
	red    = Badge{Variant: VariantDestructive, Color: "red"}
	grey   = Badge{Variant: VariantSecondary, Color: "gray"}
)

var badges = map[Kind]map[string]Badge{
	KindGRR: {
		"Pending Inspection": yellow,
		"Quality Check":      blue,
		"Accepted":           green,
		"Rejected":           red,
	},
	KindMIR: {
		"Pending":   yellow,
		"Issued":    green,
		"Cancelled": red,
	},
	KindInspection: {
		"In Progress": yellow,
		"Completed":   green,
		"Failed":      red,
	},
	KindPO: {
		"Draft":     grey,
		"Approved":  blue,
		"Closed":    green,
		"Cancelled": red,
	},
	KindVendor: {
		"Active":   green,
		"Inactive": grey,
	},
	KindStock: {
		string(StockGood):     green,
		string(StockLow):      yellow,
		string(StockCritical): red,
	},
	KindRating: {
		string(RatingExcellent): green,
		string(RatingGood):      blue,
		string(RatingAverage):   yellow,
		string(RatingPoor):      red,
	},
	KindTestResult: {
		"Pass": green,
		"Fail": red,
	},
}

// BadgeFor returns the badge for status; unknown statuses get a neutral outline badge.
func BadgeFor(kind Kind, status string) Badge {
	b, ok := badges[kind][status]
	if !ok {
		return Badge{Label: status, Variant: VariantOutline, Color: "gray"}
	}
	b.Label = status
	return b
}

// StockStatus classifies current stock against the minimum.
type StockStatus string

const (
	StockCritical StockStatus = "Critical"
	StockLow      StockStatus = "Low"
	StockGood     StockStatus = "Good"
)

// ClassifyStock returns Critical when current <= minimum, Low when current <= 1.5 x minimum,
// Good otherwise. Compared as 2*current <= 3*minimum to stay in integers.
func ClassifyStock(current, minimum int) StockStatus {
	switch {
	case current <= minimum:
		return StockCritical
	case 2*current <= 3*minimum:
		return StockLow
	default:
		return StockGood
	}
}

// RatingBucket names a vendor rating band.
type RatingBucket string

const (
	RatingExcellent RatingBucket = "Excellent"
	RatingGood      RatingBucket = "Good"
	RatingAverage   RatingBucket = "Average"
	RatingPoor      RatingBucket = "Poor"
)

var (
	excellentFloor = decimal.RequireFromString("4.5")
	goodFloor      = decimal.RequireFromString("4.0")
	averageFloor   = decimal.RequireFromString("3.5")
)

// BucketRating maps a 0-5 vendor rating to its band.
func BucketRating(rating decimal.Decimal) RatingBucket {
	switch {
	case rating.GreaterThanOrEqual(excellentFloor):
		return RatingExcellent
	case rating.GreaterThanOrEqual(goodFloor):
		return RatingGood
	case rating.GreaterThanOrEqual(averageFloor):
		return RatingAverage
	default:
		return RatingPoor
	}
}

// PassRate returns accepted/inspected as a percentage rounded to one decimal; zero when
// nothing was inspected.
func PassRate(accepted, inspected int) decimal.Decimal {
	if inspected <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(accepted)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(inspected))).
		Round(1)
}
