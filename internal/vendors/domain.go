package vendors

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vendor statuses.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Vendor is a supplier of parts.
type Vendor struct {
	ID           uuid.UUID       `json:"id"`
	VendorCode   string          `json:"vendor_code"`
	Name         string          `json:"name"`
	Address      string          `json:"address"`
	Phone        string          `json:"phone,omitempty"`
	Email        string          `json:"email,omitempty"`
	PaymentTerms string          `json:"payment_terms,omitempty"`
	Rating       decimal.Decimal `json:"rating"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// VendorInput carries the editable vendor fields.
type VendorInput struct {
	VendorCode   string
	Name         string
	Address      string
	Phone        string
	Email        string
	PaymentTerms string
	Rating       decimal.Decimal
	Status       string
}

// Rate is a vendor's price for a part over an effective window.
type Rate struct {
	ID            uuid.UUID       `json:"id"`
	VendorID      uuid.UUID       `json:"vendor_id"`
	VendorName    string          `json:"vendor_name,omitempty"`
	PartID        uuid.UUID       `json:"part_id"`
	PartNo        string          `json:"part_no,omitempty"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Covers reports whether the rate is active and its window contains at.
func (r Rate) Covers(at time.Time) bool {
	if !r.IsActive || at.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || !at.After(*r.EffectiveTo)
}

// RateInput creates a vendor rate.
type RateInput struct {
	VendorID      uuid.UUID
	PartID        uuid.UUID
	Rate          decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
}

// RateFilter narrows rate listings.
type RateFilter struct {
	VendorID   *uuid.UUID
	PartID     *uuid.UUID
	ActiveOnly bool
}

// VendorPart links a vendor to a part it supplies.
type VendorPart struct {
	VendorID    uuid.UUID       `json:"vendor_id"`
	PartID      uuid.UUID       `json:"part_id"`
	PartNo      string          `json:"part_no"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
	CreatedAt   time.Time       `json:"created_at"`
}
