package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/shared"
)

// MovementType enumerates ledger directions.
type MovementType string

const (
	// MovementIn increases stock.
	MovementIn MovementType = "IN"
	// MovementOut decreases stock.
	MovementOut MovementType = "OUT"
)

// Valid reports whether t is IN or OUT.
func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut
}

// ReferenceType names the document that caused a movement.
type ReferenceType string

const (
	ReferenceGRR        ReferenceType = "GRR"
	ReferenceMIR        ReferenceType = "MIR"
	ReferenceAdjustment ReferenceType = "ADJUSTMENT"
)

// Valid reports whether r is a known reference type.
func (r ReferenceType) Valid() bool {
	switch r {
	case ReferenceGRR, ReferenceMIR, ReferenceAdjustment:
		return true
	}
	return false
}

// Movement is one append-only ledger entry.
type Movement struct {
	ID            uuid.UUID       `json:"id"`
	PartID        uuid.UUID       `json:"part_id"`
	PartNo        string          `json:"part_no,omitempty"`
	Description   string          `json:"part_description,omitempty"`
	Type          MovementType    `json:"movement_type"`
	Quantity      int             `json:"quantity"`
	ReferenceType ReferenceType   `json:"reference_type"`
	ReferenceID   *uuid.UUID      `json:"reference_id,omitempty"`
	MovementDate  time.Time       `json:"movement_date"`
	UnitRate      decimal.Decimal `json:"unit_rate"`
	Remarks       string          `json:"remarks,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Signed returns the quantity with the sign of its direction.
func (m Movement) Signed() int {
	if m.Type == MovementOut {
		return -m.Quantity
	}
	return m.Quantity
}

// MovementInput describes a movement to post.
type MovementInput struct {
	PartID        uuid.UUID
	Type          MovementType
	Quantity      int
	ReferenceType ReferenceType
	ReferenceID   *uuid.UUID
	MovementDate  time.Time
	UnitRate      decimal.Decimal
	Remarks       string
	CreatedBy     string
}

func (in MovementInput) validate() error {
	fields := shared.FieldErrors{}
	if in.PartID == uuid.Nil {
		fields.Add("part_id", "is required")
	}
	if !in.Type.Valid() {
		fields.Add("movement_type", "must be IN or OUT")
	}
	if in.Quantity <= 0 {
		fields.Add("quantity", "must be greater than zero")
	}
	if !in.ReferenceType.Valid() {
		fields.Add("reference_type", "must be GRR, MIR or ADJUSTMENT")
	}
	if in.UnitRate.IsNegative() {
		fields.Add("unit_rate", "must not be negative")
	}
	return fields.Err()
}

// PartStock is the locked stock state of one part.
type PartStock struct {
	PartID       uuid.UUID
	PartNo       string
	OpeningStock int
	CurrentStock int
	UnitRate     decimal.Decimal
}

// Totals sums a part's movements per direction.
type Totals struct {
	In  int
	Out int
}

// Expected derives current stock from opening stock and the ledger totals.
func (t Totals) Expected(opening int) int {
	return opening + t.In - t.Out
}

// AdjustmentInput describes a manual stock correction.
type AdjustmentInput struct {
	PartID         uuid.UUID
	Type           MovementType
	Quantity       int
	UnitRate       decimal.Decimal
	MovementDate   time.Time
	Remarks        string
	CreatedBy      string
	IdempotencyKey string
}

// MovementFilter narrows ledger listings.
type MovementFilter struct {
	PartID        *uuid.UUID
	Type          MovementType
	ReferenceType ReferenceType
	ReferenceID   *uuid.UUID
	From          time.Time
	To            time.Time
	Limit         int
}

// StockCardEntry is a movement with the running balance after it.
type StockCardEntry struct {
	MovementID    uuid.UUID     `json:"movement_id"`
	MovementDate  time.Time     `json:"movement_date"`
	ReferenceType ReferenceType `json:"reference_type"`
	ReferenceID   *uuid.UUID    `json:"reference_id,omitempty"`
	QtyIn         int           `json:"qty_in"`
	QtyOut        int           `json:"qty_out"`
	Balance       int           `json:"balance"`
	Remarks       string        `json:"remarks,omitempty"`
}

// StockCard lists a part's movements from its opening stock.
type StockCard struct {
	PartID       uuid.UUID        `json:"part_id"`
	PartNo       string           `json:"part_no"`
	OpeningStock int              `json:"opening_stock"`
	CurrentStock int              `json:"current_stock"`
	Entries      []StockCardEntry `json:"entries"`
}

// Drift reports a part whose stored stock disagrees with its ledger.
type Drift struct {
	PartID   uuid.UUID `json:"part_id"`
	PartNo   string    `json:"part_no"`
	Stored   int       `json:"stored"`
	Expected int       `json:"expected"`
	Fixed    bool      `json:"fixed"`
}

// ReconcileReport summarises a reconciliation pass.
type ReconcileReport struct {
	Checked int       `json:"checked"`
	Drifts  []Drift   `json:"drifts"`
	RanAt   time.Time `json:"ran_at"`
}

// ErrNegativeStock is returned when a movement would leave a part below zero.
var ErrNegativeStock = fmt.Errorf("%w: inventory: negative stock not allowed", shared.ErrInvalidState)

// ErrPartNotFound is returned when a movement references an unknown part.
var ErrPartNotFound = fmt.Errorf("%w: inventory: part", shared.ErrNotFound)

var errNoLedger = errors.New("inventory: ledger transaction required")
