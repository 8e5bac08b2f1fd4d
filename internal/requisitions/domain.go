// Package requisitions handles material issue requisitions (MIR): stock that departments
// draw from stores. Issuing a MIR posts OUT movements to the stock ledger.
package requisitions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/shared"
)

// Status is the lifecycle status of a MIR.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusIssued    Status = "Issued"
	StatusCancelled Status = "Cancelled"
)

var transitions = shared.Transitions[Status]{
	StatusPending: {StatusIssued, StatusCancelled},
}

// MIR is a material issue requisition.
type MIR struct {
	ID          uuid.UUID       `json:"id"`
	MIRNo       string          `json:"mir_no"`
	Date        time.Time       `json:"date"`
	Department  string          `json:"department"`
	RequestedBy string          `json:"requested_by"`
	Status      Status          `json:"status"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Purpose     string          `json:"purpose,omitempty"`
	Remarks     string          `json:"remarks,omitempty"`
	IssuedBy    string          `json:"issued_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []Line          `json:"lines,omitempty"`
}

// Line is one part requested on a MIR.
type Line struct {
	ID          uuid.UUID       `json:"id"`
	MIRID       uuid.UUID       `json:"mir_id"`
	PartID      uuid.UUID       `json:"part_id"`
	PartNo      string          `json:"part_no,omitempty"`
	Description string          `json:"description,omitempty"`
	QtyIssued   int             `json:"qty_issued"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
}

// Value is the line quantity priced at its rate.
func (l Line) Value() decimal.Decimal {
	return l.UnitRate.Mul(decimal.NewFromInt(int64(l.QtyIssued)))
}

// CreateInput describes MIR creation.
type CreateInput struct {
	Date        time.Time
	Department  string
	RequestedBy string
	Purpose     string
	Remarks     string
	Lines       []LineInput
}

// LineInput is a requested part. A zero rate takes the part's unit rate.
type LineInput struct {
	PartID    uuid.UUID
	QtyIssued int
	UnitRate  decimal.Decimal
}

// ListFilters narrows MIR listings.
type ListFilters = shared.ListFilters
