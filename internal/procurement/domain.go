package procurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/shared"
)

// GRRStatus is the lifecycle status of a goods received report.
type GRRStatus string

const (
	GRRPendingInspection GRRStatus = "Pending Inspection"
	GRRQualityCheck      GRRStatus = "Quality Check"
	GRRAccepted          GRRStatus = "Accepted"
	GRRRejected          GRRStatus = "Rejected"
)

var grrTransitions = shared.Transitions[GRRStatus]{
	GRRPendingInspection: {GRRQualityCheck},
	GRRQualityCheck:      {GRRAccepted, GRRRejected},
}

// POStatus is the lifecycle status of a purchase order.
type POStatus string

const (
	PODraft     POStatus = "Draft"
	POApproved  POStatus = "Approved"
	POClosed    POStatus = "Closed"
	POCancelled POStatus = "Cancelled"
)

var poTransitions = shared.Transitions[POStatus]{
	PODraft:    {POApproved, POCancelled},
	POApproved: {POClosed, POCancelled},
}

// GRR records goods received against a delivery challan.
type GRR struct {
	ID              uuid.UUID       `json:"id"`
	GRRNo           string          `json:"grr_no"`
	ChallanDate     time.Time       `json:"challan_date"`
	TransporterName string          `json:"transporter_name"`
	POReference     string          `json:"po_reference"`
	VendorID        *uuid.UUID      `json:"vendor_id,omitempty"`
	VendorName      string          `json:"vendor_name,omitempty"`
	Status          GRRStatus       `json:"status"`
	TotalValue      decimal.Decimal `json:"total_value"`
	Remarks         string          `json:"remarks,omitempty"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Lines           []GRRLine       `json:"lines,omitempty"`
}

// GRRLine is one part received on a GRR.
type GRRLine struct {
	ID          uuid.UUID       `json:"id"`
	GRRID       uuid.UUID       `json:"grr_id"`
	PartID      uuid.UUID       `json:"part_id"`
	PartNo      string          `json:"part_no,omitempty"`
	Description string          `json:"description,omitempty"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
	ChallanQty  int             `json:"challan_qty"`
	AcceptedQty int             `json:"accepted_qty"`
	RejectedQty int             `json:"rejected_qty"`
}

// Inspected reports whether results were recorded for the line.
func (l GRRLine) Inspected() bool {
	return l.AcceptedQty+l.RejectedQty > 0
}

// CreateGRRInput describes GRR creation.
type CreateGRRInput struct {
	ChallanDate     time.Time
	TransporterName string
	POReference     string
	VendorID        *uuid.UUID
	Remarks         string
	CreatedBy       string
	Lines           []GRRLineInput
}

// GRRLineInput is a received part and its challan quantity.
type GRRLineInput struct {
	PartID     uuid.UUID
	ChallanQty int
}

// LineResult records the inspection outcome of one GRR line.
type LineResult struct {
	LineID      uuid.UUID
	AcceptedQty int
	RejectedQty int
}

// PurchaseOrder is an order placed with a vendor.
type PurchaseOrder struct {
	ID              uuid.UUID       `json:"id"`
	PONo            string          `json:"po_no"`
	PODate          time.Time       `json:"po_date"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	VendorName      string          `json:"vendor_name,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          POStatus        `json:"status"`
	DeliveryDate    *time.Time      `json:"delivery_date,omitempty"`
	TermsConditions string          `json:"terms_conditions,omitempty"`
	CreatedBy       string          `json:"created_by,omitempty"`
	ApprovedBy      string          `json:"approved_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []POItem        `json:"items,omitempty"`
}

// POItem is one ordered part.
type POItem struct {
	ID             uuid.UUID       `json:"id"`
	POID           uuid.UUID       `json:"po_id"`
	PartID         uuid.UUID       `json:"part_id"`
	PartNo         string          `json:"part_no,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitRate       decimal.Decimal `json:"unit_rate"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DeliveryDate   *time.Time      `json:"delivery_date,omitempty"`
	Specifications string          `json:"specifications,omitempty"`
}

// CreatePOInput describes purchase order creation.
type CreatePOInput struct {
	PODate          time.Time
	VendorID        uuid.UUID
	DeliveryDate    *time.Time
	TermsConditions string
	CreatedBy       string
	Items           []POItemInput
}

// POItemInput is one requested item. A zero unit rate takes the vendor's effective rate.
type POItemInput struct {
	PartID         uuid.UUID
	Quantity       int
	UnitRate       decimal.Decimal
	DeliveryDate   *time.Time
	Specifications string
}

// ListFilters narrows GRR and purchase order listings.
type ListFilters = shared.ListFilters
