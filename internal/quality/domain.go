// Package quality records quality inspections of received GRR lines.
package quality

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/shared"
)

// Status is the lifecycle status of an inspection.
type Status string

const (
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
)

var transitions = shared.Transitions[Status]{
	StatusInProgress: {StatusCompleted, StatusFailed},
}

// Result is the outcome of one test.
type Result string

const (
	Pass Result = "Pass"
	Fail Result = "Fail"
)

// TestResults holds the three standard test outcomes.
type TestResults struct {
	Dimensional Result `json:"dimensional"`
	Visual      Result `json:"visual"`
	Mechanical  Result `json:"mechanical"`
}

// AllPassed reports whether no test failed.
func (r TestResults) AllPassed() bool {
	return r.Dimensional == Pass && r.Visual == Pass && r.Mechanical == Pass
}

// Inspection is a quality inspection of one GRR line.
type Inspection struct {
	ID                uuid.UUID   `json:"id"`
	InspectionNo      string      `json:"inspection_no"`
	GRRPartID         uuid.UUID   `json:"grr_part_id"`
	GRRNo             string      `json:"grr_no,omitempty"`
	PartNo            string      `json:"part_no,omitempty"`
	PartDescription   string      `json:"part_description,omitempty"`
	InspectorName     string      `json:"inspector_name"`
	InspectionDate    time.Time   `json:"inspection_date"`
	BatchNo           string      `json:"batch_no,omitempty"`
	QuantityInspected int         `json:"quantity_inspected"`
	QuantityAccepted  int         `json:"quantity_accepted"`
	QuantityRejected  int         `json:"quantity_rejected"`
	DefectType        string      `json:"defect_type,omitempty"`
	TestParameters    string      `json:"test_parameters,omitempty"`
	Results           TestResults `json:"test_results"`
	Status            Status      `json:"status"`
	Remarks           string      `json:"remarks,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// GRRLine is the received line an inspection refers to.
type GRRLine struct {
	ID         uuid.UUID
	GRRNo      string
	PartNo     string
	ChallanQty int
}

// CreateInput describes a new inspection.
type CreateInput struct {
	GRRPartID         uuid.UUID
	InspectorName     string
	InspectionDate    time.Time
	BatchNo           string
	QuantityInspected int
	QuantityAccepted  int
	QuantityRejected  int
	DefectType        string
	TestParameters    string
	Results           TestResults
	Remarks           string
}

// Summary aggregates inspections.
type Summary struct {
	Total             int             `json:"total"`
	InProgress        int             `json:"in_progress"`
	Completed         int             `json:"completed"`
	Failed            int             `json:"failed"`
	QuantityInspected int             `json:"quantity_inspected"`
	QuantityAccepted  int             `json:"quantity_accepted"`
	PassRate          decimal.Decimal `json:"pass_rate"`
}

// ListFilters narrows inspection listings.
type ListFilters = shared.ListFilters
