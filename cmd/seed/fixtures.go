package main

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the seed data set. Parts, vendors and departments are referenced by code.
type Fixtures struct {
	Vendors     []VendorFixture     `yaml:"vendors"`
	Parts       []PartFixture       `yaml:"parts"`
	Departments []DepartmentFixture `yaml:"departments"`
	Rates       []RateFixture       `yaml:"rates"`
	Receipts    []ReceiptFixture    `yaml:"receipts"`
	Issues      []IssueFixture      `yaml:"issues"`
}

type VendorFixture struct {
	Code         string `yaml:"code"`
	Name         string `yaml:"name"`
	Address      string `yaml:"address"`
	Phone        string `yaml:"phone"`
	Email        string `yaml:"email"`
	PaymentTerms string `yaml:"payment_terms"`
	Rating       string `yaml:"rating"`
}

type PartFixture struct {
	PartNo        string `yaml:"part_no"`
	Description   string `yaml:"description"`
	Category      string `yaml:"category"`
	UnitOfMeasure string `yaml:"uom"`
	UnitRate      string `yaml:"unit_rate"`
	OpeningStock  int    `yaml:"opening_stock"`
	MinimumStock  int    `yaml:"minimum_stock"`
	OrderQuantity int    `yaml:"order_quantity"`
	ReorderLevel  int    `yaml:"reorder_level"`
	MaxStockLevel int    `yaml:"max_stock_level"`
	LeadTimeDays  int    `yaml:"lead_time_days"`
}

type DepartmentFixture struct {
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	Head       string `yaml:"head"`
	CostCenter string `yaml:"cost_center"`
}

type RateFixture struct {
	Vendor string `yaml:"vendor"`
	Part   string `yaml:"part"`
	Rate   string `yaml:"rate"`
	From   string `yaml:"from"`
}

// ReceiptFixture is a GRR that is inspected and accepted. A line without accepted is taken in full.
type ReceiptFixture struct {
	Vendor      string        `yaml:"vendor"`
	ChallanDate string        `yaml:"challan_date"`
	Transporter string        `yaml:"transporter"`
	Lines       []ReceiptLine `yaml:"lines"`
}

type ReceiptLine struct {
	Part     string `yaml:"part"`
	Challan  int    `yaml:"challan"`
	Accepted *int   `yaml:"accepted"`
}

// IssueFixture is a MIR that is raised and issued.
type IssueFixture struct {
	Department  string      `yaml:"department"`
	Date        string      `yaml:"date"`
	RequestedBy string      `yaml:"requested_by"`
	Purpose     string      `yaml:"purpose"`
	Lines       []IssueLine `yaml:"lines"`
}

type IssueLine struct {
	Part string `yaml:"part"`
	Qty  int    `yaml:"qty"`
}

// LoadFixtures parses the file at path, or the embedded set when path is empty.
func LoadFixtures(path string) (Fixtures, error) {
	data := defaultFixtures
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Fixtures{}, fmt.Errorf("seed: read fixtures: %w", err)
		}
		data = raw
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("seed: parse fixtures: %w", err)
	}
	return f, nil
}
