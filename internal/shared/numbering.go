package shared

import (
	"fmt"
	"time"
)

// Document number prefixes.
const (
	PrefixGRR        = "GRR"
	PrefixMIR        = "MIR"
	PrefixInspection = "QC"
	PrefixPO         = "PO"
)

// DocumentNumber formats PREFIX-YEAR-NNN where NNN is existing+1, zero padded to three digits.
func DocumentNumber(prefix string, year, existing int) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, existing+1)
}

// NumberPrefix returns the PREFIX-YEAR- stem shared by every number issued in that year.
func NumberPrefix(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%d-", prefix, at.Year())
}
