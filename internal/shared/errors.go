package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint would be violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates the request failed field validation.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates a status transition that is not allowed.
	ErrInvalidState = errors.New("invalid state transition")
)

// FieldErrors lists required or malformed fields.
type FieldErrors map[string]string

// Add records a message for field.
func (f FieldErrors) Add(field, message string) {
	f[field] = message
}

// Required records field as missing when value is blank.
func (f FieldErrors) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "is required"
	}
}

// Err returns nil when no field failed, otherwise an error wrapping ErrValidation.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	parts := make([]string, 0, len(f))
	for _, field := range sortedKeys(f) {
		parts = append(parts, field+" "+f[field])
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, "; "))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
