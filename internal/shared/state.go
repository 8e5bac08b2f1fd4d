package shared

import "fmt"

// Transitions lists, per status, the statuses it may move to.
type Transitions[S ~string] map[S][]S

// Check returns ErrInvalidState unless from may move to to.
func (t Transitions[S]) Check(from, to S) error {
	for _, next := range t[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
}

// Terminal reports whether status has no outgoing transitions.
func (t Transitions[S]) Terminal(status S) bool {
	return len(t[status]) == 0
}
