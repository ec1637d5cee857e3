// Package period parses the ISO-8601 periods used by automatic event rules,
// such as "P7D" or "P1M2DT12H", and applies them with calendar arithmetic.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	isoperiod "github.com/rickb777/period"
)

// ErrInvalidPeriod indicates a value that is not an ISO-8601 period.
var ErrInvalidPeriod = errors.New("invalid ISO-8601 period")

// Period is a non-negative whole-number ISO-8601 period.
type Period struct {
	p   isoperiod.Period
	raw string
}

// Parse parses an ISO-8601 period. Each designator may appear once, in
// Y, M, W, D, T, H, M, S order, with a whole number. Signs and fractions are
// rejected.
func Parse(value string) (Period, error) {
	s := strings.ToUpper(strings.TrimSpace(value))
	if !wellFormed(s) {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, value)
	}
	p, err := isoperiod.Parse(s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q: %v", ErrInvalidPeriod, value, err)
	}
	return Period{p: p, raw: s}, nil
}

func wellFormed(s string) bool {
	if len(s) < 3 || s[0] != 'P' {
		return false
	}
	designators := "YMWD"
	last := -1
	digits := 0
	seen := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == 'T':
			if designators == "HMS" || digits > 0 || i == len(s)-1 {
				return false
			}
			designators, last = "HMS", -1
		default:
			idx := strings.IndexByte(designators, c)
			if idx <= last || digits == 0 {
				return false
			}
			last, digits, seen = idx, 0, true
		}
	}
	return digits == 0 && seen
}

// AddTo returns t shifted forward by the period. Date components follow the
// calendar; the time part is an exact duration.
func (p Period) AddTo(t time.Time) time.Time {
	shifted, _ := p.p.AddTo(t)
	return shifted
}

// IsZero reports whether the period has no length.
func (p Period) IsZero() bool {
	return p.p.IsZero()
}

func (p Period) String() string {
	return p.raw
}
