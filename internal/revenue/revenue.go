// Package revenue parses free-form revenue declarations into exact cent amounts.
package revenue

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed reports a value that could not be interpreted as a nonnegative
// dollar amount. Callers keep the project and record a diagnostic; the amount
// falls back to zero.
var ErrMalformed = errors.New("revenue: malformed value")

// Amounts beyond this are treated as malformed. Keeps cents well inside int64
// and float64 integer precision.
const maxDollars = 1e12

// Amount is a dollar amount in cents. Addition is exact, so aggregate totals
// do not depend on summation order.
type Amount int64

// Dollars returns the amount as a float dollar value for rate computations.
func (a Amount) Dollars() float64 {
	return float64(a) / 100
}

// String renders the amount as a dollar figure with thousands grouping,
// e.g. $12,500.00.
func (a Amount) String() string {
	cents := int64(a)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, group(cents/100), cents%100)
}

// MarshalJSON emits the amount as a JSON dollar number: whole amounts as
// integers, fractional ones with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a%100 == 0 {
		return []byte(strconv.FormatInt(int64(a)/100, 10)), nil
	}
	return []byte(strconv.FormatFloat(float64(a)/100, 'f', 2, 64)), nil
}

// UnmarshalJSON accepts a JSON dollar number and rounds it to cents.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("revenue: decode amount: %w", err)
	}
	*a = Amount(math.Round(f * 100))
	return nil
}

// Parse interprets a raw manifest revenue value. Accepted shapes: absent/nil
// (zero), JSON numbers, and strings like "$12,500", "21K", "1.2M", "7500".
// Anything else, including negative amounts, is ErrMalformed.
func Parse(v any) (Amount, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		return parseString(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, ErrMalformed
		}
		return fromDollars(f)
	case float64:
		return fromDollars(t)
	case int:
		return fromDollars(float64(t))
	case int64:
		return fromDollars(float64(t))
	default:
		return 0, ErrMalformed
	}
}

// parseString normalizes a textual revenue declaration. Recognized formatting
// is limited to a currency sign, thousands commas, inner spaces, and a
// trailing K/M multiplier; any other non-numeric character means the value is
// malformed rather than silently stripped to a partial number.
func parseString(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformed
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1e3
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1e6
		s = s[:len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == '$', r == ',', r == ' ':
			// formatting, drop
		default:
			return 0, ErrMalformed
		}
	}
	if b.Len() == 0 {
		return 0, ErrMalformed
	}

	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, ErrMalformed
	}
	return fromDollars(f * mult)
}

// fromDollars converts a dollar figure to cents, rounding half away from
// zero. Negative and non-finite values are malformed.
func fromDollars(d float64) (Amount, error) {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, ErrMalformed
	}
	if d < 0 || d > maxDollars {
		return 0, ErrMalformed
	}
	return Amount(math.Round(d * 100)), nil
}

// group inserts thousands separators into a nonnegative integer.
func group(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
