// Package amount parses and formats Indian-style magnitude amounts (k, L/lakh, Cr/crore).
package amount

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"startup_valuation/pkg/core/apperr"
)

const (
	Thousand = 1e3
	Lakh     = 1e5
	Crore    = 1e7
)

var amountPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?|\.\d+)\s*(k|lakh|l|crore|cr)?$`)

var suffixMultipliers = map[string]float64{
	"":      1,
	"k":     Thousand,
	"l":     Lakh,
	"lakh":  Lakh,
	"cr":    Crore,
	"crore": Crore,
}

// Parse converts "1.5Cr", "12L", "85k" or "2,50,000" to a base-unit value.
// Every malformed input fails with the same apperr.ErrInvalidAmount kind.
func Parse(input string) (float64, error) {
	clean := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(input)), ",", "")
	m := amountPattern.FindStringSubmatch(clean)
	if m == nil {
		return 0, apperr.InvalidAmount(input)
	}
	base, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsInf(base, 0) {
		return 0, apperr.InvalidAmount(input)
	}
	return base * suffixMultipliers[m[2]], nil
}

// Input is a request amount that may arrive as a JSON string or a JSON number.
type Input struct {
	Text   string
	Number *float64
}

func (in *Input) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*in = Input{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = Input{Text: s}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*in = Input{Number: &f}
	return nil
}

func (in Input) MarshalJSON() ([]byte, error) {
	if in.Number != nil {
		return json.Marshal(*in.Number)
	}
	return json.Marshal(in.Text)
}

// IsZero reports whether nothing was supplied.
func (in Input) IsZero() bool {
	return in.Number == nil && strings.TrimSpace(in.Text) == ""
}

// Value resolves the input: numbers pass through, strings go through Parse.
func (in Input) Value() (float64, error) {
	if in.Number != nil {
		return *in.Number, nil
	}
	return Parse(in.Text)
}

// FormatINR renders a rupee amount with the largest fitting unit.
func FormatINR(num float64) string {
	switch {
	case num >= Crore:
		return fmt.Sprintf("₹%.1f Cr", num/Crore)
	case num >= Lakh:
		return fmt.Sprintf("₹%.1f L", num/Lakh)
	case num >= Thousand:
		return fmt.Sprintf("₹%.1f k", num/Thousand)
	}
	if num == math.Trunc(num) {
		return "₹" + strconv.FormatFloat(num, 'f', 0, 64)
	}
	return "₹" + strconv.FormatFloat(num, 'f', 2, 64)
}
