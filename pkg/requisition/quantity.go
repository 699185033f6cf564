package requisition

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"p9e.in/requisition/models"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ClampQuantity converts user input into a stored quantity. Anything that is
// not a positive number reads as 1; fractions are truncated; the result is
// always within [MinQtyNeeded, MaxQtyNeeded].
func ClampQuantity(raw string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || v == 0 {
		return models.MinQtyNeeded
	}
	if v > models.MaxQtyNeeded {
		return models.MaxQtyNeeded
	}
	if v < models.MinQtyNeeded {
		return models.MinQtyNeeded
	}
	return int(v)
}

// ParseQuantity reads the numeric prefix of a per-batch quantity such as
// "2", "0.25" or "2 kg". Text without a leading number reads as zero.
func ParseQuantity(s string) decimal.Decimal {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(m, "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Total is the requirement of one material for the requested quantity.
func Total(qtyPerBatch string, qtyNeeded int) decimal.Decimal {
	return ParseQuantity(qtyPerBatch).Mul(decimal.NewFromInt(int64(qtyNeeded)))
}

// FormatTotal renders a total followed by its unit, if any.
func FormatTotal(total decimal.Decimal, unit string) string {
	if unit == "" {
		return total.String()
	}
	return total.String() + " " + unit
}
