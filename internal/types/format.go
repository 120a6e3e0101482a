package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

const currency = "₹"

// FormatAmount renders v with two decimals and thousands separators, for
// example ₹1,234.50 or ₹-12.00.
func FormatAmount(v decimal.Decimal) string {
	fixed := v.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	sign := ""
	if v.Round(2).IsNegative() {
		sign = "-"
	}

	return currency + sign + group(whole) + "." + frac
}

// FormatPnL is FormatAmount with an explicit plus sign on profits.
func FormatPnL(v decimal.Decimal) string {
	if v.Round(2).IsPositive() {
		return "+" + FormatAmount(v)
	}

	return FormatAmount(v)
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder

	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}

	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}

		b.WriteString(digits[i : i+3])
	}

	return b.String()
}
