package view

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Priceless is shown instead of a price for lots that cannot be bought.
const Priceless = "Бесценно"

// FormatPrice renders a lot price, or Priceless when it is not set.
func FormatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return Priceless
	}
	return FormatAmount(p.Decimal)
}

// FormatAmount renders an amount of synapses with digit grouping and the
// Russian plural form of the unit: "1 синапс", "3 синапса", "1450 синапсов",
// "12 000 синапсов".
func FormatAmount(d decimal.Decimal) string {
	return groupDigits(d.String()) + " " + synapses(d)
}

func synapses(d decimal.Decimal) string {
	if !d.IsInteger() {
		return "синапса"
	}
	n := d.Abs().Mod(decimal.NewFromInt(100)).IntPart()
	switch {
	case n >= 11 && n <= 14:
		return "синапсов"
	case n%10 == 1:
		return "синапс"
	case n%10 >= 2 && n%10 <= 4:
		return "синапса"
	default:
		return "синапсов"
	}
}

// groupDigits inserts a space between every three digits of the integer
// part of a decimal string. Four-digit integer parts stay ungrouped.
func groupDigits(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) <= 4 {
		if hasFrac {
			return sign + intPart + "," + frac
		}
		return sign + intPart
	}

	var b strings.Builder
	b.WriteString(sign)
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > len(sign) {
			b.WriteByte(' ')
		}
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteString(",")
		b.WriteString(frac)
	}
	return b.String()
}
