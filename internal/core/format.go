package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when CURRENCY_LOCALE is unset or unparsable.
var DefaultLocale = language.MustParse("id-ID")

var currencySymbols = map[string]string{
	"IDR": "Rp",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// ParseLocale falls back to DefaultLocale on error.
func ParseLocale(s string) language.Tag {
	if strings.TrimSpace(s) == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLocale
	}
	return tag
}

// FormatCurrency renders m with the locale's grouping and currency symbol,
// e.g. "Rp 1.000.000" for id-ID. Fractions are shown only when present.
func FormatCurrency(m Money, tag language.Tag) string {
	digits := groupDigits(m.Decimal.Abs().Round(2).String(), tag)

	symbol := ""
	if unit, conf := currency.FromTag(tag); conf != language.No {
		symbol = currencySymbols[unit.String()]
		if symbol == "" {
			symbol = unit.String()
		}
	}
	out := digits
	if symbol != "" {
		out = symbol + " " + digits
	}
	if m.IsNegative() {
		out = "-" + out
	}
	return out
}

// groupDigits lays out a plain decimal string with the locale's separators.
// The digits come from the decimal itself so large amounts keep full precision.
func groupDigits(plain string, tag language.Tag) string {
	group, point := separators(tag)
	intPart, frac, _ := strings.Cut(plain, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(group)
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString(point)
		b.WriteString(frac)
	}
	return b.String()
}

// separators reads the grouping and decimal marks off a sample rendered by
// the locale's printer.
func separators(tag language.Tag) (group, point string) {
	sample := message.NewPrinter(tag).Sprint(number.Decimal(1234.5, number.MinFractionDigits(1)))
	one, two := strings.Index(sample, "1"), strings.Index(sample, "2")
	four, five := strings.Index(sample, "4"), strings.LastIndex(sample, "5")
	if one < 0 || two < one || four < two || five < four {
		return ",", "."
	}
	return sample[one+1 : two], sample[four+1 : five]
}

// FormatDate renders d as dd/mm/yyyy.
func FormatDate(d Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format("02/01/2006")
}

// CategoryLabel title-cases a category for display.
func CategoryLabel(category string, tag language.Tag) string {
	return cases.Title(tag).String(NormalizeCategory(category))
}
