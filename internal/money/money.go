// Package money formats amounts for display.
package money

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders currency amounts with a fixed symbol and locale grouping.
type Formatter struct {
	symbol  string
	printer *message.Printer
}

// NewFormatter builds a Formatter. An unknown locale falls back to en-US.
func NewFormatter(symbol, locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return Formatter{symbol: symbol, printer: message.NewPrinter(tag)}
}

// Default formats dollars with comma grouping.
func Default() Formatter {
	return NewFormatter("$", "en-US")
}

// Format renders v as e.g. "$1,000.00" or "-$42.50". The amount is rounded
// half away from zero to cents.
func (f Formatter) Format(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	neg := d.IsNegative()
	d = d.Abs()
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()
	p := f.printer
	if p == nil {
		p = message.NewPrinter(language.AmericanEnglish)
	}
	out := group(whole.String(), separator(p)) + fmt.Sprintf(".%02d", cents)
	if neg {
		return "-" + f.symbol + out
	}
	return f.symbol + out
}

// separator is the locale's thousands separator, taken from how p prints 1000.
func separator(p *message.Printer) string {
	sep := strings.Trim(p.Sprintf("%d", 1000), "01")
	if strings.IndexFunc(sep, unicode.IsDigit) >= 0 {
		return ","
	}
	return sep
}

// group inserts sep every three digits from the right.
func group(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatOptional renders nil as the zero amount.
func (f Formatter) FormatOptional(v *float64) string {
	if v == nil {
		return f.Format(0)
	}
	return f.Format(*v)
}

// AxisTick abbreviates large values for chart axes: 1.5B, 2.0M, 12K.
func AxisTick(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.0fK", v/1_000)
	}
	s := decimal.NewFromFloat(v).Round(2).String()
	return strings.TrimSuffix(s, ".00")
}
