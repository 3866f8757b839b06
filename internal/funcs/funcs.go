package funcs

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var TemplateFuncs = map[string]any{
	"title":        title,
	"shortAddress": shortAddress,
	"formatAmount": formatAmount,
	"formatTime":   formatTime,
}

func title(s string) string {
	return cases.Title(language.English).String(s)
}

// shortAddress renders 0x1234...abcd style wallet addresses.
func shortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}

	return address[:6] + "..." + address[len(address)-4:]
}

// formatAmount groups the integer digits and keeps the significant fraction,
// so "1234567.50000000" renders as "1,234,567.5".
func formatAmount(v any) string {
	var d decimal.Decimal

	switch value := v.(type) {
	case decimal.Decimal:
		d = value
	case string:
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return value
		}
		d = parsed
	default:
		return fmt.Sprint(v)
	}

	whole := d.Truncate(0)
	fraction := d.Sub(whole).Abs()

	out := printer.Sprintf("%d", whole.IntPart())
	if d.IsNegative() && whole.IsZero() {
		out = "-" + out
	}

	if !fraction.IsZero() {
		out += strings.TrimPrefix(fraction.String(), "0")
	}

	return out
}

func formatTime(format string, t time.Time) string {
	return t.Format(format)
}
