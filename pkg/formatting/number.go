package formatting

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Number renders v with thousands separators and the given decimal places.
func Number(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return printer.Sprint(v)
	}
	return printer.Sprintf(fmt.Sprintf("%%.%df", max(decimals, 0)), v)
}

// Integer renders v rounded half away from zero with thousands separators.
func Integer(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}
