package depth

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PriceDecimals picks a display precision for prices around anchor so that a
// step of one unit in the last digit is below 0.01% of the price.
func PriceDecimals(anchor float64) int32 {
	if !positive(anchor) {
		return 2
	}
	d := int32(math.Ceil(4 - math.Log10(anchor)))
	return min(max(d, 0), 10)
}

// FormatLabel renders the text shown on a level's price line, e.g.
// "100.25 · $1,250".
func FormatLabel(l AggregatedLevel, decimals int32) string {
	price := decimal.NewFromFloat(l.Price).StringFixed(decimals)
	usd := decimal.NewFromFloat(l.USD).Round(0).IntPart()
	return price + " · $" + message.NewPrinter(language.English).Sprintf("%d", usd)
}
