package depth

// AnchorPrice picks the reference price for bucketing and offsets: the mid
// price when it is positive, otherwise the last candle close, otherwise the
// first valid level price, otherwise 1.
func AnchorPrice(mid *float64, candles []Candle, levels []LimitLevel) float64 {
	if mid != nil && positive(*mid) {
		return *mid
	}
	if n := len(candles); n > 0 && positive(candles[n-1].Close) {
		return candles[n-1].Close
	}
	for _, lvl := range levels {
		if positive(lvl.Price) {
			return lvl.Price
		}
	}
	return 1
}
