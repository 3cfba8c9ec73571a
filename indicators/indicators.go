package indicators

import (
	"github.com/markcheno/go-talib"

	"turtle-trader/models"
)

// ChannelFor calculates the rolling breakout channel for one market window.
// Each level spans the short (or long) bars immediately preceding, but not
// including, the latest bar, and clamps to the available history when the
// window is shorter than the lookback.
func ChannelFor(w *models.Window, short, long int) models.Channel {
	n := len(w.Close)
	if n < 2 {
		return models.Channel{}
	}
	prior := n - 1 // everything before the latest bar
	return models.Channel{
		TwentyDayHigh:    rollingMax(w.High[:prior], short),
		TwentyDayLow:     rollingMin(w.Low[:prior], short),
		FiftyFiveDayHigh: rollingMax(w.High[:prior], long),
		FiftyFiveDayLow:  rollingMin(w.Low[:prior], long),
	}
}

// ATR calculates the latest average true range over the trailing period+1
// bars (true range needs a prior close). Returns 0 when the window is too
// short to produce a value.
func ATR(w *models.Window, period int) float64 {
	need := period + 1
	n := len(w.Close)
	if period <= 0 || n < need {
		return 0
	}
	out := talib.Atr(w.High[n-need:], w.Low[n-need:], w.Close[n-need:], period)
	if len(out) == 0 {
		return 0
	}
	return out[len(out)-1]
}

// rollingMax returns the maximum of the last n values, clamped to len(vals).
func rollingMax(vals []float64, n int) float64 {
	if len(vals) == 0 {
		return 0
	}
	start := len(vals) - n
	if start < 0 {
		start = 0
	}
	max := vals[start]
	for _, v := range vals[start+1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// rollingMin returns the minimum of the last n values, clamped to len(vals).
func rollingMin(vals []float64, n int) float64 {
	if len(vals) == 0 {
		return 0
	}
	start := len(vals) - n
	if start < 0 {
		start = 0
	}
	min := vals[start]
	for _, v := range vals[start+1:] {
		if v < min {
			min = v
		}
	}
	return min
}
