package indicators

import (
	"math"
	"testing"

	"turtle-trader/models"
)

// flatWindow builds a window of n bars with constant close and a fixed
// high/low band around it.
func flatWindow(n int, close, band float64) *models.Window {
	w := &models.Window{
		High:  make([]float64, n),
		Low:   make([]float64, n),
		Close: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		w.High[i] = close + band
		w.Low[i] = close - band
		w.Close[i] = close
	}
	return w
}

func TestChannelExcludesLatestBar(t *testing.T) {
	w := flatWindow(22, 100, 0)
	// A breakout on the latest bar must not lift the channel it is compared
	// against.
	w.High[21] = 105
	w.Low[21] = 95
	w.Close[21] = 105

	ch := ChannelFor(w, 20, 55)
	if ch.TwentyDayHigh != 100 {
		t.Fatalf("TwentyDayHigh=%f want 100 (latest bar must be excluded)", ch.TwentyDayHigh)
	}
	if ch.TwentyDayLow != 100 {
		t.Fatalf("TwentyDayLow=%f want 100", ch.TwentyDayLow)
	}
}

func TestChannelWindowBoundaries(t *testing.T) {
	// 60 bars; the 55-day channel spans indices [4,59), the 20-day channel
	// [39,59). Spikes placed one slot outside each boundary must not count;
	// spikes on the boundary must.
	w := flatWindow(60, 100, 0)

	w.High[3] = 300 // outside the 55-day window
	w.High[4] = 200 // first bar inside the 55-day window
	w.Low[38] = 10  // outside the 20-day window
	w.Low[39] = 50  // first bar inside the 20-day window

	ch := ChannelFor(w, 20, 55)
	if ch.FiftyFiveDayHigh != 200 {
		t.Fatalf("FiftyFiveDayHigh=%f want 200", ch.FiftyFiveDayHigh)
	}
	if ch.TwentyDayLow != 50 {
		t.Fatalf("TwentyDayLow=%f want 50", ch.TwentyDayLow)
	}
	// The 55-day low window includes index 38.
	if ch.FiftyFiveDayLow != 10 {
		t.Fatalf("FiftyFiveDayLow=%f want 10", ch.FiftyFiveDayLow)
	}
}

func TestChannelClampsShortWindow(t *testing.T) {
	// With a 22-bar window the 55-day channel can only see the 21 prior
	// bars; it degrades to the full available history instead of failing.
	w := flatWindow(22, 100, 0)
	w.High[0] = 150

	ch := ChannelFor(w, 20, 55)
	if ch.FiftyFiveDayHigh != 150 {
		t.Fatalf("FiftyFiveDayHigh=%f want 150 (clamped to available history)", ch.FiftyFiveDayHigh)
	}
	if ch.TwentyDayHigh != 100 {
		t.Fatalf("TwentyDayHigh=%f want 100 (bar 0 is outside the 20-day window)", ch.TwentyDayHigh)
	}
}

func TestATRConstantRange(t *testing.T) {
	// Constant true range of 2 smooths to an ATR of exactly 2.
	w := flatWindow(21, 100, 1)
	got := ATR(w, 20)
	if math.Abs(got-2) > 1e-9 {
		t.Fatalf("ATR=%f want 2", got)
	}
}

func TestATRTooShortWindow(t *testing.T) {
	w := flatWindow(20, 100, 1)
	if got := ATR(w, 20); got != 0 {
		t.Fatalf("ATR=%f want 0 for a window shorter than period+1", got)
	}
}
