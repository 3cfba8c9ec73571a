package market

import (
	"math"
	"testing"

	"turtle-trader/logging"
	"turtle-trader/models"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})          {}
func (nopLogger) Info(string, ...interface{})           {}
func (nopLogger) Warning(string, ...interface{})        {}
func (nopLogger) Error(string, ...interface{})          {}
func (nopLogger) Fatal(string, ...interface{})          {}
func (nopLogger) Sync() error                           { return nil }
func (nopLogger) ChangeLogLevel(level logging.LogLevel) {}

func fullSeries(n int, price float64) models.Series {
	s := models.Series{
		High:  make([]float64, n),
		Low:   make([]float64, n),
		Close: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.High[i] = price + 1
		s.Low[i] = price - 1
		s.Close[i] = price
	}
	return s
}

func TestBuildKeepsCompleteMarkets(t *testing.T) {
	wm := NewWindowManager(22, nopLogger{})

	series := make([]models.Series, models.NumMarkets())
	for i := range series {
		series[i] = fullSeries(30, 100)
	}

	windows, dropped := wm.Build(series)
	if len(dropped) != 0 {
		t.Fatalf("dropped=%v want none", dropped)
	}
	for i, w := range windows {
		if w == nil {
			t.Fatalf("market %s has nil window", models.Market(i).Symbol())
		}
		if len(w.Close) != 22 {
			t.Fatalf("window length=%d want 22 (trimmed to lookback)", len(w.Close))
		}
	}
}

func TestBuildDropsGappedMarket(t *testing.T) {
	wm := NewWindowManager(22, nopLogger{})

	series := make([]models.Series, models.NumMarkets())
	for i := range series {
		series[i] = fullSeries(22, 100)
	}
	cl, _ := models.MarketBySymbol("CL")
	series[cl].Close[21] = math.NaN()

	windows, dropped := wm.Build(series)
	if len(dropped) != 1 || dropped[0] != "CL" {
		t.Fatalf("dropped=%v want [CL]", dropped)
	}
	if windows[cl] != nil {
		t.Fatalf("gapped market must get a nil window")
	}
	gc, _ := models.MarketBySymbol("GC")
	if windows[gc] == nil {
		t.Fatalf("complete market must survive a neighbor's gap")
	}
}

func TestBuildDropsShortSeries(t *testing.T) {
	wm := NewWindowManager(22, nopLogger{})

	series := make([]models.Series, models.NumMarkets())
	for i := range series {
		series[i] = fullSeries(22, 100)
	}
	bp, _ := models.MarketBySymbol("BP")
	series[bp] = fullSeries(10, 100)

	windows, dropped := wm.Build(series)
	if len(dropped) != 1 || dropped[0] != "BP" {
		t.Fatalf("dropped=%v want [BP]", dropped)
	}
	if windows[bp] != nil {
		t.Fatalf("short series must get a nil window")
	}
}

func TestBuildDropsMissingSeries(t *testing.T) {
	wm := NewWindowManager(22, nopLogger{})

	// The feed returned fewer series than the basket holds.
	series := make([]models.Series, 2)
	series[0] = fullSeries(22, 100)
	series[1] = fullSeries(22, 100)

	windows, dropped := wm.Build(series)
	if len(dropped) != models.NumMarkets()-2 {
		t.Fatalf("dropped %d markets, want %d", len(dropped), models.NumMarkets()-2)
	}
	if windows[0] == nil || windows[1] == nil {
		t.Fatalf("delivered series must survive")
	}
}
