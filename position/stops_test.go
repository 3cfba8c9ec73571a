package position

import (
	"errors"
	"fmt"
	"testing"

	"turtle-trader/logging"
	"turtle-trader/models"
	"turtle-trader/order"
	"turtle-trader/risk"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})          {}
func (nopLogger) Info(string, ...interface{})           {}
func (nopLogger) Warning(string, ...interface{})        {}
func (nopLogger) Error(string, ...interface{})          {}
func (nopLogger) Fatal(string, ...interface{})          {}
func (nopLogger) Sync() error                           { return nil }
func (nopLogger) ChangeLogLevel(level logging.LogLevel) {}

type stopCall struct {
	contract models.Contract
	stop     float64
}

// recordingBroker captures stop submissions and hands out sequential ids.
type recordingBroker struct {
	stops   []stopCall
	fail    bool
	decline bool
}

func (b *recordingBroker) SubmitLimitOrder(models.Contract, int, float64) (string, error) {
	return "", nil
}

func (b *recordingBroker) SubmitStopOrder(c models.Contract, stop float64) (string, error) {
	if b.fail {
		return "", errors.New("rejected by venue")
	}
	if b.decline {
		return "", nil
	}
	b.stops = append(b.stops, stopCall{contract: c, stop: stop})
	return fmt.Sprintf("stop-%d", len(b.stops)), nil
}

func (b *recordingBroker) OrderState(string) (models.OrderReport, error) {
	return models.OrderReport{Status: models.OrderPending}, nil
}

func (b *recordingBroker) OpenOrderContracts() (map[string]bool, error) {
	return map[string]bool{}, nil
}

// fixedPortfolio reports a static set of open lots.
type fixedPortfolio struct {
	lots []models.PositionLot
}

func (p *fixedPortfolio) Cash() float64                       { return 100_000 }
func (p *fixedPortfolio) Equity() float64                     { return 100_000 }
func (p *fixedPortfolio) StartingEquity() float64             { return 100_000 }
func (p *fixedPortfolio) OpenPositions() []models.PositionLot { return p.lots }

func lot(root string, qty int, basis float64) models.PositionLot {
	return models.PositionLot{
		Contract:  models.Contract{ID: root + "Z6", Root: root, Multiplier: 1000},
		Quantity:  qty,
		CostBasis: basis,
	}
}

func newManager(broker *recordingBroker, portfolio *fixedPortfolio) *StopManager {
	tracker := order.NewTracker(broker, risk.NewState(100_000), nopLogger{})
	return NewStopManager(broker, portfolio, tracker, nopLogger{}, 2)
}

// windowsWithClose builds a full windows slice with one market priced.
func windowsWithClose(m models.Market, close float64) []*models.Window {
	windows := make([]*models.Window, models.NumMarkets())
	windows[m] = &models.Window{
		High:  []float64{close},
		Low:   []float64{close},
		Close: []float64{close},
	}
	return windows
}

func atrFor(m models.Market, a float64) []float64 {
	atr := make([]float64, models.NumMarkets())
	atr[m] = a
	return atr
}

func TestStopPolicyBranches(t *testing.T) {
	cl, _ := models.MarketBySymbol("CL")

	cases := []struct {
		name     string
		qty      int
		basis    float64
		close    float64
		priced   bool
		wantStop float64
	}{
		// ATR 3, multiplier 2 -> offset 6.
		{"long in profit trails price", 2, 90, 100, true, 94},
		{"long under water anchors basis", 2, 110, 100, true, 104},
		{"long no price anchors basis", 2, 110, 0, false, 104},
		{"short in profit trails price", -2, 110, 100, true, 106},
		{"short under water anchors basis", -2, 90, 100, true, 96},
		{"short no price anchors basis", -2, 90, 0, false, 96},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			broker := &recordingBroker{}
			sm := newManager(broker, &fixedPortfolio{lots: []models.PositionLot{lot("CL", tc.qty, tc.basis)}})

			windows := make([]*models.Window, models.NumMarkets())
			if tc.priced {
				windows = windowsWithClose(cl, tc.close)
			}

			placed := sm.PlaceStops(windows, atrFor(cl, 3))
			if placed != 1 {
				t.Fatalf("placed=%d want 1", placed)
			}
			if len(broker.stops) != 1 {
				t.Fatalf("submitted %d stops, want 1", len(broker.stops))
			}
			if got := broker.stops[0].stop; got != tc.wantStop {
				t.Fatalf("stop=%f want %f", got, tc.wantStop)
			}
			if sm.StopPrice(cl) != tc.wantStop {
				t.Fatalf("StopPrice=%f want %f", sm.StopPrice(cl), tc.wantStop)
			}
		})
	}
}

func TestStopPlacedOncePerSession(t *testing.T) {
	cl, _ := models.MarketBySymbol("CL")
	broker := &recordingBroker{}
	sm := newManager(broker, &fixedPortfolio{lots: []models.PositionLot{lot("CL", 1, 90)}})

	windows := windowsWithClose(cl, 100)
	atr := atrFor(cl, 3)

	if placed := sm.PlaceStops(windows, atr); placed != 1 {
		t.Fatalf("first pass placed=%d want 1", placed)
	}
	if placed := sm.PlaceStops(windows, atr); placed != 0 {
		t.Fatalf("second pass placed=%d want 0 within the same session", placed)
	}

	sm.ClearSessionFlags()
	if placed := sm.PlaceStops(windows, atr); placed != 1 {
		t.Fatalf("after ClearSessionFlags placed=%d want 1", placed)
	}
	if len(broker.stops) != 2 {
		t.Fatalf("submitted %d stops, want 2", len(broker.stops))
	}
}

func TestStopDeferredWithoutATR(t *testing.T) {
	cl, _ := models.MarketBySymbol("CL")
	broker := &recordingBroker{}
	sm := newManager(broker, &fixedPortfolio{lots: []models.PositionLot{lot("CL", 1, 90)}})

	if placed := sm.PlaceStops(windowsWithClose(cl, 100), make([]float64, models.NumMarkets())); placed != 0 {
		t.Fatalf("placed=%d want 0 without an ATR", placed)
	}
	// The flag is not consumed; the stop goes out once the ATR returns.
	if placed := sm.PlaceStops(windowsWithClose(cl, 100), atrFor(cl, 3)); placed != 1 {
		t.Fatalf("placed=%d want 1 once ATR is available", placed)
	}
}

func TestStopFallsBackToLastKnownATR(t *testing.T) {
	cl, _ := models.MarketBySymbol("CL")
	broker := &recordingBroker{}
	sm := newManager(broker, &fixedPortfolio{lots: []models.PositionLot{lot("CL", 1, 90)}})

	// Session 1: complete window, ATR 3.
	if placed := sm.PlaceStops(windowsWithClose(cl, 100), atrFor(cl, 3)); placed != 1 {
		t.Fatalf("first session placed=%d want 1", placed)
	}
	sm.ClearSessionFlags()

	// Session 2: the market is dropped, so there is no window and no fresh
	// ATR. The stop still goes out on the retained estimate, anchored to
	// cost basis because price is unavailable.
	placed := sm.PlaceStops(make([]*models.Window, models.NumMarkets()), make([]float64, models.NumMarkets()))
	if placed != 1 {
		t.Fatalf("gapped session placed=%d want 1", placed)
	}
	if got := broker.stops[1].stop; got != 84 {
		t.Fatalf("stop=%f want 84 (basis 90 minus 2x retained ATR 3)", got)
	}
}

func TestStopSkipsFlatAndUnknownLots(t *testing.T) {
	broker := &recordingBroker{}
	sm := newManager(broker, &fixedPortfolio{lots: []models.PositionLot{
		lot("CL", 0, 90),
		lot("XX", 1, 90),
	}})

	cl, _ := models.MarketBySymbol("CL")
	if placed := sm.PlaceStops(windowsWithClose(cl, 100), atrFor(cl, 3)); placed != 0 {
		t.Fatalf("placed=%d want 0", placed)
	}
}

func TestStopSubmitFailureLeavesFlagClear(t *testing.T) {
	cl, _ := models.MarketBySymbol("CL")
	broker := &recordingBroker{fail: true}
	sm := newManager(broker, &fixedPortfolio{lots: []models.PositionLot{lot("CL", 1, 90)}})

	if placed := sm.PlaceStops(windowsWithClose(cl, 100), atrFor(cl, 3)); placed != 0 {
		t.Fatalf("placed=%d want 0 on submit failure", placed)
	}

	// Retry succeeds in the same session because the flag was never set.
	broker.fail = false
	if placed := sm.PlaceStops(windowsWithClose(cl, 100), atrFor(cl, 3)); placed != 1 {
		t.Fatalf("placed=%d want 1 on retry", placed)
	}
}

func TestStopDeclinedOrderNotTracked(t *testing.T) {
	cl, _ := models.MarketBySymbol("CL")
	broker := &recordingBroker{decline: true}
	sm := newManager(broker, &fixedPortfolio{lots: []models.PositionLot{lot("CL", 1, 90)}})

	if placed := sm.PlaceStops(windowsWithClose(cl, 100), atrFor(cl, 3)); placed != 0 {
		t.Fatalf("placed=%d want 0 when the venue declines", placed)
	}
}
