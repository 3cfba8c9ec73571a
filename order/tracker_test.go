package order

import (
	"errors"
	"testing"

	"turtle-trader/logging"
	"turtle-trader/models"
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

// scriptedBroker serves canned order reports and counts queries per order.
type scriptedBroker struct {
	reports map[string]models.OrderReport
	errs    map[string]error
	queried map[string]int
}

func newScriptedBroker() *scriptedBroker {
	return &scriptedBroker{
		reports: make(map[string]models.OrderReport),
		errs:    make(map[string]error),
		queried: make(map[string]int),
	}
}

func (b *scriptedBroker) SubmitLimitOrder(models.Contract, int, float64) (string, error) {
	return "", nil
}

func (b *scriptedBroker) SubmitStopOrder(models.Contract, float64) (string, error) {
	return "", nil
}

func (b *scriptedBroker) OrderState(orderID string) (models.OrderReport, error) {
	b.queried[orderID]++
	if err := b.errs[orderID]; err != nil {
		return models.OrderReport{}, err
	}
	return b.reports[orderID], nil
}

func (b *scriptedBroker) OpenOrderContracts() (map[string]bool, error) {
	return map[string]bool{}, nil
}

func TestReconcileLimitFillAddsExposure(t *testing.T) {
	broker := newScriptedBroker()
	riskState := risk.NewState(1_000_000)
	tracker := NewTracker(broker, riskState, nopLogger{})

	broker.reports["a"] = models.OrderReport{Status: models.OrderFilled, LimitReached: true, Quantity: 3}
	tracker.Track(2, "a")

	if err := tracker.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if riskState.MarketRisk[2] != 1 || riskState.LongRisk != 1 {
		t.Fatalf("market=%d long=%d want 1/1", riskState.MarketRisk[2], riskState.LongRisk)
	}
	if tracker.PendingCount(2) != 0 {
		t.Fatalf("filled order must leave the tracked list")
	}
}

func TestReconcileStopFillReleasesExposure(t *testing.T) {
	broker := newScriptedBroker()
	riskState := risk.NewState(1_000_000)
	riskState.MarketRisk[5] = 1
	riskState.ShortRisk = 1
	tracker := NewTracker(broker, riskState, nopLogger{})

	// A stop closing a short position fills with a negative quantity and
	// unwinds the short counter.
	broker.reports["s"] = models.OrderReport{Status: models.OrderFilled, StopReached: true, Quantity: -2}
	tracker.Track(5, "s")

	if err := tracker.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if riskState.MarketRisk[5] != 0 || riskState.ShortRisk != 0 {
		t.Fatalf("market=%d short=%d want 0/0", riskState.MarketRisk[5], riskState.ShortRisk)
	}
}

func TestReconcileResolvesExactlyOnce(t *testing.T) {
	broker := newScriptedBroker()
	riskState := risk.NewState(1_000_000)
	tracker := NewTracker(broker, riskState, nopLogger{})

	broker.reports["a"] = models.OrderReport{Status: models.OrderFilled, LimitReached: true, Quantity: 1}
	tracker.Track(0, "a")

	for i := 0; i < 3; i++ {
		if err := tracker.Reconcile(); err != nil {
			t.Fatalf("Reconcile %d: %v", i, err)
		}
	}
	if riskState.MarketRisk[0] != 1 {
		t.Fatalf("market risk=%d want 1 after repeated reconciles", riskState.MarketRisk[0])
	}
	if broker.queried["a"] != 1 {
		t.Fatalf("order queried %d times, want 1", broker.queried["a"])
	}
}

func TestReconcileDropsCanceledAndRejected(t *testing.T) {
	broker := newScriptedBroker()
	riskState := risk.NewState(1_000_000)
	tracker := NewTracker(broker, riskState, nopLogger{})

	broker.reports["c"] = models.OrderReport{Status: models.OrderCanceled}
	broker.reports["r"] = models.OrderReport{Status: models.OrderRejected}
	tracker.Track(1, "c")
	tracker.Track(1, "r")

	if err := tracker.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if tracker.PendingCount(1) != 0 {
		t.Fatalf("canceled and rejected orders must leave the tracked list")
	}
	if riskState.MarketRisk[1] != 0 || riskState.LongRisk != 0 || riskState.ShortRisk != 0 {
		t.Fatalf("counters must not move for canceled or rejected orders")
	}
}

func TestReconcileKeepsPending(t *testing.T) {
	broker := newScriptedBroker()
	tracker := NewTracker(broker, risk.NewState(1_000_000), nopLogger{})

	broker.reports["p"] = models.OrderReport{Status: models.OrderPending}
	tracker.Track(3, "p")

	if err := tracker.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if tracker.PendingCount(3) != 1 {
		t.Fatalf("pending order must stay tracked")
	}
}

func TestReconcileUnknownStatusStaysTracked(t *testing.T) {
	broker := newScriptedBroker()
	riskState := risk.NewState(1_000_000)
	tracker := NewTracker(broker, riskState, nopLogger{})

	broker.reports["u"] = models.OrderReport{Status: models.OrderStatus(42), Quantity: 1}
	tracker.Track(4, "u")

	err := tracker.Reconcile()
	if err == nil {
		t.Fatalf("unknown status must surface an error")
	}
	if tracker.PendingCount(4) != 1 {
		t.Fatalf("unknown status order must stay tracked")
	}
	if riskState.MarketRisk[4] != 0 {
		t.Fatalf("unknown status must not move counters")
	}
}

func TestReconcileQueryErrorKeepsOrder(t *testing.T) {
	broker := newScriptedBroker()
	tracker := NewTracker(broker, risk.NewState(1_000_000), nopLogger{})

	broker.errs["e"] = errors.New("venue unavailable")
	broker.reports["f"] = models.OrderReport{Status: models.OrderFilled, LimitReached: true, Quantity: 1}
	tracker.Track(6, "e")
	tracker.Track(6, "f")

	err := tracker.Reconcile()
	if err == nil {
		t.Fatalf("query failure must surface an error")
	}
	// The failed query stays; the healthy order still resolves.
	if tracker.PendingCount(6) != 1 {
		t.Fatalf("pending=%d want 1", tracker.PendingCount(6))
	}
}
