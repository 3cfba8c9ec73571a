package order

import (
	"fmt"

	"turtle-trader/interfaces"
	"turtle-trader/logging"
	"turtle-trader/models"
	"turtle-trader/risk"
)

// Tracker records outstanding order identifiers per market and reconciles
// them against broker status once per cycle. Each order is resolved exactly
// once: it leaves the tracked list the same cycle its terminal status is
// seen, and the risk counters move by exactly one per resolution.
type Tracker struct {
	Broker interfaces.Broker
	Risk   *risk.State
	Logger logging.LoggerInterface

	orders [][]string // pending order IDs, indexed by Market
}

// NewTracker creates a new order tracker.
func NewTracker(broker interfaces.Broker, riskState *risk.State, logger logging.LoggerInterface) *Tracker {
	return &Tracker{
		Broker: broker,
		Risk:   riskState,
		Logger: logger,
		orders: make([][]string, models.NumMarkets()),
	}
}

// Track registers an order identifier under its market.
func (t *Tracker) Track(m models.Market, orderID string) {
	t.orders[m] = append(t.orders[m], orderID)
}

// PendingCount returns how many orders are tracked for the market.
func (t *Tracker) PendingCount(m models.Market) int {
	return len(t.orders[m])
}

// Reconcile queries the broker for every tracked order and applies the
// transition rules:
//
//	filled at the limit level  -> exposure +1 for the market and direction
//	filled at the stop level   -> exposure -1 for the market and direction
//	canceled or rejected       -> dropped, counters untouched
//
// Orders still pending stay tracked. A status outside the enumerated four is
// rejected at this boundary: the order stays tracked, counters stay put, and
// the error is reported so the cycle can log it.
func (t *Tracker) Reconcile() error {
	var firstErr error

	for i := range t.orders {
		m := models.Market(i)
		kept := t.orders[i][:0]

		for _, id := range t.orders[i] {
			report, err := t.Broker.OrderState(id)
			if err != nil {
				t.Logger.Warning("Order %s status query failed: %v", id, err)
				kept = append(kept, id)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}

			switch report.Status {
			case models.OrderFilled:
				if report.LimitReached {
					t.Risk.AddExposure(m, report.Quantity)
				}
				if report.StopReached {
					t.Risk.ReleaseExposure(m, report.Quantity)
				}
				t.Logger.Debug("Order %s on %s filled (qty %d)", id, m.Symbol(), report.Quantity)
			case models.OrderCanceled, models.OrderRejected:
				t.Logger.Debug("Order %s on %s %s", id, m.Symbol(), report.Status)
			case models.OrderPending:
				kept = append(kept, id)
			default:
				kept = append(kept, id)
				err := fmt.Errorf("order %s: unexpected status %d", id, report.Status)
				t.Logger.Error("%v", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		t.orders[i] = kept
	}
	return firstErr
}
