package position

import (
	"turtle-trader/interfaces"
	"turtle-trader/logging"
	"turtle-trader/metrics"
	"turtle-trader/models"
	"turtle-trader/order"
)

// StopManager issues one protective stop per open position per session, at a
// volatility-scaled offset from price or cost basis. The per-market session
// flag prevents duplicate stop submission until the scheduler clears it
// shortly after the next session open.
type StopManager struct {
	Broker    interfaces.Broker
	Portfolio interfaces.Portfolio
	Tracker   *order.Tracker
	Logger    logging.LoggerInterface

	StopMultiplier float64

	stops   []float64 // last computed stop price, indexed by Market
	placed  []bool    // stop already submitted this session
	lastATR []float64 // last usable volatility estimate, indexed by Market
}

// NewStopManager creates a new stop-loss manager.
func NewStopManager(broker interfaces.Broker, portfolio interfaces.Portfolio, tracker *order.Tracker, logger logging.LoggerInterface, stopMultiplier float64) *StopManager {
	return &StopManager{
		Broker:         broker,
		Portfolio:      portfolio,
		Tracker:        tracker,
		Logger:         logger,
		StopMultiplier: stopMultiplier,
		stops:          make([]float64, models.NumMarkets()),
		placed:         make([]bool, models.NumMarkets()),
		lastATR:        make([]float64, models.NumMarkets()),
	}
}

// ClearSessionFlags re-arms stop submission for every market. Invoked by the
// scheduler shortly after session open.
func (sm *StopManager) ClearSessionFlags() {
	for i := range sm.placed {
		sm.placed[i] = false
	}
}

// StopPrice returns the last computed stop for a market.
func (sm *StopManager) StopPrice(m models.Market) float64 { return sm.stops[m] }

// PlaceStops walks the open positions and submits a protective stop for each
// one that does not have a stop this session yet. Returns how many stops were
// placed.
//
// Stop policy for a long lot: trail below price while the position is in
// profit, otherwise anchor below cost basis. Shorts mirror with the offset
// added. When the market has no price this cycle the basis anchor is used;
// "no price" is an explicit condition here, never a zero sentinel treated as
// a real price.
func (sm *StopManager) PlaceStops(windows []*models.Window, atr []float64) int {
	placed := 0

	for _, lot := range sm.Portfolio.OpenPositions() {
		if lot.Quantity == 0 {
			continue
		}
		m, ok := models.MarketBySymbol(lot.Contract.Root)
		if !ok {
			sm.Logger.Warning("Position on unknown root %s skipped", lot.Contract.Root)
			continue
		}
		if sm.placed[m] {
			continue
		}

		a := atr[m]
		if a > 0 {
			sm.lastATR[m] = a
		} else {
			// Market dropped this cycle; a position still needs its stop, so
			// fall back to the last usable volatility estimate. Only a market
			// that has never produced an ATR waits for a complete window.
			a = sm.lastATR[m]
		}
		if a <= 0 {
			sm.Logger.Warning("No ATR for %s, stop deferred", m.Symbol())
			continue
		}

		var price float64
		priceOK := false
		if windows[m] != nil {
			price = windows[m].LastClose()
			priceOK = true
		}

		offset := a * sm.StopMultiplier
		var stop float64
		if lot.Quantity > 0 {
			if priceOK && price >= lot.CostBasis {
				stop = price - offset
			} else {
				stop = lot.CostBasis - offset
			}
		} else {
			if priceOK && price < lot.CostBasis {
				stop = price + offset
			} else {
				stop = lot.CostBasis + offset
			}
		}
		sm.stops[m] = stop

		id, err := sm.Broker.SubmitStopOrder(lot.Contract, stop)
		if err != nil {
			sm.Logger.Warning("Stop submission for %s failed: %v", m.Symbol(), err)
			continue
		}
		if id == "" {
			continue
		}
		sm.Tracker.Track(m, id)
		sm.placed[m] = true
		placed++
		side := "long"
		if lot.Quantity < 0 {
			side = "short"
		}
		metrics.IncOrder("stop", side)
		sm.Logger.Info("Stop %s %.2f", m.Symbol(), stop)
	}
	return placed
}
