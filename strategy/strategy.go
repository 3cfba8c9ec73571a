package strategy

import (
	"time"

	"turtle-trader/config"
	"turtle-trader/indicators"
	"turtle-trader/interfaces"
	"turtle-trader/logging"
	"turtle-trader/market"
	"turtle-trader/metrics"
	"turtle-trader/models"
	"turtle-trader/order"
	"turtle-trader/position"
	"turtle-trader/risk"
)

// Trader runs the Turtle pipeline once per session tick: validate the price
// window, derive breakout channels and volatility, size by risk budget,
// reconcile in-flight orders, refresh protective stops, then submit breakout
// entries that pass the gate. All long-lived state (risk counters, tracked
// orders, session stop flags) lives in the managers the Trader owns and is
// only touched inside a cycle, so no locking is needed beyond the scheduler's
// serialization.
type Trader struct {
	Config    *config.Config
	Feed      interfaces.PriceFeed
	Broker    interfaces.Broker
	Portfolio interfaces.Portfolio
	Logger    logging.LoggerInterface

	Windows *market.WindowManager
	Risk    *risk.State
	Tracker *order.Tracker
	Stops   *position.StopManager
	State   *models.EngineState
}

// NewTrader creates a trader and wires its managers.
func NewTrader(cfg *config.Config, feed interfaces.PriceFeed, broker interfaces.Broker, portfolio interfaces.Portfolio, state *models.EngineState, logger logging.LoggerInterface) *Trader {
	riskState := risk.NewState(portfolio.StartingEquity())
	tracker := order.NewTracker(broker, riskState, logger)
	stops := position.NewStopManager(broker, portfolio, tracker, logger, cfg.StopMultiplier)

	return &Trader{
		Config:    cfg,
		Feed:      feed,
		Broker:    broker,
		Portfolio: portfolio,
		Logger:    logger,
		Windows:   market.NewWindowManager(cfg.WindowSize, logger),
		Risk:      riskState,
		Tracker:   tracker,
		Stops:     stops,
		State:     state,
	}
}

// RunCycle executes one full pipeline pass. No step aborts the cycle: a
// market with bad data, a rejected submission, or a flaky status query only
// costs that market its turn.
func (t *Trader) RunCycle() {
	markets := models.AllMarkets()

	series, err := t.Feed.History(markets, t.Config.WindowSize)
	if err != nil {
		t.Logger.Error("History fetch failed: %v", err)
		return
	}
	windows, dropped := t.Windows.Build(series)
	metrics.AddDropped(len(dropped))

	n := models.NumMarkets()
	channels := make([]models.Channel, n)
	atr := make([]float64, n)
	for i, w := range windows {
		if w == nil {
			continue
		}
		channels[i] = indicators.ChannelFor(w, t.Config.ShortBreakout, t.Config.LongBreakout)
		atr[i] = indicators.ATR(w, t.Config.ATRPeriod)
	}

	contracts, err := t.Feed.CurrentContracts(markets)
	if err != nil {
		t.Logger.Error("Contract lookup failed: %v", err)
		return
	}

	dollarVol := make([]float64, n)
	for i := range windows {
		if windows[i] != nil {
			dollarVol[i] = atr[i] * contracts[i].Multiplier
		}
	}

	t.Risk.UpdateCapital(t.Portfolio.Equity(), t.Config.CapitalMultiplier)
	sizes := make([]int, n)
	for i := range windows {
		if windows[i] != nil {
			sizes[i] = t.Risk.TradeSize(t.Config.RiskPerTrade, dollarVol[i])
		}
	}

	if err := t.Tracker.Reconcile(); err != nil {
		t.Logger.Warning("Order reconciliation incomplete: %v", err)
	}

	stopsPlaced := t.Stops.PlaceStops(windows, atr)
	metrics.SetSessionStops(stopsPlaced)

	openOrders, err := t.Broker.OpenOrderContracts()
	if err != nil {
		t.Logger.Warning("Open order lookup failed: %v", err)
		openOrders = nil
	}

	entriesPlaced := t.detectEntries(windows, channels, contracts, sizes, openOrders)

	t.publishSnapshots(windows, channels, atr, dollarVol, sizes, dropped, entriesPlaced, stopsPlaced)
	metrics.IncCycle()
}

// detectEntries compares the latest close against the breakout channels and
// submits gated limit orders. Long and short signals are checked
// independently; a blocked signal is dropped for the cycle, never queued.
func (t *Trader) detectEntries(windows []*models.Window, channels []models.Channel, contracts []models.Contract, sizes []int, openOrders map[string]bool) int {
	lim := risk.Limits{
		PriceFloor:         t.Config.PriceFloor,
		MarketRiskLimit:    t.Config.MarketRiskLimit,
		DirectionRiskLimit: t.Config.DirectionRiskLimit,
	}
	cash := t.Portfolio.Cash()
	placed := 0

	for i, w := range windows {
		if w == nil {
			continue
		}
		m := models.Market(i)
		price := w.LastClose()
		ch := channels[i]

		if price > ch.TwentyDayHigh || price > ch.FiftyFiveDayHigh {
			check := risk.EntryCheck{Cash: cash, Price: price, Contract: contracts[i], OpenOrders: openOrders, Direction: models.Long}
			if ok, reason := t.Risk.Allowed(m, check, lim); ok {
				if t.submitEntry(m, contracts[i], sizes[i], price) {
					placed++
					metrics.IncOrder("entry", "long")
					t.Logger.Info("Long %s %d@%.2f", m.Symbol(), sizes[i], price)
				}
			} else {
				metrics.IncBlocked(reason)
				t.Logger.Debug("Long %s blocked: %s", m.Symbol(), reason)
			}
		}

		if price < ch.TwentyDayLow || price < ch.FiftyFiveDayLow {
			check := risk.EntryCheck{Cash: cash, Price: price, Contract: contracts[i], OpenOrders: openOrders, Direction: models.Short}
			if ok, reason := t.Risk.Allowed(m, check, lim); ok {
				if t.submitEntry(m, contracts[i], -sizes[i], price) {
					placed++
					metrics.IncOrder("entry", "short")
					t.Logger.Info("Short %s %d@%.2f", m.Symbol(), sizes[i], price)
				}
			} else {
				metrics.IncBlocked(reason)
				t.Logger.Debug("Short %s blocked: %s", m.Symbol(), reason)
			}
		}
	}
	return placed
}

// submitEntry places one sized limit order and tracks it. A zero size means
// volatility priced this market out of the risk budget; the signal is
// dropped without an order.
func (t *Trader) submitEntry(m models.Market, contract models.Contract, quantity int, price float64) bool {
	if quantity == 0 {
		t.Logger.Debug("Entry %s sized to 0, skipped", m.Symbol())
		return false
	}
	id, err := t.Broker.SubmitLimitOrder(contract, quantity, price)
	if err != nil {
		t.Logger.Warning("Entry submission for %s failed: %v", contract.ID, err)
		return false
	}
	if id == "" {
		return false
	}
	t.Tracker.Track(m, id)
	return true
}

// ClearStops re-arms stop submission for the new session. Scheduled shortly
// after session open.
func (t *Trader) ClearStops() {
	t.Stops.ClearSessionFlags()
	t.Logger.Debug("Session stop flags cleared")
}

// LogRisks records the end-of-session risk snapshot. Scheduled shortly
// before session close.
func (t *Trader) LogRisks() {
	snap := t.Risk.Snapshot()
	t.State.SetRisk(snap)
	metrics.SetRisk(snap.Capital, snap.LongRisk, snap.ShortRisk)
	t.Logger.Info("Risk long %d short %d capital %.2f", snap.LongRisk, snap.ShortRisk, snap.Capital)
}

func (t *Trader) publishSnapshots(windows []*models.Window, channels []models.Channel, atr, dollarVol []float64, sizes []int, dropped []string, entriesPlaced, stopsPlaced int) {
	snap := models.CycleSnapshot{
		Time:           time.Now(),
		DroppedMarkets: dropped,
		EntriesPlaced:  entriesPlaced,
		StopsPlaced:    stopsPlaced,
	}
	for i, w := range windows {
		m := models.Market(i)
		ms := models.MarketSnapshot{Symbol: m.Symbol(), Dropped: w == nil}
		if w != nil {
			ms.Close = w.LastClose()
			ms.TwentyDayHigh = channels[i].TwentyDayHigh
			ms.TwentyDayLow = channels[i].TwentyDayLow
			ms.FiftyFiveDayHigh = channels[i].FiftyFiveDayHigh
			ms.FiftyFiveDayLow = channels[i].FiftyFiveDayLow
			ms.ATR = atr[i]
			ms.DollarVolatility = dollarVol[i]
			ms.TradeSize = sizes[i]
			ms.MarketRisk = t.Risk.MarketRisk[i]
		}
		snap.Markets = append(snap.Markets, ms)
	}
	t.State.SetCycle(snap)

	rs := t.Risk.Snapshot()
	t.State.SetRisk(rs)
	metrics.SetRisk(rs.Capital, rs.LongRisk, rs.ShortRisk)
}
