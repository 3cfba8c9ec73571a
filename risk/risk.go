package risk

import (
	"time"

	"turtle-trader/models"
)

// Limits bundles the gating thresholds for entry checks.
type Limits struct {
	PriceFloor         float64
	MarketRiskLimit    int
	DirectionRiskLimit int
}

// State carries the session-wide risk counters. It is mutated only by the
// order tracker (exposure counters) and the capital rule, and read by the
// entry gate; it is passed explicitly through the pipeline, never ambient.
type State struct {
	StartingEquity float64
	Capital        float64
	LongRisk       int
	ShortRisk      int
	MarketRisk     []int // open-position count per market, indexed by Market
}

// NewState initializes risk state with the account's starting equity.
func NewState(startingEquity float64) *State {
	return &State{
		StartingEquity: startingEquity,
		Capital:        startingEquity,
		MarketRisk:     make([]int, models.NumMarkets()),
	}
}

// UpdateCapital recomputes risk capital from current equity. Losses are
// amplified by the multiplier so size shrinks faster than equity; profits
// never lift capital above starting equity. The asymmetry is deliberate and
// self-heals once equity recovers.
func (s *State) UpdateCapital(equity, multiplier float64) {
	profit := equity - s.StartingEquity
	if profit < 0 {
		s.Capital = s.StartingEquity + profit*multiplier
	} else {
		s.Capital = s.StartingEquity
	}
}

// TradeSize converts risk capital and dollar volatility into a contract
// count, truncated toward zero. Zero capital or unusable volatility sizes to
// zero.
func (s *State) TradeSize(riskPerTrade, dollarVolatility float64) int {
	if s.Capital <= 0 || dollarVolatility <= 0 {
		return 0
	}
	return int(s.Capital * riskPerTrade / dollarVolatility)
}

// EntryCheck carries the per-entry inputs the gate needs beyond the counters.
type EntryCheck struct {
	Cash       float64
	Price      float64
	Contract   models.Contract
	OpenOrders map[string]bool // contract IDs with an order outstanding
	Direction  models.Direction
}

// Allowed runs every gating check independently; any single failing check
// blocks the entry. The blocked reason is returned for logging and metrics.
func (s *State) Allowed(m models.Market, c EntryCheck, lim Limits) (bool, string) {
	if c.Cash <= 0 {
		return false, "no_cash"
	}
	if s.Capital <= 0 {
		return false, "no_capital"
	}
	if c.Price < lim.PriceFloor {
		return false, "price_floor"
	}
	if c.OpenOrders != nil && c.OpenOrders[c.Contract.ID] {
		return false, "open_order"
	}
	if s.MarketRisk[m] >= lim.MarketRiskLimit {
		return false, "market_risk"
	}
	// The direction gate is strictly-greater on purpose: the counter may
	// reach the limit plus one before entries stop. Changing it to >= would
	// change strategy behavior.
	if c.Direction == models.Long && s.LongRisk > lim.DirectionRiskLimit {
		return false, "long_risk"
	}
	if c.Direction == models.Short && s.ShortRisk > lim.DirectionRiskLimit {
		return false, "short_risk"
	}
	return true, ""
}

// AddExposure records a filled breakout entry: one more open position in the
// market and in the direction of the signed quantity.
func (s *State) AddExposure(m models.Market, quantity int) {
	s.MarketRisk[m]++
	if quantity > 0 {
		s.LongRisk++
	}
	if quantity < 0 {
		s.ShortRisk++
	}
}

// ReleaseExposure records a position closed by its protective stop.
func (s *State) ReleaseExposure(m models.Market, quantity int) {
	s.MarketRisk[m]--
	if quantity > 0 {
		s.LongRisk--
	}
	if quantity < 0 {
		s.ShortRisk--
	}
}

// Snapshot returns the counters for status reporting.
func (s *State) Snapshot() models.RiskSnapshot {
	return models.RiskSnapshot{
		Time:      time.Now(),
		Capital:   s.Capital,
		LongRisk:  s.LongRisk,
		ShortRisk: s.ShortRisk,
	}
}
