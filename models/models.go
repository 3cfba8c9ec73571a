package models

import (
	"math"
	"sync"
	"time"
)

// Market is a stable small-integer index into the fixed basket of futures
// root symbols. It is assigned at startup and keys every per-market table in
// the engine, so nothing downstream hashes symbols per cycle.
type Market int

// rootSymbols is the fixed basket the strategy trades.
var rootSymbols = []string{
	"BP", "CD", "CL", "ED", "GC", "HG", "HO", "HU",
	"JY", "SB", "SF", "SP", "SV", "TB", "TY", "US",
}

// NumMarkets is the size of the basket.
func NumMarkets() int { return len(rootSymbols) }

// AllMarkets returns the full basket in index order.
func AllMarkets() []Market {
	out := make([]Market, len(rootSymbols))
	for i := range rootSymbols {
		out[i] = Market(i)
	}
	return out
}

// Symbol returns the root symbol for a market, or "" for an invalid index.
func (m Market) Symbol() string {
	if m < 0 || int(m) >= len(rootSymbols) {
		return ""
	}
	return rootSymbols[m]
}

// MarketBySymbol resolves a root symbol back to its market index.
func MarketBySymbol(symbol string) (Market, bool) {
	for i, s := range rootSymbols {
		if s == symbol {
			return Market(i), true
		}
	}
	return -1, false
}

// Bar is one daily high/low/close row.
type Bar struct {
	High  float64
	Low   float64
	Close float64
}

// Series is the raw per-market history as delivered by the price feed.
// Missing values are NaN; a market whose series contains any NaN over the
// requested window is excluded from the cycle.
type Series struct {
	High  []float64
	Low   []float64
	Close []float64
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.Close) }

// HasGaps reports whether any field holds a NaN or the fields disagree in length.
func (s Series) HasGaps() bool {
	if len(s.High) != len(s.Close) || len(s.Low) != len(s.Close) {
		return true
	}
	for i := range s.Close {
		if math.IsNaN(s.High[i]) || math.IsNaN(s.Low[i]) || math.IsNaN(s.Close[i]) {
			return true
		}
	}
	return false
}

// Window is a validated per-market OHLC window; all fields are complete and
// equal in length.
type Window struct {
	High  []float64
	Low   []float64
	Close []float64
}

// LastClose returns the most recent close.
func (w *Window) LastClose() float64 {
	return w.Close[len(w.Close)-1]
}

// Channel holds the rolling breakout levels for one market. All four levels
// are computed over the bars preceding, and excluding, the latest bar.
type Channel struct {
	TwentyDayHigh    float64
	TwentyDayLow     float64
	FiftyFiveDayHigh float64
	FiftyFiveDayLow  float64
}

// Contract identifies the current tradeable contract of a continuous future.
type Contract struct {
	ID         string  // venue contract code, e.g. "CLZ6"
	Root       string  // root symbol, e.g. "CL"
	Multiplier float64 // dollars per point
}

// Direction is the side of an entry.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// OrderStatus is the broker-reported state of a tracked order.
type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderFilled
	OrderCanceled
	OrderRejected
)

// String implements fmt.Stringer for logging.
func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderFilled:
		return "filled"
	case OrderCanceled:
		return "canceled"
	case OrderRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// OrderReport is the broker's view of one order.
type OrderReport struct {
	Status       OrderStatus
	LimitReached bool // the fill crossed the order's limit level
	StopReached  bool // the fill crossed the order's stop level
	Quantity     int  // signed contracts; >0 long, <0 short
}

// PositionLot is one open position as reported by the portfolio.
type PositionLot struct {
	Contract  Contract
	Quantity  int // signed contracts
	CostBasis float64
}

// RiskSnapshot holds the latest risk counters for status reporting.
type RiskSnapshot struct {
	Time      time.Time `json:"time"`
	Capital   float64   `json:"capital"`
	LongRisk  int       `json:"longRisk"`
	ShortRisk int       `json:"shortRisk"`
}

// MarketSnapshot holds the latest per-market view for status reporting.
type MarketSnapshot struct {
	Symbol           string  `json:"symbol"`
	Close            float64 `json:"close"`
	TwentyDayHigh    float64 `json:"twentyDayHigh"`
	TwentyDayLow     float64 `json:"twentyDayLow"`
	FiftyFiveDayHigh float64 `json:"fiftyFiveDayHigh"`
	FiftyFiveDayLow  float64 `json:"fiftyFiveDayLow"`
	ATR              float64 `json:"atr"`
	DollarVolatility float64 `json:"dollarVolatility"`
	TradeSize        int     `json:"tradeSize"`
	MarketRisk       int     `json:"marketRisk"`
	Dropped          bool    `json:"dropped,omitempty"`
}

// CycleSnapshot summarizes the most recent pipeline pass.
type CycleSnapshot struct {
	Time           time.Time        `json:"time"`
	Markets        []MarketSnapshot `json:"markets"`
	DroppedMarkets []string         `json:"droppedMarkets,omitempty"`
	EntriesPlaced  int              `json:"entriesPlaced"`
	StopsPlaced    int              `json:"stopsPlaced"`
}

// EngineState holds the snapshots external surfaces read. The pipeline writes
// once per cycle under StatusLock; the status server and the dashboard only
// ever read copies.
type EngineState struct {
	StatusLock sync.RWMutex
	LastCycle  CycleSnapshot
	LastRisk   RiskSnapshot
}

// SetCycle stores the latest cycle snapshot.
func (e *EngineState) SetCycle(c CycleSnapshot) {
	e.StatusLock.Lock()
	e.LastCycle = c
	e.StatusLock.Unlock()
}

// SetRisk stores the latest risk snapshot.
func (e *EngineState) SetRisk(r RiskSnapshot) {
	e.StatusLock.Lock()
	e.LastRisk = r
	e.StatusLock.Unlock()
}

// Cycle returns a copy of the last cycle snapshot.
func (e *EngineState) Cycle() CycleSnapshot {
	e.StatusLock.RLock()
	defer e.StatusLock.RUnlock()
	c := e.LastCycle
	if len(c.Markets) > 0 {
		c.Markets = append([]MarketSnapshot(nil), c.Markets...)
	}
	if len(c.DroppedMarkets) > 0 {
		c.DroppedMarkets = append([]string(nil), c.DroppedMarkets...)
	}
	return c
}

// Risk returns a copy of the last risk snapshot.
func (e *EngineState) Risk() RiskSnapshot {
	e.StatusLock.RLock()
	defer e.StatusLock.RUnlock()
	return e.LastRisk
}
