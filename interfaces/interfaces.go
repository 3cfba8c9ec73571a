package interfaces

import (
	"turtle-trader/models"
)

// PriceFeed defines the interface for the host platform's market data feed.
type PriceFeed interface {
	// History returns up to bars daily rows per market, indexed by market.
	// A market with no data at all gets an empty Series; partial data is
	// delivered as-is with NaN gaps.
	History(markets []models.Market, bars int) ([]models.Series, error)
	// CurrentContracts resolves each market's currently tradeable contract,
	// indexed by market. Contracts are re-resolved every cycle, never cached.
	CurrentContracts(markets []models.Market) ([]models.Contract, error)
}

// Broker defines the interface for order submission and status queries.
// An empty order id with a nil error means the venue declined to place the
// order; callers skip it without retry.
type Broker interface {
	SubmitLimitOrder(contract models.Contract, quantity int, limitPrice float64) (string, error)
	SubmitStopOrder(contract models.Contract, stopPrice float64) (string, error)
	OrderState(orderID string) (models.OrderReport, error)
	// OpenOrderContracts returns the set of contract IDs that currently have
	// an order outstanding at the venue.
	OpenOrderContracts() (map[string]bool, error)
}

// Portfolio defines the read-only account view the engine sizes against.
type Portfolio interface {
	Cash() float64
	Equity() float64
	StartingEquity() float64
	OpenPositions() []models.PositionLot
}
