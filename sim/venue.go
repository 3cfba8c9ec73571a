// Package sim is an in-memory stand-in for the host platform: a price feed
// with random-walk daily bars, a broker that rests limit and stop orders and
// fills them against the next bar, and a read-only portfolio view. It lets
// the engine run standalone and gives the tests a venue with controllable
// data gaps.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"turtle-trader/models"
)

const historyDepth = 120

type spec struct {
	root       string
	multiplier float64
	startPrice float64
}

// Plausible point multipliers and price scales per root symbol; the engine
// only ever reads the multiplier through the contract lookup.
var specs = []spec{
	{"BP", 62500, 1.27},
	{"CD", 100000, 0.73},
	{"CL", 1000, 78},
	{"ED", 2500, 94.8},
	{"GC", 100, 2400},
	{"HG", 25000, 4.1},
	{"HO", 42000, 2.4},
	{"HU", 42000, 2.2},
	{"JY", 12500, 0.0066},
	{"SB", 112000, 0.19},
	{"SF", 125000, 1.1},
	{"SP", 250, 5500},
	{"SV", 5000, 29},
	{"TB", 2000, 94.9},
	{"TY", 1000, 110},
	{"US", 1000, 118},
}

type restingOrder struct {
	contract models.Contract
	quantity int
	limit    float64
	stop     float64
	isStop   bool
	report   models.OrderReport
}

// Venue implements interfaces.PriceFeed, interfaces.Broker and
// interfaces.Portfolio over in-memory state.
type Venue struct {
	mu  sync.Mutex
	rng *rand.Rand

	contracts []models.Contract
	bars      [][]models.Bar // per market, oldest first
	gapped    []bool         // markets currently reporting a data gap

	orders    map[string]*restingOrder
	positions map[string]*models.PositionLot // keyed by contract ID

	startingCash float64
	realized     float64
}

// NewVenue seeds a venue with historyDepth bars per market.
func NewVenue(startingCash float64, seed int64) *Venue {
	v := &Venue{
		rng:          rand.New(rand.NewSource(seed)),
		contracts:    make([]models.Contract, len(specs)),
		bars:         make([][]models.Bar, len(specs)),
		gapped:       make([]bool, len(specs)),
		orders:       make(map[string]*restingOrder),
		positions:    make(map[string]*models.PositionLot),
		startingCash: startingCash,
	}
	for i, s := range specs {
		v.contracts[i] = models.Contract{
			ID:         fmt.Sprintf("%sZ6", s.root),
			Root:       s.root,
			Multiplier: s.multiplier,
		}
		price := s.startPrice
		for b := 0; b < historyDepth; b++ {
			bar, next := v.walk(price)
			v.bars[i] = append(v.bars[i], bar)
			price = next
		}
	}
	return v
}

// walk produces one daily bar off the previous close.
func (v *Venue) walk(prev float64) (models.Bar, float64) {
	next := prev * (1 + 0.01*v.rng.NormFloat64())
	if next <= 0 {
		next = prev
	}
	hi := math.Max(prev, next) * (1 + 0.003*v.rng.Float64())
	lo := math.Min(prev, next) * (1 - 0.003*v.rng.Float64())
	return models.Bar{High: hi, Low: lo, Close: next}, next
}

// Step advances every market by one bar and evaluates resting orders against
// the new bar. Called once per session by the driver, never by the engine.
func (v *Venue) Step() {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.bars {
		last := v.bars[i][len(v.bars[i])-1]
		bar, _ := v.walk(last.Close)
		v.bars[i] = append(v.bars[i], bar)
		if len(v.bars[i]) > historyDepth {
			v.bars[i] = v.bars[i][1:]
		}
	}

	for _, o := range v.orders {
		if o.report.Status != models.OrderPending {
			continue
		}
		m, ok := models.MarketBySymbol(o.contract.Root)
		if !ok {
			continue
		}
		bar := v.bars[m][len(v.bars[m])-1]
		if o.isStop {
			v.tryFillStop(o, bar)
		} else {
			v.tryFillLimit(o, bar)
		}
	}
}

func (v *Venue) tryFillLimit(o *restingOrder, bar models.Bar) {
	filled := false
	if o.quantity > 0 && bar.Low <= o.limit {
		filled = true
	}
	if o.quantity < 0 && bar.High >= o.limit {
		filled = true
	}
	if !filled {
		return
	}
	o.report = models.OrderReport{
		Status:       models.OrderFilled,
		LimitReached: true,
		Quantity:     o.quantity,
	}
	v.applyFill(o.contract, o.quantity, o.limit)
}

func (v *Venue) tryFillStop(o *restingOrder, bar models.Bar) {
	lot := v.positions[o.contract.ID]
	if lot == nil || lot.Quantity == 0 {
		o.report.Status = models.OrderCanceled
		return
	}
	triggered := false
	if lot.Quantity > 0 && bar.Low <= o.stop {
		triggered = true
	}
	if lot.Quantity < 0 && bar.High >= o.stop {
		triggered = true
	}
	if !triggered {
		return
	}
	closing := -lot.Quantity
	o.report = models.OrderReport{
		Status:      models.OrderFilled,
		StopReached: true,
		Quantity:    closing,
	}
	v.applyFill(o.contract, closing, o.stop)
}

// applyFill updates the position book and realized PnL for a fill.
func (v *Venue) applyFill(contract models.Contract, quantity int, price float64) {
	lot := v.positions[contract.ID]
	if lot == nil {
		v.positions[contract.ID] = &models.PositionLot{
			Contract:  contract,
			Quantity:  quantity,
			CostBasis: price,
		}
		return
	}
	if (lot.Quantity > 0) == (quantity > 0) {
		total := lot.Quantity + quantity
		lot.CostBasis = (lot.CostBasis*float64(lot.Quantity) + price*float64(quantity)) / float64(total)
		lot.Quantity = total
		return
	}
	// Reducing or flattening.
	closed := quantity
	if abs(quantity) > abs(lot.Quantity) {
		closed = -lot.Quantity
	}
	v.realized += (price - lot.CostBasis) * float64(-closed) * contract.Multiplier
	lot.Quantity += quantity
	if lot.Quantity == 0 {
		delete(v.positions, contract.ID)
	}
}

// Gap makes a market report a data gap until cleared; its history comes back
// with a NaN in the latest bar so the window manager drops it.
func (v *Venue) Gap(m models.Market, on bool) {
	v.mu.Lock()
	v.gapped[m] = on
	v.mu.Unlock()
}

// --- interfaces.PriceFeed ---

// History returns the last bars rows per market.
func (v *Venue) History(markets []models.Market, bars int) ([]models.Series, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]models.Series, models.NumMarkets())
	for _, m := range markets {
		hist := v.bars[m]
		if len(hist) > bars {
			hist = hist[len(hist)-bars:]
		}
		s := models.Series{
			High:  make([]float64, len(hist)),
			Low:   make([]float64, len(hist)),
			Close: make([]float64, len(hist)),
		}
		for i, b := range hist {
			s.High[i], s.Low[i], s.Close[i] = b.High, b.Low, b.Close
		}
		if v.gapped[m] && len(hist) > 0 {
			s.Close[len(hist)-1] = math.NaN()
		}
		out[m] = s
	}
	return out, nil
}

// CurrentContracts returns the current contract per market.
func (v *Venue) CurrentContracts(markets []models.Market) ([]models.Contract, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]models.Contract, models.NumMarkets())
	for _, m := range markets {
		out[m] = v.contracts[m]
	}
	return out, nil
}

// --- interfaces.Broker ---

// SubmitLimitOrder rests a limit order and returns its identifier.
func (v *Venue) SubmitLimitOrder(contract models.Contract, quantity int, limitPrice float64) (string, error) {
	if quantity == 0 {
		return "", nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	id := uuid.New().String()
	v.orders[id] = &restingOrder{
		contract: contract,
		quantity: quantity,
		limit:    limitPrice,
		report:   models.OrderReport{Status: models.OrderPending, Quantity: quantity},
	}
	return id, nil
}

// SubmitStopOrder rests a protective stop that flattens the contract's
// position once price crosses the stop level.
func (v *Venue) SubmitStopOrder(contract models.Contract, stopPrice float64) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := uuid.New().String()
	v.orders[id] = &restingOrder{
		contract: contract,
		stop:     stopPrice,
		isStop:   true,
		report:   models.OrderReport{Status: models.OrderPending},
	}
	return id, nil
}

// OrderState reports the current status of an order.
func (v *Venue) OrderState(orderID string) (models.OrderReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	o, ok := v.orders[orderID]
	if !ok {
		return models.OrderReport{}, fmt.Errorf("unknown order %s", orderID)
	}
	report := o.report
	if report.Status != models.OrderPending {
		delete(v.orders, orderID)
	}
	return report, nil
}

// OpenOrderContracts returns the contract IDs with a pending order.
func (v *Venue) OpenOrderContracts() (map[string]bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	open := make(map[string]bool)
	for _, o := range v.orders {
		if o.report.Status == models.OrderPending {
			open[o.contract.ID] = true
		}
	}
	return open, nil
}

// --- interfaces.Portfolio ---

// Cash returns available cash.
func (v *Venue) Cash() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.startingCash + v.realized
}

// Equity returns cash plus unrealized mark-to-market.
func (v *Venue) Equity() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	equity := v.startingCash + v.realized
	for _, lot := range v.positions {
		m, ok := models.MarketBySymbol(lot.Contract.Root)
		if !ok {
			continue
		}
		last := v.bars[m][len(v.bars[m])-1].Close
		equity += (last - lot.CostBasis) * float64(lot.Quantity) * lot.Contract.Multiplier
	}
	return equity
}

// StartingEquity returns the account's starting cash.
func (v *Venue) StartingEquity() float64 { return v.startingCash }

// OpenPositions returns a copy of the open position lots.
func (v *Venue) OpenPositions() []models.PositionLot {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]models.PositionLot, 0, len(v.positions))
	for _, lot := range v.positions {
		out = append(out, *lot)
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
