package market

import (
	"strings"

	"turtle-trader/logging"
	"turtle-trader/models"
)

// WindowManager reshapes raw feed history into validated per-market OHLC
// windows. Markets with any missing bar over the window are dropped for the
// cycle; a dropped market simply does nothing until its data is complete
// again.
type WindowManager struct {
	Lookback int
	Logger   logging.LoggerInterface
}

// NewWindowManager creates a new window manager.
func NewWindowManager(lookback int, logger logging.LoggerInterface) *WindowManager {
	return &WindowManager{Lookback: lookback, Logger: logger}
}

// Build validates one cycle's history. The result is indexed by market; a nil
// entry means the market was dropped. The second return lists the dropped
// root symbols for logging and status.
func (wm *WindowManager) Build(series []models.Series) ([]*models.Window, []string) {
	windows := make([]*models.Window, models.NumMarkets())
	var dropped []string

	for i := range windows {
		m := models.Market(i)
		if i >= len(series) {
			dropped = append(dropped, m.Symbol())
			continue
		}
		s := series[i]
		if s.Len() < wm.Lookback || s.HasGaps() {
			dropped = append(dropped, m.Symbol())
			continue
		}
		n := s.Len()
		windows[i] = &models.Window{
			High:  s.High[n-wm.Lookback:],
			Low:   s.Low[n-wm.Lookback:],
			Close: s.Close[n-wm.Lookback:],
		}
	}

	if len(dropped) > 0 {
		wm.Logger.Debug("Null prices for %s. Dropped.", strings.Join(dropped, ", "))
	}
	return windows, dropped
}
