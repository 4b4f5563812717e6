package correlation

import (
	"fmt"
	"time"

	"github.com/irfndi/etfflow-go/internal/models"
)

// Align pairs flows and prices on the dates they share, in ascending order,
// keeping the first min(len(flows), len(prices), window) pairs. A window of
// zero or less disables the window cap. Fewer than minPoints pairs yields
// ErrInsufficientData together with whatever was paired.
func Align(flows, prices models.Series, window, minPoints int) (models.AlignedPair, error) {
	priceByDay := make(map[string]models.DailyRecord, len(prices))
	for _, r := range prices.Sort() {
		priceByDay[models.DateKey(r.Date)] = r
	}

	limit := min(len(flows), len(prices))
	if window > 0 {
		limit = min(limit, window)
	}

	pair := models.AlignedPair{
		Dates:  make([]time.Time, 0, limit),
		Flows:  make(models.Series, 0, limit),
		Prices: make(models.Series, 0, limit),
	}

	for _, f := range flows.Sort() {
		if len(pair.Dates) >= limit {
			break
		}
		p, ok := priceByDay[models.DateKey(f.Date)]
		if !ok {
			continue
		}
		pair.Dates = append(pair.Dates, f.Date)
		pair.Flows = append(pair.Flows, f)
		pair.Prices = append(pair.Prices, models.DailyRecord{Date: f.Date, Value: p.Value})
	}

	if pair.Len() < minPoints {
		return pair, fmt.Errorf("%w: %d paired dates, need %d", ErrInsufficientData, pair.Len(), minPoints)
	}
	return pair, nil
}
