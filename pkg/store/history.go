package store

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/gregtusar/predictdesk/pkg/models"
)

const (
	historyWindow = 30 * 24 * time.Hour
	historyStep   = 4 * time.Hour
)

// generatePriceHistory builds a synthetic 30-day YES/NO series drifting toward
// the market's current price. The walk is seeded from the market key so the
// same market always gets the same curve; the final point is pinned to the
// live prices.
func generatePriceHistory(m *models.Market, now time.Time) []models.PriceHistory {
	h := fnv.New64a()
	h.Write([]byte(m.Key().String()))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	current := clamp(m.YesPrice+(rng.Float64()-0.5)*0.3, 0.1, 0.9)
	start := now.Add(-historyWindow)

	history := make([]models.PriceHistory, 0, int(historyWindow/historyStep)+1)
	for t := start; !t.After(now); t = t.Add(historyStep) {
		drift := (m.YesPrice - current) * 0.02
		walk := (rng.Float64() - 0.5) * 0.04
		current = clamp(current+drift+walk, 0.05, 0.95)

		history = append(history, models.PriceHistory{
			Timestamp: t.UTC(),
			YesPrice:  current,
			NoPrice:   1 - current,
			Volume:    math.Floor(rng.Float64()*50000) + 10000,
		})
	}

	history[len(history)-1] = models.PriceHistory{
		Timestamp: now.UTC(),
		YesPrice:  m.YesPrice,
		NoPrice:   m.NoPrice,
		Volume:    math.Floor(m.Volume / 30),
	}
	return history
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
