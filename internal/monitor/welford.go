package monitor

import (
	"math"

	"github.com/rewired-gh/gridpulse/internal/models"
)

// UpdateWelford folds price into the running statistics.
func UpdateWelford(stats *models.PriceStats, price float64) {
	stats.Count++
	if stats.Count == 1 {
		stats.Min, stats.Max = price, price
	} else {
		stats.Min = math.Min(stats.Min, price)
		stats.Max = math.Max(stats.Max, price)
	}
	delta := price - stats.Mean
	stats.Mean += delta / float64(stats.Count)
	delta2 := price - stats.Mean
	stats.M2 += delta * delta2
	stats.Last = price
}

// GetSigma returns the sample standard deviation, or 0 with fewer than two samples.
func GetSigma(stats *models.PriceStats) float64 {
	if stats.Count < 2 {
		return 0
	}
	return math.Sqrt(stats.M2 / float64(stats.Count-1))
}
