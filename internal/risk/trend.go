package risk

import "time"

// Point is one entry of a risk series: a score in [0,1] with the day it was
// recorded. Sequences handed to Trend must be ordered by date ascending.
type Point struct {
	Date  time.Time `json:"date"`
	Score float64   `json:"score"`
	Label string    `json:"label,omitempty"`
}

// Trend labels.
const (
	TrendImproving = "Improving"
	TrendStable    = "Stable"
	TrendWorsening = "Worsening"
)

// trendDelta is the dead band between the two window means; movements within
// it classify as Stable.
const trendDelta = 0.06

// Trend compares the mean of the 3 points ending 3-before-last against the
// mean of the last 3 points. A rise beyond the dead band is Worsening (higher
// scores are worse), a fall beyond it is Improving, anything else Stable.
//
// Fewer than 6 points yields "" rather than a default label: a trend is a
// statement about two full windows, never a guess.
func Trend(points []Point) string {
	n := len(points)
	if n < 6 {
		return ""
	}
	prev := windowMean(points[n-6 : n-3])
	last := windowMean(points[n-3:])
	switch delta := last - prev; {
	case delta > trendDelta:
		return TrendWorsening
	case delta < -trendDelta:
		return TrendImproving
	default:
		return TrendStable
	}
}

func windowMean(w []Point) float64 {
	sum := 0.0
	for _, p := range w {
		sum += p.Score
	}
	return sum / float64(len(w))
}
