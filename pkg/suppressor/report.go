package suppressor

import "fmt"

// GainMeter renders a gain value as a coarse 4-level ASCII meter, the format
// the demo tools print next to the numeric gain. Thresholds sit at 5%, 25%,
// 50% and 75% of full gain.
func GainMeter(gain float64) string {
	g := gain
	if g < 0 {
		g = 0
	} else if g > 1 {
		g = 1
	}
	switch {
	case g <= 0.05:
		return "    "
	case g <= 0.25:
		return "*   "
	case g <= 0.50:
		return "**  "
	case g <= 0.75:
		return "*** "
	}
	return "****"
}

// Report is the per-block diagnostic record consumed by the demo tools and
// the websocket monitor.
type Report struct {
	Block      uint64  `json:"block"`
	Gain       float64 `json:"gain"`
	Lag        int     `json:"lag"`
	Suppressed bool    `json:"suppressed"`
}

// MutePercent returns how much of the signal is being muted, in percent.
func (r Report) MutePercent() float64 {
	m := (1 - r.Gain) * 100
	if m < 0 {
		m = 0
	}
	return m
}

// Meter returns the 4-level gain meter for this block.
func (r Report) Meter() string {
	return GainMeter(r.Gain)
}

// String renders the per-block diagnostic line:
//
//	[block 42] mute=99.0% (gain=0.010 *   , lag=320 samples)
//
// with "lag=--" when no echo was detected.
func (r Report) String() string {
	if r.Lag == NoLag {
		return fmt.Sprintf("[block %d] mute=%.1f%% (gain=%.3f %s, lag=--)",
			r.Block, r.MutePercent(), r.Gain, r.Meter())
	}
	return fmt.Sprintf("[block %d] mute=%.1f%% (gain=%.3f %s, lag=%d samples)",
		r.Block, r.MutePercent(), r.Gain, r.Meter(), r.Lag)
}

// LagStats keeps a rolling window of recent lag estimates for display. It is
// observation glue for the demos, not part of the detection path; NoLag
// values are ignored.
type LagStats struct {
	window []int
	limit  int
	sum    int64
	last   int
}

// NewLagStats creates a tracker averaging over the last limit estimates.
func NewLagStats(limit int) *LagStats {
	if limit < 1 {
		limit = 1
	}
	return &LagStats{
		window: make([]int, 0, limit),
		limit:  limit,
		last:   NoLag,
	}
}

// Add records a lag estimate. Negative lags (NoLag) are ignored.
func (ls *LagStats) Add(lag int) {
	if lag < 0 {
		return
	}
	if len(ls.window) == ls.limit {
		ls.sum -= int64(ls.window[0])
		copy(ls.window, ls.window[1:])
		ls.window = ls.window[:ls.limit-1]
	}
	ls.window = append(ls.window, lag)
	ls.sum += int64(lag)
	ls.last = lag
}

// Ready reports whether at least one estimate has been recorded.
func (ls *LagStats) Ready() bool {
	return len(ls.window) > 0
}

// Window returns the number of estimates currently averaged over.
func (ls *LagStats) Window() int {
	return len(ls.window)
}

// Avg returns the mean lag over the window, or 0 before any estimate.
func (ls *LagStats) Avg() float64 {
	if len(ls.window) == 0 {
		return 0
	}
	return float64(ls.sum) / float64(len(ls.window))
}

// Min returns the smallest lag in the window, or NoLag before any estimate.
func (ls *LagStats) Min() int {
	if len(ls.window) == 0 {
		return NoLag
	}
	min := ls.window[0]
	for _, v := range ls.window[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the largest lag in the window, or NoLag before any estimate.
func (ls *LagStats) Max() int {
	if len(ls.window) == 0 {
		return NoLag
	}
	max := ls.window[0]
	for _, v := range ls.window[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Last returns the most recent estimate, or NoLag before any estimate.
func (ls *LagStats) Last() int {
	return ls.last
}

// String renders the stats suffix the live demo appends to the block line,
// e.g. "avg10=318.4, min=312, max=324, last=320".
func (ls *LagStats) String() string {
	return fmt.Sprintf("avg%d=%.1f, min=%d, max=%d, last=%d",
		len(ls.window), ls.Avg(), ls.Min(), ls.Max(), ls.Last())
}
