// Package suppressor implements a block-based, switch-style acoustic echo
// suppressor. Given a far-end reference signal and a near-end microphone
// signal, it decides once per fixed-duration block whether the microphone is
// dominated by an echo of the reference, and if so drives the output gain
// toward near-silence; otherwise the block passes through at full gain.
//
// It is a gate, not a canceller: no adaptive filter subtracts an echo
// estimate. Detection is a correlation-based lag search over a circular
// history of the reference, combined with a power-ratio guard, a hangover
// counter, and an asymmetric one-pole gain smoother.
package suppressor

import "math"

// powerFloor keeps denominators away from zero on silent or degenerate
// blocks. All power and absolute-value sums are floored to it before
// division, so the hot path never produces NaN or Inf.
const powerFloor = 1e-9

// NoLag is the lag reported when no echo was detected for the block.
const NoLag = -1

// Result carries the outcome of one ProcessBlock call.
type Result struct {
	// Suppressed reports whether the gate was engaged this block, either by
	// a fresh detection or by hangover.
	Suppressed bool

	// Gain is the smoothed gain actually applied to the output block.
	Gain float64

	// Lag is the estimated echo delay in samples, or NoLag when no echo was
	// detected this block.
	Lag int
}

// Suppressor holds the per-stream state of the gate. Calls must be issued in
// strict block order from a single goroutine; use one instance per audio
// stream. Steady-state processing performs no allocation, so ProcessBlock is
// safe inside a real-time audio callback.
type Suppressor struct {
	sampleRate   int
	blockSamples int
	maxLag       int
	lagStep      int
	cfg          Config
	attenLinear  float64

	hist     ring
	gateGain float64
	hangover int
}

// New creates a suppressor for the given sample rate. Blocks are 10 ms:
// sampleRate/100 samples, never less than 1. The lag search window and step
// are derived from cfg, and the reference history is sized to cover the
// window plus four blocks of slack.
func New(sampleRate int, cfg Config) *Suppressor {
	blockSamples := sampleRate / 100
	if blockSamples < 1 {
		blockSamples = 1
	}

	maxLag := sampleRate * cfg.MaxLagMS / 1000
	if maxLag < blockSamples {
		maxLag = blockSamples
	}

	lagStep := sampleRate * cfg.LagStepMS / 1000
	if lagStep < 1 {
		lagStep = 1
	}

	if cfg.HangoverBlocks < 0 {
		cfg.HangoverBlocks = 0
	}

	attenLinear := math.Pow(10, cfg.AttenuationDB/20)
	if attenLinear < 0 {
		attenLinear = 0
	}

	s := &Suppressor{
		sampleRate:   sampleRate,
		blockSamples: blockSamples,
		maxLag:       maxLag,
		lagStep:      lagStep,
		cfg:          cfg,
		attenLinear:  attenLinear,
		hist:         newRing(maxLag + 4*blockSamples),
	}
	s.Reset()
	return s
}

// BlockSamples returns the fixed block length in samples. Every call to
// ProcessBlock must pass slices of exactly this length.
func (s *Suppressor) BlockSamples() int {
	return s.blockSamples
}

// SampleRate returns the sample rate the suppressor was built for.
func (s *Suppressor) SampleRate() int {
	return s.sampleRate
}

// Config returns the tuning the suppressor was built with.
func (s *Suppressor) Config() Config {
	return s.cfg
}

// Reset reinitializes mutable state between sessions without reallocating.
// Not safe to call concurrently with ProcessBlock.
func (s *Suppressor) Reset() {
	s.hist.clear()
	s.gateGain = 1.0
	s.hangover = 0
}

// ProcessBlock consumes one far-end and one near-end block, writes the gated
// near-end samples to out, and returns the applied gain, the suppression verdict
// and the lag estimate. far, mic and out must each be exactly BlockSamples()
// long; mic and out may alias.
func (s *Suppressor) ProcessBlock(far, mic, out []float64) Result {
	s.hist.push(far)

	micPow := 0.0
	for _, v := range mic {
		micPow += v * v
	}
	if micPow < powerFloor {
		micPow = powerFloor
	}

	useAMDF := s.cfg.Metric == MetricAMDF
	micAbs := 0.0
	if useAMDF {
		for _, v := range mic {
			micAbs += math.Abs(v)
		}
		if micAbs < powerFloor {
			micAbs = powerFloor
		}
	}

	bestScore, bestLag, bestFarPow := s.searchLag(mic, micPow, micAbs, useAMDF)

	echo := bestScore > s.cfg.SimilarityThreshold &&
		micPow < s.cfg.PowerRatioCeiling*bestFarPow

	lag := NoLag
	if echo {
		lag = bestLag
	}

	suppress := echo
	if echo {
		s.hangover = s.cfg.HangoverBlocks
	} else if s.hangover > 0 {
		s.hangover--
		suppress = s.hangover > 0
	}

	target := 1.0
	if suppress {
		target = s.attenLinear
	}
	coeff := s.cfg.Release
	if target < s.gateGain {
		coeff = s.cfg.Attack
	}
	s.gateGain = (1-coeff)*s.gateGain + coeff*target

	for i := range out {
		out[i] = mic[i] * s.gateGain
	}

	return Result{Suppressed: suppress, Gain: s.gateGain, Lag: lag}
}

// searchLag scans candidate delays between the reference history and the
// current microphone block, returning the best score, the winning lag and
// the reference power at that lag. The candidate window for lag L is the
// blockSamples reference samples ending L samples before the just-pushed
// far-end block. Cost is O(blockSamples * maxLag / lagStep), the dominant
// cost of the whole gate.
func (s *Suppressor) searchLag(mic []float64, micPow, micAbs float64, useAMDF bool) (float64, int, float64) {
	bestScore := math.Inf(-1)
	bestLag := 0
	bestFarPow := powerFloor

	for lag := 0; lag <= s.maxLag; lag += s.lagStep {
		accum := 0.0
		farPow := 0.0
		farAbs := 0.0
		base := -(s.blockSamples + lag)
		for i := 0; i < s.blockSamples; i++ {
			fx := s.hist.at(base + i)
			my := mic[i]
			farPow += fx * fx
			if useAMDF {
				accum += math.Abs(fx - my)
				farAbs += math.Abs(fx)
			} else {
				accum += fx * my
			}
		}
		if farPow < powerFloor {
			farPow = powerFloor
		}

		var score float64
		if useAMDF {
			denom := micAbs + farAbs
			if denom < powerFloor {
				denom = powerFloor
			}
			score = 1 - accum/denom
			if score > 1 {
				score = 1
			} else if score < -1 {
				score = -1
			}
		} else {
			score = accum / math.Sqrt(farPow*micPow)
		}

		// Strictly greater: equal-scoring later candidates lose, so ties
		// deterministically keep the smaller lag.
		if score > bestScore {
			bestScore = score
			bestLag = lag
			bestFarPow = farPow
		}
	}

	return bestScore, bestLag, bestFarPow
}
