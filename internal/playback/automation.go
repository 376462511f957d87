package playback

import "math"

// chainParam addresses one automatable parameter of a chain
type chainParam int

const (
	paramGain chainParam = iota
	paramEQLow
	paramEQMid
	paramEQHigh
	paramTempo
)

// curve shapes the progress of a ramp
type curve int

const (
	curveLinear curve = iota
	// curveEqualPowerOut follows cos over [0, pi/2]: the outgoing half
	// of an equal-power crossfade
	curveEqualPowerOut
	// curveEqualPowerIn follows sin over [0, pi/2]: the incoming half
	curveEqualPowerIn
)

// ramp is one scheduled parameter automation, expressed against
// absolute transport-clock offsets. A ramp with endMs <= startMs is an
// instantaneous set once the clock passes startMs.
type ramp struct {
	slot    int
	param   chainParam
	startMs int64
	endMs   int64
	from    float64
	to      float64
	curve   curve

	// steps > 0 quantizes progress into that many discrete steps
	steps int
}

// valueAt evaluates the ramp at a clock offset. Before startMs the ramp
// holds its starting value; after endMs its target.
func (r *ramp) valueAt(nowMs int64) float64 {
	if nowMs < r.startMs {
		return r.from
	}
	if r.endMs <= r.startMs || nowMs >= r.endMs {
		return r.to
	}

	p := float64(nowMs-r.startMs) / float64(r.endMs-r.startMs)
	if r.steps > 0 {
		p = math.Floor(p*float64(r.steps)) / float64(r.steps)
	}

	var w float64
	switch r.curve {
	case curveEqualPowerOut:
		// weight runs 0 -> 1 while the value follows cos from "from"
		// down to "to"
		w = 1 - math.Cos(p*math.Pi/2)
	case curveEqualPowerIn:
		w = math.Sin(p * math.Pi / 2)
	default:
		w = p
	}

	return r.from + (r.to-r.from)*w
}

// started reports whether the ramp influences its parameter at the
// given clock offset
func (r *ramp) started(nowMs int64) bool {
	return nowMs >= r.startMs
}

// applyRamps evaluates every scheduled ramp against the clock and
// writes the results into the chain arena. Ramps apply in schedule
// order, so a later ramp on the same parameter wins.
func applyRamps(chains []chain, ramps []ramp, nowMs int64) {
	for i := range ramps {
		r := &ramps[i]
		if !r.started(nowMs) {
			continue
		}
		if r.slot < 0 || r.slot >= len(chains) {
			continue
		}

		v := r.valueAt(nowMs)
		c := &chains[r.slot]
		switch r.param {
		case paramGain:
			c.params.Gain = v
		case paramEQLow:
			c.params.EQLowDB = v
		case paramEQMid:
			c.params.EQMidDB = v
		case paramEQHigh:
			c.params.EQHighDB = v
		case paramTempo:
			c.params.TempoRatio = v
		}
	}
}
