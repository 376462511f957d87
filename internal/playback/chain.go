package playback

import "io"

// ChainParams are the live parameters of one track's processing chain:
// a three-band equalizer, a gain stage and a tempo-ratio control, all
// feeding the shared mix bus.
type ChainParams struct {
	Gain       float64 // 0..1
	EQLowDB    float64
	EQMidDB    float64
	EQHighDB   float64
	TempoRatio float64 // 1.0 = native tempo
}

// neutralParams is a silent chain at flat EQ and native tempo
func neutralParams() ChainParams {
	return ChainParams{TempoRatio: 1.0}
}

// chain is one slot in the engine's arena. Transitions address chains by
// slot index, never through captured references, so unloading a chain
// mid-transition cannot leave dangling automation targets.
type chain struct {
	trackID string
	params  ChainParams
	loaded  bool
	failed  bool
	source  io.ReadSeekCloser
}

func (c *chain) load(trackID string, source io.ReadSeekCloser) {
	c.unload()
	c.trackID = trackID
	c.source = source
	c.loaded = true
	c.failed = false
	c.params = neutralParams()
}

// unload releases the source and resets the chain to neutral
func (c *chain) unload() {
	if c.source != nil {
		c.source.Close()
		c.source = nil
	}
	c.loaded = false
	c.params = neutralParams()
}
