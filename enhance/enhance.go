// Package enhance adapts a continuous PCM byte stream to a chunk-based
// audio enhancement engine. It contains the engine instance registry and
// the framing filter that buffers, deinterleaves, and converts audio into
// the fixed-size float32 chunks the engine consumes.
package enhance

// Config identifies one engine instance. Two filters with an identical
// Config share the same underlying engine.
type Config struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
	FrameSize  int `json:"frame_size"`
}

// Enhancer is the opaque enhancement engine handle. Implementations are
// stateful and shared between all filters with the same Config; they must
// be safe for sequential use from each owning filter.
type Enhancer interface {
	// SetStrength sets the enhancement strength. Callers pass values
	// already clamped to [0, 1].
	SetStrength(strength float32)
	// ProcessDeinterleaved enhances one chunk in place. The chunk has
	// Config.Channels slices of exactly Config.FrameSize samples each.
	ProcessDeinterleaved(chunk [][]float32) error
}

// Factory constructs an Enhancer for a configuration. The production
// factory binds the native engine (see the acoustics package); tests
// inject stubs.
type Factory func(cfg Config) (Enhancer, error)
