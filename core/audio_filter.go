package core

// AudioFilter transforms raw PCM audio on the transport input path.
//
// Implementations are driven sequentially from a single pipeline stage:
// Filter is never called concurrently on one instance. Start binds the
// filter to the transport's negotiated sample rate; Stop releases any
// acquired resources and must be safe to call more than once.
type AudioFilter interface {
	Start(sampleRate int) error
	Stop() error
	// SetEnabled toggles pass-through mode. While disabled, Filter returns
	// its input unchanged.
	SetEnabled(enabled bool)
	// UpdateSettings applies a settings mapping received from the control
	// plane. Unrecognized keys are ignored.
	UpdateSettings(settings map[string]any)
	// Filter consumes interleaved 16-bit little-endian PCM bytes and returns
	// PCM bytes in the same encoding.
	Filter(pcm []byte) ([]byte, error)
}
