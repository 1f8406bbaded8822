package enhance

import (
	"encoding/binary"
	"errors"
	"fmt"

	"voicekit/core"
)

var (
	// ErrMisalignedInput is returned when the input byte length is not a
	// multiple of the sample width times the channel count.
	ErrMisalignedInput = errors.New("enhance: PCM length not aligned to channel frame size")
	// ErrAlreadyRunning is returned by Start on a running filter. Changing
	// the bound sample rate requires a stop/start cycle.
	ErrAlreadyRunning = errors.New("enhance: filter already started")
)

const fullScale = 32768.0 // int16 full-scale divisor for normalization

// FilterConfig configures a Filter. Channels and FrameSize are fixed for
// the filter's lifetime; the sample rate is bound at Start.
type FilterConfig struct {
	Channels            int     `json:"channels"`
	FrameSize           int     `json:"frame_size"`
	EnhancementStrength float32 `json:"enhancement_strength"`
}

// DefaultFilterConfig matches the engine's mono defaults.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Channels:            1,
		FrameSize:           512,
		EnhancementStrength: 1.0,
	}
}

// Filter converts interleaved 16-bit PCM into normalized, deinterleaved
// float32 samples, accumulates them in a per-channel FIFO, and feeds whole
// FrameSize chunks through a shared enhancement engine.
//
// When a call does not complete a chunk, the input is returned unchanged
// and the samples stay buffered for the next call; per-call output length
// therefore does not track input length across chunk boundaries. Every
// buffered sample surfaces on a later call (or via Flush).
//
// Filter is not safe for concurrent use; calls are expected to arrive
// sequentially from a single pipeline stage.
type Filter struct {
	registry *Registry
	logger   *core.Logger

	channels  int
	frameSize int
	strength  float32

	sampleRate int
	filtering  bool
	running    bool
	enhancer   Enhancer
	buffer     [][]float32 // per-channel FIFO of not-yet-processed samples
}

func NewFilter(registry *Registry, config FilterConfig, logger *core.Logger) *Filter {
	if logger == nil {
		logger = core.GetLogger()
	}
	channels := config.Channels
	if channels <= 0 {
		channels = 1
	}
	frameSize := config.FrameSize
	if frameSize <= 0 {
		frameSize = DefaultFilterConfig().FrameSize
	}
	return &Filter{
		registry:  registry,
		logger:    logger.With(map[string]any{"component": "enhance_filter"}),
		channels:  channels,
		frameSize: frameSize,
		strength:  clampStrength(config.EnhancementStrength),
		filtering: true,
	}
}

// Start binds the filter to sampleRate and obtains the shared engine
// handle. An unavailable engine is a configuration error: the failure
// propagates and the filter stays stopped.
func (f *Filter) Start(sampleRate int) error {
	if f.running {
		return ErrAlreadyRunning
	}

	enhancer, err := f.registry.GetOrCreate(Config{
		SampleRate: sampleRate,
		Channels:   f.channels,
		FrameSize:  f.frameSize,
	})
	if err != nil {
		return err
	}

	f.sampleRate = sampleRate
	f.enhancer = enhancer
	f.enhancer.SetStrength(f.strength)
	f.buffer = make([][]float32, f.channels)
	f.running = true

	f.logger.With(map[string]any{
		"sample_rate": sampleRate,
		"channels":    f.channels,
		"frame_size":  f.frameSize,
		"strength":    f.strength,
	}).Info("enhancement filter started")
	return nil
}

// Stop releases the engine handle reference and clears the buffer without
// flushing. Idempotent.
func (f *Filter) Stop() error {
	f.enhancer = nil
	f.buffer = nil
	f.running = false
	return nil
}

// SetEnabled toggles pass-through mode.
func (f *Filter) SetEnabled(enabled bool) {
	f.filtering = enabled
	f.logger.With(map[string]any{"enabled": enabled}).Info("enhancement filter toggled")
}

// SetStrength clamps the value to [0, 1], stores it, and pushes it to the
// engine when running.
func (f *Filter) SetStrength(strength float32) {
	f.strength = clampStrength(strength)
	if f.running {
		f.enhancer.SetStrength(f.strength)
	}
}

// UpdateSettings applies a control-plane settings mapping. The one
// recognized key is "enhancement_strength"; a non-numeric value is ignored
// with a warning, unknown keys are ignored silently.
func (f *Filter) UpdateSettings(settings map[string]any) {
	raw, ok := settings["enhancement_strength"]
	if !ok {
		return
	}
	value, ok := toFloat32(raw)
	if !ok {
		f.logger.With(map[string]any{"value": raw}).Warn("ignoring non-numeric enhancement_strength")
		return
	}
	old := f.strength
	f.SetStrength(value)
	f.logger.With(map[string]any{"old": old, "new": f.strength}).Info("enhancement strength updated")
}

// Strength returns the stored (clamped) enhancement strength.
func (f *Filter) Strength() float32 {
	return f.strength
}

// Buffered returns the per-channel count of samples awaiting a full chunk.
func (f *Filter) Buffered() int {
	if len(f.buffer) == 0 {
		return 0
	}
	return len(f.buffer[0])
}

// Filter enhances interleaved 16-bit little-endian PCM. Disabled or
// stopped filters return the input unchanged.
func (f *Filter) Filter(pcm []byte) ([]byte, error) {
	if !f.filtering || !f.running {
		return pcm, nil
	}
	if len(pcm)%(2*f.channels) != 0 {
		return nil, fmt.Errorf("%w: %d bytes for %d channels", ErrMisalignedInput, len(pcm), f.channels)
	}

	f.appendSamples(pcm)

	var out [][]float32
	for len(f.buffer[0]) >= f.frameSize {
		chunk := make([][]float32, f.channels)
		for c := range chunk {
			chunk[c] = make([]float32, f.frameSize)
			copy(chunk[c], f.buffer[c][:f.frameSize])
			f.buffer[c] = f.buffer[c][f.frameSize:]
		}
		if err := f.enhancer.ProcessDeinterleaved(chunk); err != nil {
			return nil, fmt.Errorf("enhance: process chunk: %w", err)
		}
		if out == nil {
			out = make([][]float32, f.channels)
		}
		for c := range chunk {
			out[c] = append(out[c], chunk[c]...)
		}
	}

	// No chunk boundary reached: return the input unchanged rather than
	// adding a frame of latency. The samples stay buffered.
	if out == nil {
		return pcm, nil
	}
	return interleaveToPCM(out), nil
}

// Flush zero-pads the buffered remainder to a full chunk, processes it,
// and returns only the unpadded prefix. Stop does not call Flush; use it
// when every sample must be delivered before teardown.
func (f *Filter) Flush() ([]byte, error) {
	if !f.running || f.Buffered() == 0 {
		return []byte{}, nil
	}

	remainder := len(f.buffer[0])
	chunk := make([][]float32, f.channels)
	for c := range chunk {
		chunk[c] = make([]float32, f.frameSize)
		copy(chunk[c], f.buffer[c])
		f.buffer[c] = f.buffer[c][:0]
	}
	if err := f.enhancer.ProcessDeinterleaved(chunk); err != nil {
		return nil, fmt.Errorf("enhance: flush chunk: %w", err)
	}

	out := make([][]float32, f.channels)
	for c := range chunk {
		out[c] = chunk[c][:remainder]
	}
	return interleaveToPCM(out), nil
}

// appendSamples decodes interleaved int16 bytes to normalized float32 and
// appends them per channel to the FIFO.
func (f *Filter) appendSamples(pcm []byte) {
	frames := len(pcm) / 2 / f.channels
	for c := 0; c < f.channels; c++ {
		if cap(f.buffer[c])-len(f.buffer[c]) < frames {
			grown := make([]float32, len(f.buffer[c]), len(f.buffer[c])+frames+f.frameSize)
			copy(grown, f.buffer[c])
			f.buffer[c] = grown
		}
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < f.channels; c++ {
			sample := int16(binary.LittleEndian.Uint16(pcm[(i*f.channels+c)*2:]))
			f.buffer[c] = append(f.buffer[c], float32(sample)/fullScale)
		}
	}
}

// interleaveToPCM converts deinterleaved float32 channels back to
// interleaved 16-bit little-endian PCM, clamping to the representable range.
func interleaveToPCM(channels [][]float32) []byte {
	frames := len(channels[0])
	out := make([]byte, frames*len(channels)*2)
	for i := 0; i < frames; i++ {
		for c := range channels {
			v := channels[c][i] * fullScale
			if v > 32767 {
				v = 32767
			} else if v < -32768 {
				v = -32768
			}
			binary.LittleEndian.PutUint16(out[(i*len(channels)+c)*2:], uint16(int16(v)))
		}
	}
	return out
}

func clampStrength(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toFloat32(v any) (float32, bool) {
	switch n := v.(type) {
	case float64:
		return float32(n), true
	case float32:
		return n, true
	case int:
		return float32(n), true
	case int64:
		return float32(n), true
	default:
		return 0, false
	}
}
