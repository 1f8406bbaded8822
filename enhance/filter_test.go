package enhance

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityEnhancer leaves chunks untouched but records what it saw.
type identityEnhancer struct {
	strength float32
	chunks   int
}

func (e *identityEnhancer) SetStrength(strength float32) { e.strength = strength }

func (e *identityEnhancer) ProcessDeinterleaved(chunk [][]float32) error {
	e.chunks++
	return nil
}

// halvingEnhancer scales every sample by 0.5 so processed output is
// distinguishable from pass-through.
type halvingEnhancer struct{}

func (e *halvingEnhancer) SetStrength(float32) {}

func (e *halvingEnhancer) ProcessDeinterleaved(chunk [][]float32) error {
	for c := range chunk {
		for i := range chunk[c] {
			chunk[c][i] *= 0.5
		}
	}
	return nil
}

func newTestFilter(t *testing.T, cfg FilterConfig, enhancer Enhancer) (*Filter, *Registry) {
	t.Helper()
	registry := NewRegistry(func(Config) (Enhancer, error) { return enhancer, nil })
	return NewFilter(registry, cfg, nil), registry
}

// sinePCM builds interleaved int16 PCM of a 440Hz tone, frames samples per channel.
func sinePCM(frames, channels int) []byte {
	out := make([]byte, frames*channels*2)
	for i := 0; i < frames; i++ {
		sample := int16(10000 * math.Sin(2*math.Pi*440*float64(i)/16000))
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(out[(i*channels+c)*2:], uint16(sample))
		}
	}
	return out
}

func TestFilterDisabledIsIdentity(t *testing.T) {
	f, _ := newTestFilter(t, DefaultFilterConfig(), &halvingEnhancer{})
	require.NoError(t, f.Start(16000))
	f.SetEnabled(false)

	input := sinePCM(512, 1)
	output, err := f.Filter(input)
	require.NoError(t, err)
	assert.Equal(t, input, output, "disabled filter must return input byte-identical")
	assert.Equal(t, 0, f.Buffered(), "disabled filter must not buffer")
}

func TestFilterStoppedIsIdentity(t *testing.T) {
	f, _ := newTestFilter(t, DefaultFilterConfig(), &halvingEnhancer{})

	input := sinePCM(100, 1)
	output, err := f.Filter(input)
	require.NoError(t, err)
	assert.Equal(t, input, output)
}

func TestFilterBuffersUntilChunkBoundary(t *testing.T) {
	enhancer := &identityEnhancer{}
	f, _ := newTestFilter(t, FilterConfig{Channels: 1, FrameSize: 512, EnhancementStrength: 1.0}, enhancer)
	require.NoError(t, f.Start(16000))

	// 256 samples: below the chunk size, so the call returns its input
	// unchanged while the samples stay buffered.
	first := sinePCM(256, 1)
	output, err := f.Filter(first)
	require.NoError(t, err)
	assert.Equal(t, first, output)
	assert.Equal(t, 256, f.Buffered())
	assert.Equal(t, 0, enhancer.chunks)

	// Another 256 completes exactly one 512-sample chunk.
	second := sinePCM(256, 1)
	output, err = f.Filter(second)
	require.NoError(t, err)
	assert.Len(t, output, 512*2, "one full chunk of int16 samples")
	assert.Equal(t, 0, f.Buffered(), "buffer must be empty after an exact chunk")
	assert.Equal(t, 1, enhancer.chunks)
}

func TestFilterOutputReflectsProcessing(t *testing.T) {
	f, _ := newTestFilter(t, FilterConfig{Channels: 1, FrameSize: 4, EnhancementStrength: 1.0}, &halvingEnhancer{})
	require.NoError(t, f.Start(16000))

	input := make([]byte, 4*2)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(input[i*2:], uint16(int16(1000)))
	}
	output, err := f.Filter(input)
	require.NoError(t, err)
	require.Len(t, output, len(input))
	for i := 0; i < 4; i++ {
		got := int16(binary.LittleEndian.Uint16(output[i*2:]))
		assert.Equal(t, int16(500), got)
	}
}

func TestFilterStereoRoundTrip(t *testing.T) {
	f, _ := newTestFilter(t, FilterConfig{Channels: 2, FrameSize: 4, EnhancementStrength: 1.0}, &identityEnhancer{})
	require.NoError(t, f.Start(16000))

	// 4 interleaved frames: L0 R0 L1 R1 L2 R2 L3 R3, distinct per slot.
	input := make([]byte, 8*2)
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint16(input[i*2:], uint16(int16(i*100-400)))
	}
	output, err := f.Filter(input)
	require.NoError(t, err)
	assert.Equal(t, input, output, "identity engine must preserve interleave ordering")
	assert.Equal(t, 0, f.Buffered())
}

func TestFilterMultipleChunksPerCall(t *testing.T) {
	enhancer := &identityEnhancer{}
	f, _ := newTestFilter(t, FilterConfig{Channels: 1, FrameSize: 512, EnhancementStrength: 1.0}, enhancer)
	require.NoError(t, f.Start(16000))

	output, err := f.Filter(sinePCM(1100, 1))
	require.NoError(t, err)
	assert.Len(t, output, 1024*2, "two whole chunks out")
	assert.Equal(t, 76, f.Buffered(), "remainder stays buffered")
	assert.Equal(t, 2, enhancer.chunks)
}

func TestFilterMisalignedInput(t *testing.T) {
	f, _ := newTestFilter(t, FilterConfig{Channels: 2, FrameSize: 4, EnhancementStrength: 1.0}, &identityEnhancer{})
	require.NoError(t, f.Start(16000))

	_, err := f.Filter(make([]byte, 6)) // 3 samples across 2 channels
	assert.ErrorIs(t, err, ErrMisalignedInput)

	_, err = f.Filter(make([]byte, 5)) // odd byte count
	assert.ErrorIs(t, err, ErrMisalignedInput)
}

func TestFilterStrengthClamping(t *testing.T) {
	enhancer := &identityEnhancer{}
	f, _ := newTestFilter(t, DefaultFilterConfig(), enhancer)

	f.SetStrength(-1.0)
	assert.Equal(t, float32(0.0), f.Strength())
	f.SetStrength(2.0)
	assert.Equal(t, float32(1.0), f.Strength())

	// Once running, updates are pushed to the engine.
	require.NoError(t, f.Start(16000))
	f.SetStrength(0.25)
	assert.Equal(t, float32(0.25), enhancer.strength)
}

func TestFilterStartPushesStoredStrength(t *testing.T) {
	enhancer := &identityEnhancer{}
	f, _ := newTestFilter(t, FilterConfig{Channels: 1, FrameSize: 512, EnhancementStrength: 0.7}, enhancer)
	require.NoError(t, f.Start(16000))
	assert.Equal(t, float32(0.7), enhancer.strength)
}

func TestFilterUpdateSettings(t *testing.T) {
	enhancer := &identityEnhancer{}
	f, _ := newTestFilter(t, DefaultFilterConfig(), enhancer)
	require.NoError(t, f.Start(16000))

	f.UpdateSettings(map[string]any{"enhancement_strength": 0.3})
	assert.InDelta(t, 0.3, f.Strength(), 1e-6)

	// Non-numeric values are ignored, not applied and not fatal.
	f.UpdateSettings(map[string]any{"enhancement_strength": "loud"})
	assert.InDelta(t, 0.3, f.Strength(), 1e-6)

	// Unknown keys are ignored.
	f.UpdateSettings(map[string]any{"reverb": 0.9})
	assert.InDelta(t, 0.3, f.Strength(), 1e-6)
}

func TestFilterStartStopLifecycle(t *testing.T) {
	f, _ := newTestFilter(t, DefaultFilterConfig(), &identityEnhancer{})
	require.NoError(t, f.Start(16000))
	assert.ErrorIs(t, f.Start(16000), ErrAlreadyRunning)

	require.NoError(t, f.Stop())
	require.NoError(t, f.Stop(), "stop must be idempotent")

	// A new start/stop cycle re-binds cleanly.
	require.NoError(t, f.Start(8000))
}

func TestFilterStartFailsWhenEngineUnavailable(t *testing.T) {
	registry := NewRegistry(func(Config) (Enhancer, error) {
		return nil, assert.AnError
	})
	f := NewFilter(registry, DefaultFilterConfig(), nil)
	err := f.Start(16000)
	require.Error(t, err)

	// The filter stays stopped and passes audio through.
	input := sinePCM(512, 1)
	output, ferr := f.Filter(input)
	require.NoError(t, ferr)
	assert.Equal(t, input, output)
}

func TestFilterFlushDrainsRemainder(t *testing.T) {
	enhancer := &identityEnhancer{}
	f, _ := newTestFilter(t, FilterConfig{Channels: 1, FrameSize: 512, EnhancementStrength: 1.0}, enhancer)
	require.NoError(t, f.Start(16000))

	input := sinePCM(300, 1)
	output, err := f.Filter(input)
	require.NoError(t, err)
	assert.Equal(t, input, output)
	assert.Equal(t, 300, f.Buffered())

	flushed, err := f.Flush()
	require.NoError(t, err)
	assert.Len(t, flushed, 300*2, "flush returns only the unpadded prefix")
	assert.Equal(t, 0, f.Buffered())
	assert.Equal(t, 1, enhancer.chunks)

	// Nothing left: flush again is empty.
	flushed, err = f.Flush()
	require.NoError(t, err)
	assert.Empty(t, flushed)
}

func TestFiltersShareEngineThroughRegistry(t *testing.T) {
	constructed := 0
	registry := NewRegistry(func(Config) (Enhancer, error) {
		constructed++
		return &identityEnhancer{}, nil
	})

	cfg := FilterConfig{Channels: 1, FrameSize: 512, EnhancementStrength: 1.0}
	a := NewFilter(registry, cfg, nil)
	b := NewFilter(registry, cfg, nil)
	require.NoError(t, a.Start(16000))
	require.NoError(t, b.Start(16000))
	assert.Equal(t, 1, constructed, "same config must share one engine")

	c := NewFilter(registry, FilterConfig{Channels: 1, FrameSize: 256, EnhancementStrength: 1.0}, nil)
	require.NoError(t, c.Start(16000))
	assert.Equal(t, 2, constructed, "different frame size needs its own engine")
}
