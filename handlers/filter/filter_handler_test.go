package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicekit/core"
	"voicekit/events/filterctl"
	"voicekit/events/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFilter records calls and marks every filtered buffer.
type fakeFilter struct {
	startRate   int
	startErr    error
	stopped     int
	enabled     *bool
	settings    map[string]any
	filterErr   error
	filterCalls int
}

func (f *fakeFilter) Start(sampleRate int) error {
	f.startRate = sampleRate
	return f.startErr
}

func (f *fakeFilter) Stop() error {
	f.stopped++
	return nil
}

func (f *fakeFilter) SetEnabled(enabled bool) {
	f.enabled = &enabled
}

func (f *fakeFilter) UpdateSettings(settings map[string]any) {
	f.settings = settings
}

func (f *fakeFilter) Filter(pcm []byte) ([]byte, error) {
	f.filterCalls++
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	out := make([]byte, len(pcm))
	for i, b := range pcm {
		out[i] = b + 1
	}
	return out, nil
}

func newTestHandler(t *testing.T, fake *fakeFilter) (*FilterHandler, chan *core.EventPacket, chan *core.EventPacket, context.CancelFunc) {
	t.Helper()
	handler := NewFilterHandler(fake, nil)
	input := make(chan *core.EventPacket, 8)
	next := make(chan *core.EventPacket, 8)
	top := make(chan *core.EventPacket, 8)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, handler.Initialize(input, next, top, ctx))
	return handler, next, top, cancel
}

func audioPacket(data []byte, sampleRate int) *core.EventPacket {
	return core.NewEventPacket(&transport.TransportAudioInputEvent{
		AudioChunk: core.AudioChunk{
			Data:       &data,
			SampleRate: sampleRate,
			Channels:   1,
			Format:     core.PCM,
		},
	}, core.EventRelayDestinationNextService, "test")
}

func TestFilterHandlerStartsLazilyAndFilters(t *testing.T) {
	fake := &fakeFilter{}
	handler, next, _, cancel := newTestHandler(t, fake)
	defer cancel()

	require.NoError(t, handler.HandleEvent(audioPacket([]byte{1, 2, 3, 4}, 16000)))
	assert.Equal(t, 16000, fake.startRate, "filter binds to the chunk's sample rate")
	assert.Equal(t, 1, fake.filterCalls)

	packet := <-next
	event := packet.Event.(*transport.TransportAudioInputEvent)
	assert.Equal(t, []byte{2, 3, 4, 5}, *event.AudioChunk.Data, "forwarded audio is the filtered buffer")

	// Second chunk must not restart the filter.
	require.NoError(t, handler.HandleEvent(audioPacket([]byte{0, 0}, 16000)))
	<-next
	assert.Equal(t, 2, fake.filterCalls)
}

func TestFilterHandlerControlEvents(t *testing.T) {
	fake := &fakeFilter{}
	handler, next, _, cancel := newTestHandler(t, fake)
	defer cancel()

	require.NoError(t, handler.HandleEvent(core.NewEventPacket(
		&filterctl.FilterEnableEvent{Enabled: false},
		core.EventRelayDestinationNextService, "test",
	)))
	require.NotNil(t, fake.enabled)
	assert.False(t, *fake.enabled)
	<-next // control events are forwarded downstream

	settings := map[string]any{"enhancement_strength": 0.5}
	require.NoError(t, handler.HandleEvent(core.NewEventPacket(
		&filterctl.FilterUpdateSettingsEvent{Settings: settings},
		core.EventRelayDestinationNextService, "test",
	)))
	assert.Equal(t, settings, fake.settings)
}

func TestFilterHandlerFatalOnStartFailure(t *testing.T) {
	fake := &fakeFilter{startErr: errors.New("engine unavailable")}
	handler, next, top, cancel := newTestHandler(t, fake)
	defer cancel()

	require.NoError(t, handler.HandleEvent(audioPacket([]byte{1, 2}, 16000)))

	select {
	case packet := <-top:
		critical, ok := packet.Event.(*core.CriticalErrorEvent)
		require.True(t, ok)
		assert.Contains(t, critical.Error, "engine unavailable")
	case <-time.After(time.Second):
		t.Fatal("expected a critical error event")
	}

	// Later audio passes through without retrying the engine.
	require.NoError(t, handler.HandleEvent(audioPacket([]byte{5, 6}, 16000)))
	packet := <-next
	event := packet.Event.(*transport.TransportAudioInputEvent)
	assert.Equal(t, []byte{5, 6}, *event.AudioChunk.Data)
	assert.Equal(t, 0, fake.filterCalls)
}

func TestFilterHandlerForwardsOriginalOnFilterError(t *testing.T) {
	fake := &fakeFilter{filterErr: errors.New("misaligned input")}
	handler, next, top, cancel := newTestHandler(t, fake)
	defer cancel()

	require.NoError(t, handler.HandleEvent(audioPacket([]byte{9, 9}, 16000)))

	packet := <-next
	event := packet.Event.(*transport.TransportAudioInputEvent)
	assert.Equal(t, []byte{9, 9}, *event.AudioChunk.Data, "original audio is forwarded")

	select {
	case packet := <-top:
		warning, ok := packet.Event.(*core.WarningEvent)
		require.True(t, ok)
		assert.Contains(t, warning.Error, "misaligned")
	case <-time.After(time.Second):
		t.Fatal("expected a warning event")
	}
}

func TestFilterHandlerCleanupStopsFilter(t *testing.T) {
	fake := &fakeFilter{}
	handler, _, _, cancel := newTestHandler(t, fake)
	defer cancel()

	require.NoError(t, handler.HandleEvent(audioPacket([]byte{1, 2}, 16000)))
	require.NoError(t, handler.Cleanup())
	assert.Equal(t, 1, fake.stopped)
}
