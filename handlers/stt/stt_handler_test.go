package stt

import (
	"context"
	"testing"
	"time"

	"voicekit/core"
	"voicekit/events/stt"
	"voicekit/events/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTTService struct {
	outChan        chan<- string
	interimOutChan chan<- string
	sent           [][]byte
}

func (f *fakeSTTService) Init(ctx context.Context) error { return nil }
func (f *fakeSTTService) Cleanup() error                 { return nil }
func (f *fakeSTTService) Reset() error                   { return nil }

func (f *fakeSTTService) StartTranscriptionSession(
	outChan chan<- string,
	interimOutChan chan<- string,
	fatalErrChan chan<- error,
) {
	f.outChan = outChan
	f.interimOutChan = interimOutChan
}

func (f *fakeSTTService) SendTranscriptionAudio(audioData []byte) error {
	f.sent = append(f.sent, audioData)
	return nil
}

func newStartedHandler(t *testing.T, service *fakeSTTService) (*STTHandler, chan *core.EventPacket, context.CancelFunc) {
	t.Helper()
	handler := NewSTTHandler(service, DefaultConfig())
	input := make(chan *core.EventPacket, 8)
	next := make(chan *core.EventPacket, 8)
	top := make(chan *core.EventPacket, 8)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, handler.Initialize(input, next, top, ctx))
	require.NoError(t, handler.Start())
	return handler, next, cancel
}

func TestSTTHandlerForwardsAudioToService(t *testing.T) {
	service := &fakeSTTService{}
	handler, next, cancel := newStartedHandler(t, service)
	defer cancel()

	pcm := []byte{1, 0, 2, 0}
	require.NoError(t, handler.HandleEvent(core.NewEventPacket(&transport.TransportAudioInputEvent{
		AudioChunk: core.AudioChunk{Data: &pcm, SampleRate: 16000, Channels: 1, Format: core.PCM},
	}, core.EventRelayDestinationNextService, "test")))

	require.Len(t, service.sent, 1)
	assert.Equal(t, pcm, service.sent[0])

	// The audio event continues down the chain for later stages.
	packet := <-next
	_, ok := packet.Event.(*transport.TransportAudioInputEvent)
	assert.True(t, ok)
}

func TestSTTHandlerEmitsTranscriptEvents(t *testing.T) {
	service := &fakeSTTService{}
	_, next, cancel := newStartedHandler(t, service)
	defer cancel()

	require.NotNil(t, service.outChan)
	service.interimOutChan <- "hel"
	service.outChan <- "hello there"

	expectEvent := func(want core.IEvent) {
		select {
		case packet := <-next:
			assert.IsType(t, want, packet.Event)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %T", want)
		}
	}
	expectEvent(&stt.STTInterimOutputEvent{})
	expectEvent(&stt.STTFinalOutputEvent{})
}

func TestSTTHandlerPassesThroughUnrelatedEvents(t *testing.T) {
	service := &fakeSTTService{}
	handler, next, cancel := newStartedHandler(t, service)
	defer cancel()

	require.NoError(t, handler.HandleEvent(core.NewEventPacket(&transport.TransportTextInputEvent{
		Text: "typed",
	}, core.EventRelayDestinationNextService, "test")))

	packet := <-next
	event, ok := packet.Event.(*transport.TransportTextInputEvent)
	require.True(t, ok)
	assert.Equal(t, "typed", event.Text)
	assert.Empty(t, service.sent)
}
