package stt

import (
	"voicekit/core"
	"voicekit/events/stt"
	"voicekit/events/transport"
	"voicekit/utils/audio"
)

type ISTTService interface {
	core.IService
	StartTranscriptionSession(outChan chan<- string, interimOutChan chan<- string, fatalErrChan chan<- error)
	SendTranscriptionAudio(audioData []byte) error
}

// STTHandler streams the inbound audio to a transcription service and turns
// its results into transcript events.
type STTHandler struct {
	core.BaseHandler
	messageOutChan chan string
	interimOutChan chan string
	config         STTConfig
}

func NewSTTHandler(service ISTTService, config STTConfig) *STTHandler {
	return &STTHandler{
		BaseHandler: *core.NewBaseHandler(service),
		config:      config,
	}
}

func (h *STTHandler) Start() error {
	h.messageOutChan = make(chan string)
	h.interimOutChan = make(chan string)
	go h.eventLoop()
	h.Service.(ISTTService).StartTranscriptionSession(h.messageOutChan, h.interimOutChan, h.FatalServiceErrorChan)
	return nil
}

// eventLoop relays transcription results from the service session into the
// pipeline.
func (h *STTHandler) eventLoop() {
	for {
		select {
		case text := <-h.messageOutChan:
			h.SendPacket(core.NewEventPacket(&stt.STTFinalOutputEvent{
				Text: text,
			}, core.EventRelayDestinationNextService, "STTHandler"))

		case text := <-h.interimOutChan:
			h.SendPacket(core.NewEventPacket(&stt.STTInterimOutputEvent{
				Text: text,
			}, core.EventRelayDestinationNextService, "STTHandler"))

		case <-h.Ctx.Done():
			return
		}
	}
}

func (h *STTHandler) HandleEvent(eventPacket *core.EventPacket) error {
	if event, ok := eventPacket.Event.(*transport.TransportAudioInputEvent); ok {
		processed, err := audio.ConvertAudioChunk(event.AudioChunk, h.config.RequiredAudioFormat, h.config.RequiredChannels)
		if err == nil {
			err = h.Service.(ISTTService).SendTranscriptionAudio(*processed.Data)
		}
		if err != nil {
			// Transient while the service is still dialing; the session
			// reconnect loop owns fatal transport failures.
			select {
			case h.HandlerErrorChan <- err:
			default:
			}
		}
	}
	h.SendPacket(eventPacket)
	return nil
}
