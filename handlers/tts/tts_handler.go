package tts

import (
	"voicekit/core"
	"voicekit/events/llm"
	"voicekit/events/tts"
)

type TTSService interface {
	core.IService
	Synthesize(text string) (core.AudioChunk, error)
}

// TTSHandler speaks each completed assistant response. Synthesis runs on its
// own goroutine so slow TTS round trips never stall event delivery.
type TTSHandler struct {
	core.BaseHandler
	config TTSConfig
}

func NewTTSHandler(service TTSService, config TTSConfig) *TTSHandler {
	return &TTSHandler{
		BaseHandler: *core.NewBaseHandler(service),
		config:      config,
	}
}

func (h *TTSHandler) HandleEvent(eventPacket *core.EventPacket) error {
	if event, ok := eventPacket.Event.(*llm.LLMResponseCompletedEvent); ok {
		text := normalizeTextForTTS(event.FullText)
		if len(text) >= h.config.MinTextLength && text != "" {
			go h.synthesize(text)
		}
	}
	h.SendPacket(eventPacket)
	return nil
}

func (h *TTSHandler) synthesize(text string) {
	chunk, err := h.Service.(TTSService).Synthesize(text)
	if err != nil {
		h.FatalServiceErrorChan <- err
		return
	}
	h.SendPacket(core.NewEventPacket(&tts.TTSOutputEvent{
		AudioChunk: chunk,
	}, core.EventRelayDestinationNextService, "TTSHandler"))
}
