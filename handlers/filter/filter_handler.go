package filter

import (
	"voicekit/core"
	"voicekit/events/filterctl"
	"voicekit/events/transport"
)

// FilterHandler runs a core.AudioFilter over the transport input audio
// stream and applies control events arriving in-band.
//
// The filter is started lazily on the first audio chunk so it binds to the
// sample rate the transport actually negotiated. A failed start is fatal:
// a missing enhancement engine is a configuration error, not a transient
// fault.
//
// All filter calls happen inline on the handler's delivery goroutine, so
// the filter sees a strictly sequential call stream.
type FilterHandler struct {
	core.BaseHandler
	filter  core.AudioFilter
	logger  *core.Logger
	started bool
	failed  bool
}

func NewFilterHandler(filter core.AudioFilter, logger *core.Logger) *FilterHandler {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &FilterHandler{
		BaseHandler: *core.NewBaseHandler(nil),
		filter:      filter,
		logger:      logger.With(map[string]any{"component": "filter_handler"}),
	}
}

func (h *FilterHandler) HandleEvent(eventPacket *core.EventPacket) error {
	switch event := eventPacket.Event.(type) {
	case *transport.TransportAudioInputEvent:
		h.handleAudio(eventPacket, event)
		return nil

	case *filterctl.FilterEnableEvent:
		h.filter.SetEnabled(event.Enabled)

	case *filterctl.FilterUpdateSettingsEvent:
		h.filter.UpdateSettings(event.Settings)
	}

	h.SendPacket(eventPacket)
	return nil
}

func (h *FilterHandler) handleAudio(eventPacket *core.EventPacket, event *transport.TransportAudioInputEvent) {
	if h.failed {
		h.SendPacket(eventPacket)
		return
	}
	if !h.started {
		if err := h.filter.Start(event.AudioChunk.SampleRate); err != nil {
			h.failed = true
			h.FatalServiceErrorChan <- err
			return
		}
		h.started = true
	}

	filtered, err := h.filter.Filter(*event.AudioChunk.Data)
	if err != nil {
		// Bad input framing: report it and forward the audio unfiltered so
		// the session keeps going.
		h.HandlerErrorChan <- err
		h.SendPacket(eventPacket)
		return
	}

	event.AudioChunk.Data = &filtered
	h.SendPacket(eventPacket)
}

func (h *FilterHandler) Cleanup() error {
	h.started = false
	return h.filter.Stop()
}

func (h *FilterHandler) Reset() error {
	h.started = false
	return h.filter.Stop()
}
