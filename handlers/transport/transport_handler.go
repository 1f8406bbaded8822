package transport

import (
	"encoding/json"

	"voicekit/core"
	"voicekit/events/filterctl"
	"voicekit/events/transport"
	"voicekit/events/tts"
	"voicekit/protocol"
	"voicekit/utils/audio"
)

// InboundMessage is one message received from the client: either a binary
// audio frame or a decoded control envelope.
type InboundMessage struct {
	Audio   *core.AudioChunk
	Type    protocol.MessageType
	Payload json.RawMessage
}

// TransportService is the wire-level connection to one client.
type TransportService interface {
	Connect() error
	SendAudio(chunk core.AudioChunk) error
	SendText(data []byte) error
	StartReceiving(out chan<- InboundMessage, errChan chan<- error)
	Close() error
}

// TransportHandlerWrapper shares one TransportService between the input
// and output pipeline stages.
type TransportHandlerWrapper struct {
	service   TransportService
	config    TransportConfig
	logger    *core.Logger
	connected bool
}

func NewTransportHandlerWrapper(service TransportService, config TransportConfig, logger *core.Logger) *TransportHandlerWrapper {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &TransportHandlerWrapper{
		service: service,
		config:  config,
		logger:  logger.With(map[string]any{"component": "transport"}),
	}
}

func (w *TransportHandlerWrapper) GetInputHandler() *TransportInputHandler {
	return &TransportInputHandler{
		BaseHandler: *core.NewBaseHandler(nil),
		wrapper:     w,
	}
}

func (w *TransportHandlerWrapper) GetOutputHandler() *TransportOutputHandler {
	return &TransportOutputHandler{
		BaseHandler: *core.NewBaseHandler(nil),
		wrapper:     w,
	}
}

func (w *TransportHandlerWrapper) connect() error {
	if w.connected {
		return nil
	}
	if err := w.service.Connect(); err != nil {
		return err
	}
	w.connected = true
	return nil
}

// TransportInputHandler turns inbound wire messages into pipeline events.
type TransportInputHandler struct {
	core.BaseHandler
	wrapper *TransportHandlerWrapper
}

func (h *TransportInputHandler) Start() error {
	if err := h.wrapper.connect(); err != nil {
		return err
	}

	inbound := make(chan InboundMessage, 32)
	errChan := make(chan error, 1)
	h.wrapper.service.StartReceiving(inbound, errChan)

	go func() {
		for {
			select {
			case msg := <-inbound:
				h.dispatch(msg)
			case err := <-errChan:
				h.FatalServiceErrorChan <- err
				return
			case <-h.Ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (h *TransportInputHandler) dispatch(msg InboundMessage) {
	if msg.Audio != nil {
		if msg.Audio.SampleRate == 0 {
			msg.Audio.SampleRate = h.wrapper.config.InSampleRate
		}
		if msg.Audio.Channels == 0 {
			msg.Audio.Channels = h.wrapper.config.InChannels
		}
		h.SendPacket(core.NewEventPacket(&transport.TransportAudioInputEvent{
			AudioChunk: *msg.Audio,
		}, core.EventRelayDestinationNextService, "TransportInputHandler"))
		return
	}

	switch msg.Type {
	case protocol.MsgFilterEnable:
		payload, err := protocol.UnmarshalPayload[protocol.FilterEnablePayload](msg.Payload)
		if err != nil {
			h.wrapper.logger.With(map[string]any{"error": err}).Warn("bad filter_enable payload, ignoring")
			return
		}
		h.SendPacket(core.NewEventPacket(&filterctl.FilterEnableEvent{
			Enabled: payload.Enabled,
		}, core.EventRelayDestinationNextService, "TransportInputHandler"))

	case protocol.MsgUpdateSettings:
		payload, err := protocol.UnmarshalPayload[protocol.UpdateSettingsPayload](msg.Payload)
		if err != nil {
			h.wrapper.logger.With(map[string]any{"error": err}).Warn("bad update_settings payload, ignoring")
			return
		}
		h.SendPacket(core.NewEventPacket(&filterctl.FilterUpdateSettingsEvent{
			Settings: payload.Settings,
		}, core.EventRelayDestinationNextService, "TransportInputHandler"))

	case protocol.MsgTextInput:
		payload, err := protocol.UnmarshalPayload[protocol.TextPayload](msg.Payload)
		if err != nil {
			h.wrapper.logger.With(map[string]any{"error": err}).Warn("bad text_input payload, ignoring")
			return
		}
		h.SendPacket(core.NewEventPacket(&transport.TransportTextInputEvent{
			Text: payload.Text,
		}, core.EventRelayDestinationNextService, "TransportInputHandler"))

	default:
		h.wrapper.logger.With(map[string]any{"type": msg.Type}).Debug("ignoring unknown inbound message type")
	}
}

func (h *TransportInputHandler) HandleEvent(eventPacket *core.EventPacket) error {
	h.SendPacket(eventPacket)
	return nil
}

func (h *TransportInputHandler) Cleanup() error {
	return h.wrapper.service.Close()
}

// TransportOutputHandler sends outbound events back over the wire.
type TransportOutputHandler struct {
	core.BaseHandler
	wrapper *TransportHandlerWrapper
}

func (h *TransportOutputHandler) Start() error {
	return h.wrapper.connect()
}

func (h *TransportOutputHandler) HandleEvent(eventPacket *core.EventPacket) error {
	switch event := eventPacket.Event.(type) {
	case *transport.TransportAudioOutputEvent:
		if err := h.sendAudio(event.AudioChunk); err != nil {
			h.FatalServiceErrorChan <- err
			return err
		}

	case *tts.TTSOutputEvent:
		if err := h.sendAudio(event.AudioChunk); err != nil {
			h.FatalServiceErrorChan <- err
			return err
		}

	case *transport.TransportTextOutputEvent:
		data, err := protocol.Marshal(protocol.MsgTextOutput, protocol.TextPayload{Text: event.Text})
		if err != nil {
			h.HandlerErrorChan <- err
			return err
		}
		if err := h.wrapper.service.SendText(data); err != nil {
			h.FatalServiceErrorChan <- err
			return err
		}
	}

	h.SendPacket(eventPacket)
	return nil
}

func (h *TransportOutputHandler) sendAudio(chunk core.AudioChunk) error {
	cfg := h.wrapper.config
	converted, err := audio.ConvertAudioChunk(chunk, cfg.OutFormat, cfg.OutChannels)
	if err != nil {
		return err
	}
	return h.wrapper.service.SendAudio(converted)
}

func (h *TransportOutputHandler) Cleanup() error {
	// The input handler owns closing the shared service.
	return nil
}
