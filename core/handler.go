package core

import (
	"context"
)

type IService interface {
	Init(ctx context.Context) error
	Cleanup() error
	Reset() error
}

// IHandler is one stage of a pipeline. The runner owns the event loop: it
// calls Initialize with the stage's channels, then Start (which must not
// block), and then delivers every incoming packet through HandleEvent from
// a single goroutine per handler.
type IHandler interface {
	Initialize(
		inputChan <-chan *EventPacket,
		outputNextChan chan<- *EventPacket,
		outputTopChan chan<- *EventPacket,
		ctx context.Context,
	) error
	Start() error
	HandleEvent(packet *EventPacket) error

	Cleanup() error // Cleans up resources used by the handler.
	Reset() error   // Resets the handler to its initial state.
}

// BaseHandler carries the channel wiring shared by all handlers. Concrete
// handlers embed it and implement HandleEvent (plus Start when they manage
// a background service session).
type BaseHandler struct {
	Service               IService
	Ctx                   context.Context
	InputChan             <-chan *EventPacket
	FatalServiceErrorChan chan error
	HandlerErrorChan      chan error

	outputNextChan chan<- *EventPacket
	outputTopChan  chan<- *EventPacket
}

func NewBaseHandler(service IService) *BaseHandler {
	return &BaseHandler{Service: service}
}

func (h *BaseHandler) Initialize(
	inputChan <-chan *EventPacket,
	outputNextChan chan<- *EventPacket,
	outputTopChan chan<- *EventPacket,
	ctx context.Context,
) error {
	h.InputChan = inputChan
	h.outputNextChan = outputNextChan
	h.outputTopChan = outputTopChan
	h.FatalServiceErrorChan = make(chan error, 1)
	h.HandlerErrorChan = make(chan error, 16)
	h.Ctx = ctx
	go h.errorRelayLoop()
	if h.Service != nil {
		return h.Service.Init(ctx)
	}
	return nil
}

// Start is a no-op default; handlers that run background sessions override it.
func (h *BaseHandler) Start() error {
	return nil
}

func (h *BaseHandler) Cleanup() error {
	if h.Service != nil {
		return h.Service.Cleanup()
	}
	return nil
}

func (h *BaseHandler) Reset() error {
	if h.Service != nil {
		return h.Service.Reset()
	}
	return nil
}

func (h *BaseHandler) SendPacket(packet *EventPacket) {
	var out chan<- *EventPacket
	switch packet.Destination {
	case EventRelayDestinationTopService:
		out = h.outputTopChan
	default:
		// Unrecognized destinations fall through to the next handler.
		out = h.outputNextChan
	}
	select {
	case out <- packet:
	case <-h.Ctx.Done():
	}
}

// errorRelayLoop turns service errors into pipeline events: fatal errors
// become CriticalErrorEvents that end the session, handler errors become
// WarningEvents.
func (h *BaseHandler) errorRelayLoop() {
	for {
		select {
		case err := <-h.FatalServiceErrorChan:
			h.SendPacket(NewEventPacket(
				&CriticalErrorEvent{Error: err.Error()},
				EventRelayDestinationTopService, "BaseHandler",
			))
		case err := <-h.HandlerErrorChan:
			h.SendPacket(NewEventPacket(
				&WarningEvent{Error: err.Error()},
				EventRelayDestinationTopService, "BaseHandler",
			))
		case <-h.Ctx.Done():
			return
		}
	}
}
