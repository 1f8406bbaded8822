package core

import (
	"context"
	"fmt"
)

// Runner wires an ordered slice of handlers into a chain of channels and
// pumps packets through them. Each handler gets its own delivery goroutine,
// so HandleEvent is never called concurrently on the same handler.
type Runner struct {
	Handlers []IHandler

	// Finished is closed when the session ends (critical error or context
	// cancellation).
	Finished chan struct{}

	ctx            context.Context
	cancel         context.CancelFunc
	topOutputChan  chan *EventPacket
	lastOutputChan chan *EventPacket
	logger         *Logger
}

func NewRunner(handlers []IHandler, logger *Logger) *Runner {
	if logger == nil {
		logger = GetLogger()
	}
	return &Runner{
		Handlers: handlers,
		Finished: make(chan struct{}),
		logger:   logger,
	}
}

func (r *Runner) Start() error {
	if len(r.Handlers) == 0 {
		close(r.Finished)
		return nil
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.topOutputChan = make(chan *EventPacket, 100)
	r.lastOutputChan = make(chan *EventPacket, 100)

	inputChans := make([]chan *EventPacket, len(r.Handlers))
	for i := range inputChans {
		inputChans[i] = make(chan *EventPacket, 100)
	}

	for i, handler := range r.Handlers {
		var outputNextChan chan<- *EventPacket
		if i < len(r.Handlers)-1 {
			outputNextChan = inputChans[i+1]
		} else {
			// Last handler's output is captured by the runner.
			outputNextChan = r.lastOutputChan
		}

		if err := handler.Initialize(inputChans[i], outputNextChan, r.topOutputChan, r.ctx); err != nil {
			r.cancel()
			return fmt.Errorf("runner: initialize handler %d: %w", i, err)
		}
		if err := handler.Start(); err != nil {
			r.cancel()
			return fmt.Errorf("runner: start handler %d: %w", i, err)
		}
	}

	// One delivery goroutine per handler keeps per-handler event handling
	// sequential while stages run concurrently with each other.
	for i, handler := range r.Handlers {
		go r.pump(inputChans[i], handler)
	}

	go r.listenToOutputs()
	return nil
}

func (r *Runner) pump(in <-chan *EventPacket, handler IHandler) {
	for {
		select {
		case packet := <-in:
			if err := handler.HandleEvent(packet); err != nil {
				r.logger.With(map[string]any{"error": err, "event": packet.Event.GetId()}).Error("handler failed")
			}
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Runner) listenToOutputs() {
	for {
		select {
		case <-r.lastOutputChan:
			// Packets falling off the end of the chain are dropped.
		case packet := <-r.topOutputChan:
			r.processTopOutput(packet)
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Runner) processTopOutput(packet *EventPacket) {
	switch event := packet.Event.(type) {
	case *CriticalErrorEvent:
		r.logger.With(map[string]any{"error": event.Error, "relayer": packet.Relayer}).Error("critical pipeline error, ending session")
		select {
		case <-r.Finished:
		default:
			close(r.Finished)
		}
	case *WarningEvent:
		r.logger.With(map[string]any{"error": event.Error, "relayer": packet.Relayer}).Warn("pipeline warning")
	default:
		// Echo external input events back through the first handler.
		select {
		case <-r.ctx.Done():
		default:
			r.Handlers[0].HandleEvent(packet)
		}
	}
}

func (r *Runner) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}

	var errs []error
	for _, handler := range r.Handlers {
		if err := handler.Cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (r *Runner) Reset() error {
	var errs []error
	for _, handler := range r.Handlers {
		if err := handler.Reset(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
