package llm

import (
	"sync"

	"voicekit/core"
	"voicekit/events/llm"
	"voicekit/events/stt"
	"voicekit/events/transport"
)

type LLMService interface {
	core.IService
	RunCompletion(
		context core.LLMContext,
		outChan chan<- string,
		fatalErrChan chan<- error,
		completionEndChan chan<- struct{},
	)
}

// LLMHandler keeps the conversation history and runs a streaming completion
// for every final transcript (or typed text input) that reaches it.
type LLMHandler struct {
	core.BaseHandler
	messageOutChan    chan string
	completionEndChan chan struct{}
	config            LLMHandlerConfig

	historyMu sync.Mutex
	history   []core.LLMMessage
}

func NewLLMHandler(service LLMService, config LLMHandlerConfig) *LLMHandler {
	return &LLMHandler{
		BaseHandler: *core.NewBaseHandler(service),
		config:      config,
	}
}

func (h *LLMHandler) Start() error {
	h.messageOutChan = make(chan string, 10)
	h.completionEndChan = make(chan struct{}, 1)
	go h.eventLoop()
	return nil
}

// eventLoop aggregates streamed chunks into the full response text and
// records the assistant turn once the completion ends.
func (h *LLMHandler) eventLoop() {
	var fullText string
	for {
		select {
		case chunk := <-h.messageOutChan:
			h.SendPacket(core.NewEventPacket(&llm.LLMResponseChunkEvent{
				Chunk: chunk,
			}, core.EventRelayDestinationNextService, "LLMHandler"))
			fullText += chunk

		case <-h.completionEndChan:
			h.appendHistory(core.LLMMessage{Role: core.LLMMessageRoleAssistant, Message: fullText})
			h.SendPacket(core.NewEventPacket(&llm.LLMResponseCompletedEvent{
				FullText: fullText,
			}, core.EventRelayDestinationNextService, "LLMHandler"))
			fullText = ""

		case <-h.Ctx.Done():
			return
		}
	}
}

func (h *LLMHandler) HandleEvent(eventPacket *core.EventPacket) error {
	switch event := eventPacket.Event.(type) {
	case *stt.STTFinalOutputEvent:
		h.generate(event.Text)
	case *transport.TransportTextInputEvent:
		h.generate(event.Text)
	}
	h.SendPacket(eventPacket)
	return nil
}

func (h *LLMHandler) generate(userText string) {
	if userText == "" {
		return
	}
	h.appendHistory(core.LLMMessage{Role: core.LLMMessageRoleUser, Message: userText})

	h.SendPacket(core.NewEventPacket(&llm.LLMResponseStartedEvent{},
		core.EventRelayDestinationNextService, "LLMHandler"))

	llmCtx := h.buildContext()
	go h.Service.(LLMService).RunCompletion(
		llmCtx,
		h.messageOutChan,
		h.FatalServiceErrorChan,
		h.completionEndChan,
	)
}

func (h *LLMHandler) appendHistory(msg core.LLMMessage) {
	h.historyMu.Lock()
	defer h.historyMu.Unlock()
	h.history = append(h.history, msg)
	if max := h.config.MaxHistoryMessages; max > 0 && len(h.history) > max {
		h.history = h.history[len(h.history)-max:]
	}
}

func (h *LLMHandler) buildContext() core.LLMContext {
	h.historyMu.Lock()
	defer h.historyMu.Unlock()
	messages := make([]core.LLMMessage, 0, len(h.history)+1)
	if h.config.SystemPrompt != "" {
		messages = append(messages, core.LLMMessage{
			Role:    core.LLMMessageRoleSystem,
			Message: h.config.SystemPrompt,
		})
	}
	messages = append(messages, h.history...)
	return core.LLMContext{Messages: messages}
}

func (h *LLMHandler) Reset() error {
	h.historyMu.Lock()
	h.history = nil
	h.historyMu.Unlock()
	return h.BaseHandler.Reset()
}
