package core

type LLMMessageRole string

const (
	LLMMessageRoleSystem    LLMMessageRole = "system"
	LLMMessageRoleUser      LLMMessageRole = "user"
	LLMMessageRoleAssistant LLMMessageRole = "assistant"
)

type LLMMessage struct {
	Role    LLMMessageRole
	Message string
}

// LLMContext is the full conversation state sent with one completion request.
type LLMContext struct {
	Messages []LLMMessage
}
