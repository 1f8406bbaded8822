package llm

type LLMHandlerConfig struct {
	SystemPrompt string `json:"system_prompt"`
	// MaxHistoryMessages bounds the conversation history sent with each
	// completion. Zero means unbounded.
	MaxHistoryMessages int `json:"max_history_messages"`
}

func DefaultConfig() LLMHandlerConfig {
	return LLMHandlerConfig{
		SystemPrompt:       "You are a helpful voice assistant. Keep your answers short and conversational.",
		MaxHistoryMessages: 40,
	}
}
