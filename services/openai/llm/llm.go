package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"voicekit/core"

	"github.com/sashabaranov/go-openai"
)

// OpenAILLMService runs streaming chat completions against OpenAI.
type OpenAILLMService struct {
	client      *openai.Client
	apiKey      string
	model       string
	maxTokens   int
	temperature float32

	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	isInitialized bool
}

type Config struct {
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

func DefaultConfig() Config {
	return Config{
		Model:       openai.GPT4oMini,
		MaxTokens:   512,
		Temperature: 0.7,
	}
}

func NewOpenAILLMService(config Config) *OpenAILLMService {
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	return &OpenAILLMService{
		apiKey:      config.APIKey,
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
	}
}

func (s *OpenAILLMService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apiKey == "" {
		return errors.New("openai api key is required")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.client = openai.NewClient(s.apiKey)
	s.isInitialized = true
	return nil
}

func (s *OpenAILLMService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.client = nil
	s.isInitialized = false
	return nil
}

// Reset cancels any in-flight completion and rearms the service.
func (s *OpenAILLMService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.client = openai.NewClient(s.apiKey)
	return nil
}

func (s *OpenAILLMService) RunCompletion(
	llmContext core.LLMContext,
	outChan chan<- string,
	fatalErrChan chan<- error,
	completionEndChan chan<- struct{},
) {
	s.mu.RLock()
	initialized := s.isInitialized
	client := s.client
	ctx := s.ctx
	s.mu.RUnlock()

	if !initialized {
		fatalErrChan <- errors.New("openai service not initialized")
		return
	}

	defer func() {
		select {
		case completionEndChan <- struct{}{}:
		default:
		}
	}()

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    convertMessages(llmContext.Messages),
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Stream:      true,
	}

	stream, err := client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		fatalErrChan <- fmt.Errorf("failed to create completion stream: %w", err)
		return
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				fatalErrChan <- fmt.Errorf("completion stream error: %w", err)
			}
			return
		}

		if len(response.Choices) == 0 {
			continue
		}
		if content := response.Choices[0].Delta.Content; content != "" {
			select {
			case outChan <- content:
			case <-ctx.Done():
				return
			}
		}
	}
}

func convertMessages(messages []core.LLMMessage) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case core.LLMMessageRoleSystem:
			role = openai.ChatMessageRoleSystem
		case core.LLMMessageRoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Message,
		})
	}
	return converted
}
