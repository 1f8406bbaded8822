package factories

import (
	"fmt"
	"os"

	"voicekit/enhance"
	llmhandler "voicekit/handlers/llm"
	recorderhandler "voicekit/handlers/recorder"
	stthandler "voicekit/handlers/stt"
	transporthandler "voicekit/handlers/transport"
	ttshandler "voicekit/handlers/tts"
	deepgramstt "voicekit/services/deepgram/stt"
	deepgramtts "voicekit/services/deepgram/tts"
	openaillm "voicekit/services/openai/llm"

	"github.com/bytedance/sonic"
)

// FilterSettings configures the enhancement stage of a session.
type FilterSettings struct {
	Enabled             bool    `json:"enabled"`
	Channels            int     `json:"channels"`
	FrameSize           int     `json:"frame_size"`
	EnhancementStrength float32 `json:"enhancement_strength"`
}

// SettingsConfig is the top-level config loaded from settings.json. API keys
// are left out on purpose: they come from the environment and are injected
// with APIKeys.Apply.
type SettingsConfig struct {
	Transport transporthandler.TransportConfig `json:"transport"`
	Filter    FilterSettings                   `json:"filter"`
	STT       *deepgramstt.DeepgramConfig      `json:"stt"`
	STTInput  stthandler.STTConfig             `json:"stt_input"`
	LLM       openaillm.Config                 `json:"llm"`
	LLMPrompt llmhandler.LLMHandlerConfig      `json:"llm_prompt"`
	TTS       deepgramtts.DeepgramTTSConfig    `json:"tts"`
	TTSOutput ttshandler.TTSConfig             `json:"tts_output"`
	Recorder  recorderhandler.RecorderConfig   `json:"recorder"`
}

func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Transport: transporthandler.DefaultConfig(),
		Filter: FilterSettings{
			Enabled:             true,
			Channels:            enhance.DefaultFilterConfig().Channels,
			FrameSize:           enhance.DefaultFilterConfig().FrameSize,
			EnhancementStrength: enhance.DefaultFilterConfig().EnhancementStrength,
		},
		STT:       deepgramstt.DefaultConfig(),
		STTInput:  stthandler.DefaultConfig(),
		LLM:       openaillm.DefaultConfig(),
		LLMPrompt: llmhandler.DefaultConfig(),
		TTS:       deepgramtts.DefaultConfig(),
		TTSOutput: ttshandler.DefaultConfig(),
		Recorder:  recorderhandler.DefaultConfig(),
	}
}

// SettingsConfigFromJSON parses a JSON blob over the defaults, so a settings
// file only needs the fields it wants to change.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	return cfg, nil
}

// SettingsConfigFromFile loads settings.json from disk. A missing file is
// not an error: defaults are returned.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettingsConfig(), nil
		}
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	return SettingsConfigFromJSON(data)
}

// APIKeys carries the per-provider credentials read from the environment.
type APIKeys struct {
	Deepgram  string
	OpenAI    string
	Acoustics string
}

func APIKeysFromEnv() APIKeys {
	return APIKeys{
		Deepgram:  os.Getenv("DEEPGRAM_API_KEY"),
		OpenAI:    os.Getenv("OPENAI_API_KEY"),
		Acoustics: os.Getenv("AICOUSTICS_LICENSE_KEY"),
	}
}

// Apply injects the credentials into the provider configs.
func (k APIKeys) Apply(cfg *SettingsConfig) {
	if cfg.STT != nil {
		cfg.STT.APIKey = k.Deepgram
	}
	cfg.TTS.APIKey = k.Deepgram
	cfg.LLM.APIKey = k.OpenAI
}
