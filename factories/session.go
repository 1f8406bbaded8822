package factories

import (
	"voicekit/core"
	"voicekit/enhance"
	filterhandler "voicekit/handlers/filter"
	llmhandler "voicekit/handlers/llm"
	recorderhandler "voicekit/handlers/recorder"
	stthandler "voicekit/handlers/stt"
	transporthandler "voicekit/handlers/transport"
	ttshandler "voicekit/handlers/tts"
	deepgramstt "voicekit/services/deepgram/stt"
	deepgramtts "voicekit/services/deepgram/tts"
	openaillm "voicekit/services/openai/llm"
)

// BuildSessionHandlers assembles the full voice-bot chain for one session:
//
//	transport in -> filter -> stt -> llm -> tts -> transport out -> recorder
//
// The enhancement registry is shared across sessions so concurrent calls
// with the same audio shape reuse one engine.
func BuildSessionHandlers(
	cfg SettingsConfig,
	registry *enhance.Registry,
	svc transporthandler.TransportService,
	logger *core.Logger,
) ([]core.IHandler, error) {
	if logger == nil {
		logger = core.GetLogger()
	}

	wrapper := transporthandler.NewTransportHandlerWrapper(svc, cfg.Transport, logger)

	filter := enhance.NewFilter(registry, enhance.FilterConfig{
		Channels:            cfg.Filter.Channels,
		FrameSize:           cfg.Filter.FrameSize,
		EnhancementStrength: cfg.Filter.EnhancementStrength,
	}, logger)
	filter.SetEnabled(cfg.Filter.Enabled)

	sttService := deepgramstt.NewDeepgramSTTService(cfg.STT, logger)
	llmService := openaillm.NewOpenAILLMService(cfg.LLM)
	ttsService := deepgramtts.NewDeepgramTTSService(cfg.TTS, logger)

	return []core.IHandler{
		wrapper.GetInputHandler(),
		filterhandler.NewFilterHandler(filter, logger),
		stthandler.NewSTTHandler(sttService, cfg.STTInput),
		llmhandler.NewLLMHandler(llmService, cfg.LLMPrompt),
		ttshandler.NewTTSHandler(ttsService, cfg.TTSOutput),
		wrapper.GetOutputHandler(),
		recorderhandler.NewRecorderHandler(cfg.Recorder, logger),
	}, nil
}
