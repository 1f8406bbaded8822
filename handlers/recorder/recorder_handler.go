package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"voicekit/core"
	"voicekit/events/recorder"
	"voicekit/events/transport"
	"voicekit/events/tts"
	"voicekit/utils/audio"
)

type RecorderConfig struct {
	// OutputDir receives one timestamped WAV per session. Empty disables
	// writing to disk; the composed audio is still emitted as an event.
	OutputDir  string `json:"output_dir"`
	SampleRate int    `json:"sample_rate"`
	// Channels selects the composition: 1 mixes both sides into mono,
	// 2 puts the caller on the left and the bot on the right.
	Channels int `json:"channels"`
}

func DefaultConfig() RecorderConfig {
	return RecorderConfig{
		OutputDir:  "recordings",
		SampleRate: 16000,
		Channels:   2,
	}
}

// RecorderHandler accumulates both sides of the conversation and composes
// them into a single recording when the session ends.
type RecorderHandler struct {
	core.BaseHandler
	config RecorderConfig
	logger *core.Logger

	mu       sync.Mutex
	userPCM  []byte
	botPCM   []byte
	composed bool
}

func NewRecorderHandler(config RecorderConfig, logger *core.Logger) *RecorderHandler {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &RecorderHandler{
		BaseHandler: *core.NewBaseHandler(nil),
		config:      config,
		logger:      logger.With(map[string]any{"component": "recorder"}),
	}
}

func (h *RecorderHandler) HandleEvent(eventPacket *core.EventPacket) error {
	switch event := eventPacket.Event.(type) {
	case *transport.TransportAudioInputEvent:
		h.appendUser(event.AudioChunk)
	case *tts.TTSOutputEvent:
		h.appendBot(event.AudioChunk)
	}
	h.SendPacket(eventPacket)
	return nil
}

func (h *RecorderHandler) appendUser(chunk core.AudioChunk) {
	pcm, err := h.asRecordingPCM(chunk)
	if err != nil {
		h.HandlerErrorChan <- err
		return
	}
	h.mu.Lock()
	h.userPCM = append(h.userPCM, pcm...)
	h.mu.Unlock()
}

func (h *RecorderHandler) appendBot(chunk core.AudioChunk) {
	pcm, err := h.asRecordingPCM(chunk)
	if err != nil {
		h.HandlerErrorChan <- err
		return
	}
	h.mu.Lock()
	h.botPCM = append(h.botPCM, pcm...)
	h.mu.Unlock()
}

// asRecordingPCM converts a chunk to mono linear PCM so both sides share a
// common shape before composition. No resampling: chunks are expected to
// arrive at the recording sample rate already.
func (h *RecorderHandler) asRecordingPCM(chunk core.AudioChunk) ([]byte, error) {
	converted, err := audio.ConvertAudioChunk(chunk, core.PCM, 1)
	if err != nil {
		return nil, err
	}
	return *converted.Data, nil
}

func (h *RecorderHandler) Cleanup() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.composed || (len(h.userPCM) == 0 && len(h.botPCM) == 0) {
		return nil
	}
	h.composed = true

	var composed []byte
	if h.config.Channels == 2 {
		composed = audio.InterleaveStereo(h.userPCM, h.botPCM)
	} else {
		composed = audio.MixPCM(h.userPCM, h.botPCM)
	}

	h.SendPacket(core.NewEventPacket(&recorder.RecorderAudioDataEvent{
		Audio:      composed,
		SampleRate: h.config.SampleRate,
		Channels:   h.config.Channels,
	}, core.EventRelayDestinationNextService, "RecorderHandler"))

	if h.config.OutputDir == "" {
		return nil
	}
	return h.writeWAV(composed)
}

func (h *RecorderHandler) writeWAV(composed []byte) error {
	wav, err := audio.PCMBytesToWavBytes(composed, h.config.Channels, h.config.SampleRate)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(h.config.OutputDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("conversation_%s.wav", time.Now().Format("20060102_150405"))
	path := filepath.Join(h.config.OutputDir, name)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return err
	}
	h.logger.With(map[string]any{"path": path, "bytes": len(wav)}).Info("wrote session recording")
	return nil
}

func (h *RecorderHandler) Reset() error {
	h.mu.Lock()
	h.userPCM = nil
	h.botPCM = nil
	h.composed = false
	h.mu.Unlock()
	return nil
}
