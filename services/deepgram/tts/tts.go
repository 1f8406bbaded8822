package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"voicekit/core"

	"github.com/bytedance/sonic"
)

type DeepgramTTSConfig struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	Model      string `json:"model"`
	SampleRate int    `json:"sample_rate"`
}

func DefaultConfig() DeepgramTTSConfig {
	return DeepgramTTSConfig{
		BaseURL:    "https://api.deepgram.com/v1/speak",
		Model:      "aura-2-arcas-en",
		SampleRate: 16000,
	}
}

// DeepgramTTSService synthesizes speech through Deepgram's speak REST API,
// requesting raw linear16 so the result drops straight into the pipeline.
type DeepgramTTSService struct {
	config DeepgramTTSConfig
	logger *core.Logger
	client *http.Client
	ctx    context.Context
}

func NewDeepgramTTSService(config DeepgramTTSConfig, logger *core.Logger) *DeepgramTTSService {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaults.SampleRate
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &DeepgramTTSService{
		config: config,
		logger: logger.With(map[string]any{"component": "deepgram_tts"}),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *DeepgramTTSService) Init(ctx context.Context) error {
	if d.config.APIKey == "" {
		return errors.New("deepgram api key is required")
	}
	d.ctx = ctx
	return nil
}

func (d *DeepgramTTSService) Cleanup() error {
	d.client.CloseIdleConnections()
	return nil
}

func (d *DeepgramTTSService) Reset() error {
	return nil
}

func (d *DeepgramTTSService) Synthesize(text string) (core.AudioChunk, error) {
	if text == "" {
		return core.AudioChunk{}, errors.New("empty text")
	}

	endpoint, err := d.buildURL()
	if err != nil {
		return core.AudioChunk{}, err
	}

	body, err := sonic.Marshal(map[string]string{"text": text})
	if err != nil {
		return core.AudioChunk{}, err
	}

	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return core.AudioChunk{}, err
	}
	req.Header.Set("Authorization", "Token "+d.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("deepgram speak request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return core.AudioChunk{}, fmt.Errorf("deepgram speak returned %d: %s", resp.StatusCode, msg)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("failed to read speak response: %w", err)
	}

	d.logger.With(map[string]any{
		"chars":      len(text),
		"bytes":      len(audioData),
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("synthesized speech")

	return core.AudioChunk{
		Data:       &audioData,
		SampleRate: d.config.SampleRate,
		Channels:   1,
		Format:     core.PCM,
	}, nil
}

func (d *DeepgramTTSService) buildURL() (string, error) {
	base, err := url.Parse(d.config.BaseURL)
	if err != nil {
		return "", err
	}
	q := base.Query()
	q.Set("model", d.config.Model)
	q.Set("encoding", "linear16")
	q.Set("container", "none")
	q.Set("sample_rate", strconv.Itoa(d.config.SampleRate))
	base.RawQuery = q.Encode()
	return base.String(), nil
}
