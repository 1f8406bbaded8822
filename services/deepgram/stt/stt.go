package stt

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"voicekit/core"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// DeepgramSTTService streams linear16 PCM to Deepgram's listen API over a
// websocket and relays final and interim transcripts.
type DeepgramSTTService struct {
	config *DeepgramConfig
	logger *core.Logger

	conn        *websocket.Conn
	connMu      sync.Mutex
	isConnected bool

	outChan        chan<- string
	interimOutChan chan<- string
	fatalErrChan   chan<- error

	done        <-chan struct{}
	reconnectMu sync.Mutex
}

type DeepgramConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	Language       string `json:"language"`
	SampleRate     int    `json:"sample_rate"`
	InterimResults bool   `json:"interim_results"`
	Punctuate      bool   `json:"punctuate"`
	SmartFormat    bool   `json:"smart_format"`
	Endpointing    int    `json:"endpointing"`
}

func DefaultConfig() *DeepgramConfig {
	return &DeepgramConfig{
		BaseURL:        "wss://api.deepgram.com",
		Model:          "nova-2",
		SampleRate:     16000,
		InterimResults: true,
		Punctuate:      true,
		SmartFormat:    true,
	}
}

func NewDeepgramSTTService(config *DeepgramConfig, logger *core.Logger) *DeepgramSTTService {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "wss://api.deepgram.com"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 16000
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &DeepgramSTTService{
		config: config,
		logger: logger.With(map[string]any{"component": "deepgram_stt"}),
	}
}

func (d *DeepgramSTTService) Init(ctx context.Context) error {
	if d.config.APIKey == "" {
		return fmt.Errorf("deepgram api key is required")
	}
	d.done = ctx.Done()
	return nil
}

func (d *DeepgramSTTService) Cleanup() error {
	d.closeConnection()
	d.outChan = nil
	d.interimOutChan = nil
	d.fatalErrChan = nil
	return nil
}

// Reset asks Deepgram to finalize whatever it has buffered so the next
// utterance starts clean.
func (d *DeepgramSTTService) Reset() error {
	return d.writeControl(listenV1Finalize{Type: "Finalize"})
}

func (d *DeepgramSTTService) StartTranscriptionSession(
	outChan chan<- string,
	interimOutChan chan<- string,
	fatalErrChan chan<- error,
) {
	d.outChan = outChan
	d.interimOutChan = interimOutChan
	d.fatalErrChan = fatalErrChan
	go d.runSession()
}

func (d *DeepgramSTTService) SendTranscriptionAudio(audioData []byte) error {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	if !d.isConnected || d.conn == nil {
		return fmt.Errorf("not connected to deepgram")
	}
	if err := d.conn.WriteMessage(websocket.BinaryMessage, audioData); err != nil {
		d.isConnected = false
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// runSession keeps one connection alive for the lifetime of the pipeline,
// reconnecting with a backoff after transport errors.
func (d *DeepgramSTTService) runSession() {
	for {
		select {
		case <-d.done:
			return
		default:
		}

		if err := d.connectAndListen(); err != nil {
			select {
			case <-d.done:
				return
			default:
				d.logger.With(map[string]any{"error": err}).Warn("deepgram session error, reconnecting")
			}
			select {
			case <-time.After(5 * time.Second):
			case <-d.done:
				return
			}
		}
	}
}

func (d *DeepgramSTTService) connectAndListen() error {
	d.reconnectMu.Lock()
	defer d.reconnectMu.Unlock()

	wsURL, err := d.buildWebSocketURL()
	if err != nil {
		return fmt.Errorf("failed to build websocket url: %w", err)
	}

	headers := map[string][]string{
		"Authorization": {"Token " + d.config.APIKey},
	}
	conn, _, err := websocket.DefaultDialer.DialContext(context.Background(), wsURL, headers)
	if err != nil {
		return fmt.Errorf("failed to connect to deepgram: %w", err)
	}

	d.connMu.Lock()
	d.conn = conn
	d.isConnected = true
	d.connMu.Unlock()
	defer d.closeConnection()

	go d.keepAlive()

	for {
		select {
		case <-d.done:
			return nil
		default:
		}
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("error reading message: %w", err)
		}
		if messageType == websocket.TextMessage {
			if err := d.handleMessage(message); err != nil {
				d.logger.With(map[string]any{"error": err}).Debug("ignoring unparseable deepgram message")
			}
		}
	}
}

func (d *DeepgramSTTService) buildWebSocketURL() (string, error) {
	base, err := url.Parse(d.config.BaseURL + "/v1/listen")
	if err != nil {
		return "", err
	}

	q := base.Query()
	if d.config.Model != "" {
		q.Set("model", d.config.Model)
	}
	if d.config.Language != "" {
		q.Set("language", d.config.Language)
	}
	q.Set("interim_results", strconv.FormatBool(d.config.InterimResults))
	q.Set("punctuate", strconv.FormatBool(d.config.Punctuate))
	q.Set("smart_format", strconv.FormatBool(d.config.SmartFormat))
	if d.config.Endpointing > 0 {
		q.Set("endpointing", strconv.Itoa(d.config.Endpointing))
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(d.config.SampleRate))
	q.Set("channels", "1")

	base.RawQuery = q.Encode()
	return base.String(), nil
}

func (d *DeepgramSTTService) handleMessage(message []byte) error {
	var base struct {
		Type string `json:"type"`
	}
	if err := sonic.Unmarshal(message, &base); err != nil {
		return fmt.Errorf("failed to parse message type: %w", err)
	}

	if base.Type != "Results" {
		return nil
	}
	var result listenV1Results
	if err := sonic.Unmarshal(message, &result); err != nil {
		return fmt.Errorf("failed to parse results: %w", err)
	}
	d.processResults(result)
	return nil
}

func (d *DeepgramSTTService) processResults(result listenV1Results) {
	if len(result.Channel.Alternatives) == 0 {
		return
	}
	transcript := result.Channel.Alternatives[0].Transcript
	if transcript == "" {
		return
	}

	target := d.interimOutChan
	if result.IsFinal || result.SpeechFinal || result.FromFinalize {
		target = d.outChan
	}
	if target == nil {
		return
	}
	select {
	case target <- transcript:
	case <-d.done:
	}
}

// keepAlive keeps the socket open across silence; Deepgram closes idle
// connections after roughly ten seconds without audio.
func (d *DeepgramSTTService) keepAlive() {
	ticker := time.NewTicker(8 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			if err := d.writeControl(listenV1KeepAlive{Type: "KeepAlive"}); err != nil {
				return
			}
		}
	}
}

func (d *DeepgramSTTService) writeControl(msg any) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	d.connMu.Lock()
	defer d.connMu.Unlock()
	if !d.isConnected || d.conn == nil {
		return fmt.Errorf("not connected to deepgram")
	}
	return d.conn.WriteMessage(websocket.TextMessage, data)
}

func (d *DeepgramSTTService) closeConnection() {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	if d.conn != nil {
		if data, err := sonic.Marshal(listenV1CloseStream{Type: "CloseStream"}); err == nil {
			_ = d.conn.WriteMessage(websocket.TextMessage, data)
		}
		_ = d.conn.Close()
		d.conn = nil
	}
	d.isConnected = false
}

// Wire messages for the listen v1 protocol.

type listenV1Results struct {
	Type        string  `json:"type"`
	Duration    float64 `json:"duration"`
	Start       float64 `json:"start"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
	FromFinalize bool `json:"from_finalize,omitempty"`
}

type listenV1KeepAlive struct {
	Type string `json:"type"`
}

type listenV1CloseStream struct {
	Type string `json:"type"`
}

type listenV1Finalize struct {
	Type string `json:"type"`
}
