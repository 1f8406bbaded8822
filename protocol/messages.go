package protocol

import "encoding/json"

// MessageType enumerates the in-band control messages exchanged with the
// client over the transport's text channel. Audio travels separately as
// binary frames of interleaved 16-bit little-endian PCM.
type MessageType string

const (
	// Client -> agent
	MsgFilterEnable   MessageType = "filter_enable"
	MsgUpdateSettings MessageType = "update_settings"
	MsgTextInput      MessageType = "text_input"

	// Agent -> client
	MsgTextOutput MessageType = "text_output"
	MsgTranscript MessageType = "transcript"
	MsgError      MessageType = "error"
)

// Envelope is the outer JSON wrapper for all text messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FilterEnablePayload toggles the audio input filter.
type FilterEnablePayload struct {
	Enabled bool `json:"enabled"`
}

// UpdateSettingsPayload carries a settings mapping for the audio input
// filter. Unrecognized keys are ignored by the receiver.
type UpdateSettingsPayload struct {
	Settings map[string]any `json:"settings"`
}

// TextPayload carries plain text in either direction.
type TextPayload struct {
	Text string `json:"text"`
}

// TranscriptPayload carries an STT result to the client.
type TranscriptPayload struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// ErrorPayload reports a non-fatal agent-side error to the client.
type ErrorPayload struct {
	Error string `json:"error"`
}
