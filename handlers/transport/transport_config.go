package transport

import "voicekit/core"

type TransportConfig struct {
	// InSampleRate and InChannels describe the PCM the client sends when a
	// binary frame carries no metadata of its own.
	InSampleRate int `json:"in_sample_rate"`
	InChannels   int `json:"in_channels"`

	// Outgoing audio is converted to this shape before sending. Telephony
	// transports typically want ULAW here.
	OutSampleRate int                      `json:"out_sample_rate"`
	OutChannels   int                      `json:"out_channels"`
	OutFormat     core.AudioEncodingFormat `json:"out_format"`
}

// DefaultConfig returns a TransportConfig for 16kHz mono PCM both ways.
func DefaultConfig() TransportConfig {
	return TransportConfig{
		InSampleRate:  16000,
		InChannels:    1,
		OutSampleRate: 16000,
		OutChannels:   1,
		OutFormat:     core.PCM,
	}
}
