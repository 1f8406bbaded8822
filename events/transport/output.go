package transport

import "voicekit/core"

type TransportAudioInputEvent struct {
	AudioChunk core.AudioChunk
}

func (e *TransportAudioInputEvent) GetId() string {
	return "transport.audio_input"
}

type TransportTextInputEvent struct {
	Text string
}

func (e *TransportTextInputEvent) GetId() string {
	return "transport.text_input"
}

type TransportAudioOutputEvent struct {
	AudioChunk core.AudioChunk
}

func (e *TransportAudioOutputEvent) GetId() string {
	return "transport.audio_output"
}

type TransportTextOutputEvent struct {
	Text string
}

func (e *TransportTextOutputEvent) GetId() string {
	return "transport.text_output"
}
