package stt

import "voicekit/core"

type STTConfig struct {
	RequiredSampleRate  int // Sample rate the transcription engine expects, in Hz.
	RequiredChannels    int
	RequiredAudioFormat core.AudioEncodingFormat
}

func DefaultConfig() STTConfig {
	return STTConfig{
		RequiredSampleRate:  16000,
		RequiredChannels:    1,
		RequiredAudioFormat: core.PCM,
	}
}
