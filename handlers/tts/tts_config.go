package tts

type TTSConfig struct {
	// MinTextLength filters out responses too short to be worth speaking.
	MinTextLength int `json:"min_text_length"`
}

func DefaultConfig() TTSConfig {
	return TTSConfig{MinTextLength: 1}
}
