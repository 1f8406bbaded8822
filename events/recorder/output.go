package recorder

// RecorderAudioDataEvent carries the composite session recording, emitted
// once when the recorder flushes.
type RecorderAudioDataEvent struct {
	Audio      []byte
	SampleRate int
	Channels   int
}

func (e *RecorderAudioDataEvent) GetId() string {
	return "recorder.audio_data"
}
