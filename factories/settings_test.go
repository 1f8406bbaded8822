package factories

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFromJSONOverridesDefaults(t *testing.T) {
	cfg, err := SettingsConfigFromJSON([]byte(`{
		"filter": {"enabled": false, "channels": 2, "frame_size": 480, "enhancement_strength": 0.4},
		"llm_prompt": {"system_prompt": "be terse"}
	}`))
	require.NoError(t, err)

	assert.False(t, cfg.Filter.Enabled)
	assert.Equal(t, 2, cfg.Filter.Channels)
	assert.Equal(t, 480, cfg.Filter.FrameSize)
	assert.InDelta(t, 0.4, cfg.Filter.EnhancementStrength, 1e-6)
	assert.Equal(t, "be terse", cfg.LLMPrompt.SystemPrompt)

	// Untouched sections keep their defaults.
	assert.Equal(t, 16000, cfg.Transport.InSampleRate)
	assert.Equal(t, "nova-2", cfg.STT.Model)
}

func TestSettingsFromJSONRejectsGarbage(t *testing.T) {
	_, err := SettingsConfigFromJSON([]byte(`{not json`))
	assert.Error(t, err)
}

func TestSettingsFromFileMissingUsesDefaults(t *testing.T) {
	cfg, err := SettingsConfigFromFile(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.True(t, cfg.Filter.Enabled)
}

func TestSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"recorder": {"channels": 1}}`), 0o644))

	cfg, err := SettingsConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Recorder.Channels)
}

func TestAPIKeysApply(t *testing.T) {
	cfg := DefaultSettingsConfig()
	keys := APIKeys{Deepgram: "dg-key", OpenAI: "oa-key", Acoustics: "lic"}
	keys.Apply(&cfg)

	assert.Equal(t, "dg-key", cfg.STT.APIKey)
	assert.Equal(t, "dg-key", cfg.TTS.APIKey)
	assert.Equal(t, "oa-key", cfg.LLM.APIKey)
}
