package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := Marshal(MsgUpdateSettings, UpdateSettingsPayload{
		Settings: map[string]any{"enhancement_strength": 0.8},
	})
	require.NoError(t, err)

	msgType, raw, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, MsgUpdateSettings, msgType)

	payload, err := UnmarshalPayload[UpdateSettingsPayload](raw)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, payload.Settings["enhancement_strength"], 1e-9)
}

func TestMarshalWithoutPayload(t *testing.T) {
	data, err := Marshal(MsgFilterEnable, nil)
	require.NoError(t, err)

	msgType, raw, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, MsgFilterEnable, msgType)
	assert.Empty(t, raw)
}

func TestUnmarshalRejectsMissingType(t *testing.T) {
	_, _, err := Unmarshal([]byte(`{"payload":{}}`))
	assert.Error(t, err)

	_, _, err = Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}
