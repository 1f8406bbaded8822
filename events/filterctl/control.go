package filterctl

// FilterEnableEvent toggles pass-through mode on the audio input filter.
type FilterEnableEvent struct {
	Enabled bool
}

func (e *FilterEnableEvent) GetId() string {
	return "filterctl.enable"
}

// FilterUpdateSettingsEvent carries a settings mapping for the audio input
// filter. Recognized keys are filter-specific; unknown keys are ignored.
type FilterUpdateSettingsEvent struct {
	Settings map[string]any
}

func (e *FilterUpdateSettingsEvent) GetId() string {
	return "filterctl.update_settings"
}
