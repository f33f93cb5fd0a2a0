package camera

import "slices"

// preset tweaks DefaultConfig for one kind of scene or sensor.
type preset struct {
	name  string
	apply func(*Config)
}

// presets are listed in the order shown by -help.
var presets = []preset{
	{"default", func(*Config) {}},
	{"legacy", func(c *Config) { *c = LegacyConfig() }},
	{"720p", func(c *Config) { c.Width, c.Height = 1280, 720 }},
	{"1080p", func(c *Config) { c.Width, c.Height = 1920, 1080 }},

	// Exposure and zoom are honoured by the Still backend only.
	{"night", func(c *Config) {
		c.ExposureMode = "long"
		c.ExposureValue = 1.0
	}},
	{"zoom2x", func(c *Config) { c.ZoomLevel = 2.0 }},
}

// PresetNames lists the preset names accepted by GetPreset.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.name)
	}
	return names
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	i := slices.IndexFunc(presets, func(p preset) bool { return p.name == name })
	if i < 0 {
		return nil
	}
	cfg := DefaultConfig()
	presets[i].apply(&cfg)
	return &cfg
}
