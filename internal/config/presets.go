package config

// Presets are named starting points for common run profiles.
var Presets = map[string]*Config{
	"quick": {
		Ftol:    1e-4,
		MaxIter: 10,
		MaxDisp: DefaultMaxDisp,
		DataDir: ".lgfrelax",
		Model:   ModelConfig{SpringK: DefaultSpringK, CoreSteps: 3, CoreGamma: 0.2},
	},
	"production": {
		Ftol:    1e-8,
		MaxIter: 200,
		MaxDisp: 0.5,
		DataDir: ".lgfrelax",
		Model:   ModelConfig{SpringK: DefaultSpringK, CoreSteps: 10, CoreGamma: 0.05},
	},
}

// GetPreset returns a copy of the named preset, or nil if unknown.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// ListPresets returns the available preset names.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
