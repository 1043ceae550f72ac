package tactics

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresets []byte

// Presets is a named collection of validated setups.
type Presets map[string]Setup

// LoadPresets decodes a YAML document of the form `presets: {name: setup}`.
// Every preset must pass Validate.
func LoadPresets(r io.Reader) (Presets, error) {
	var doc struct {
		Presets map[string]Setup `yaml:"presets"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	for name, s := range doc.Presets {
		if s.Intensity == "" {
			s.Intensity = IntensityNormal
			doc.Presets[name] = s
		}
		if err := AsError(Validate(s)); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return doc.Presets, nil
}

// DefaultPresets returns the built-in preset collection.
func DefaultPresets() Presets {
	p, err := LoadPresets(bytes.NewReader(defaultPresets))
	if err != nil {
		panic(fmt.Sprintf("embedded presets: %v", err))
	}
	return p
}

// Names returns preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns a copy of the named preset.
func (p Presets) Get(name string) (Setup, bool) {
	s, ok := p[name]
	return s.Clone(), ok
}
