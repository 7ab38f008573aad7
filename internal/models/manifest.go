package models

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var embeddedManifest []byte

// Variant describes one downloadable model build.
type Variant struct {
	DisplayName string `yaml:"display_name"`
	Filename    string `yaml:"filename"`
	URL         string `yaml:"url"`
	// SHA256 of the model file; empty skips verification.
	SHA256 string `yaml:"sha256"`
}

// Manifest maps variant names to model artefacts.
type Manifest struct {
	Variants map[string]Variant `yaml:"variants"`
}

// DefaultManifest parses the manifest shipped with the binary.
func DefaultManifest() (Manifest, error) {
	return ParseManifest(embeddedManifest)
}

// ParseManifest decodes a YAML manifest document.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("models: decode manifest: %w", err)
	}
	if len(m.Variants) == 0 {
		return Manifest{}, fmt.Errorf("models: manifest has no variants")
	}
	for name, v := range m.Variants {
		if v.Filename == "" {
			return Manifest{}, fmt.Errorf("models: variant %q missing filename", name)
		}
	}
	return m, nil
}
