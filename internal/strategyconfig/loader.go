package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a preset file. Unknown fields fail immediately so a typo
// in a preset never silently runs with defaults.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates preset YAML.
func Parse(data []byte) (*Preset, error) {
	var p Preset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Hash generates a SHA256 over the preset's canonical JSON form, used
// to tag runs with the exact parameter set that produced them.
func Hash(p *Preset) (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
