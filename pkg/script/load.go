package script

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a script file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

//go:embed default.yaml
var defaultScript []byte

// FormatFromPath picks the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported script extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Load reads and validates a script file.
func Load(path string) (*Script, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a script strictly (unknown fields are rejected) and validates it.
func Parse(data []byte, format Format) (*Script, error) {
	var s Script
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode script JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode script YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown script format %q", format)
	}

	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Default returns the built-in script.
func Default() (*Script, error) {
	return Parse(defaultScript, FormatYAML)
}

// LoadOrDefault loads path, or the built-in script when path is empty.
func LoadOrDefault(path string) (*Script, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}
