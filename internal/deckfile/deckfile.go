// Package deckfile loads YAML deck descriptions into export records.
package deckfile

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/perthro/internal/exporter"
)

// File is a deck description: a default deck name, an optional output
// filename, and the card records.
type File struct {
	Deck   string            `yaml:"deck"`
	Output string            `yaml:"output"`
	Cards  []exporter.Record `yaml:"cards"`
}

// Validate checks the deck file's own shape; per-record validation
// happens again inside the exporter.
func (f *File) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Deck, validation.Required),
	)
}

// Load reads and validates a deck file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("deckfile: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("deckfile: parse %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("deckfile: validate %s: %w", path, err)
	}
	for i, r := range f.Cards {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("deckfile: card %d: %w", i, err)
		}
	}
	return &f, nil
}
