package exporter

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// RecordKind tags a card record's shape.
type RecordKind string

const (
	KindBasic RecordKind = "basic"
	KindCloze RecordKind = "cloze"
)

// Record is one input card as supplied by callers: UI forms, import
// parsers, or the HTTP API.
type Record struct {
	Kind  RecordKind `json:"type" yaml:"type"`
	Front string     `json:"front,omitempty" yaml:"front,omitempty"`
	Back  string     `json:"back,omitempty" yaml:"back,omitempty"`
	Text  string     `json:"text,omitempty" yaml:"text,omitempty"`
	Image string     `json:"image,omitempty" yaml:"image,omitempty"`
	Audio string     `json:"audio,omitempty" yaml:"audio,omitempty"`
	Tags  []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Note  string     `json:"note,omitempty" yaml:"note,omitempty"`
	Deck  string     `json:"deck,omitempty" yaml:"deck,omitempty"`
	GUID  string     `json:"guid,omitempty" yaml:"guid,omitempty"`
}

// Validate checks the record's shape: basic cards need a front, cloze
// cards need text. Cloze syntax itself is checked later by the cloze
// engine.
func (r Record) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.In(KindBasic, KindCloze)),
		validation.Field(&r.Front, validation.Required.When(r.Kind == KindBasic)),
		validation.Field(&r.Text, validation.Required.When(r.Kind == KindCloze)),
	)
}
