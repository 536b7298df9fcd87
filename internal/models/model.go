// Package models defines the domain types for a flashcard package:
// models (note types), notes, cards, decks, and media references.
package models

import "strings"

// ModelKind distinguishes how cards are generated from a note.
type ModelKind int

const (
	// Standard models derive cards from the requirement list.
	Standard ModelKind = iota
	// Cloze models render exactly one card per note.
	Cloze
)

// MatchMode combines a requirement's field checks.
type MatchMode string

const (
	MatchAny MatchMode = "any"
	MatchAll MatchMode = "all"
)

// Field is a named, ordered slot within a Model. Immutable once the
// model is constructed.
type Field struct {
	Name string
	Ord  int
	Font string
	Size int
}

// Template renders one card face pair from a note's fields.
type Template struct {
	Name        string
	Ord         int
	QuestionFmt string
	AnswerFmt   string
}

// Requirement states which fields must be non-empty for a template to
// produce a card.
type Requirement struct {
	TemplateOrd int
	Mode        MatchMode
	FieldOrds   []int
}

// Model is a note type: ordered fields, ordered templates, and the
// card-generation requirements.
type Model struct {
	ID           int64
	Name         string
	Kind         ModelKind
	Fields       []Field
	Templates    []Template
	Requirements []Requirement
	CSS          string

	fieldOrd map[string]int // name → ordinal, built at construction
}

// NewModel constructs a Model, assigning field and template ordinals
// from slice position and building the name lookup table.
func NewModel(id int64, name string, kind ModelKind, fields []Field, templates []Template, reqs []Requirement, css string) *Model {
	m := &Model{
		ID:           id,
		Name:         name,
		Kind:         kind,
		Fields:       make([]Field, len(fields)),
		Templates:    make([]Template, len(templates)),
		Requirements: reqs,
		CSS:          css,
		fieldOrd:     make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		f.Ord = i
		if f.Font == "" {
			f.Font = "Arial"
		}
		if f.Size == 0 {
			f.Size = 20
		}
		m.Fields[i] = f
		m.fieldOrd[f.Name] = i
	}
	for i, tpl := range templates {
		tpl.Ord = i
		m.Templates[i] = tpl
	}
	return m
}

// FieldOrdinal resolves a field name to its ordinal position.
func (m *Model) FieldOrdinal(name string) (int, bool) {
	ord, ok := m.fieldOrd[name]
	return ord, ok
}

// cardOrdinals computes which template ordinals produce cards for the
// given field values. Cloze models always yield [0].
func (m *Model) cardOrdinals(values []string) []int {
	if m.Kind == Cloze {
		return []int{0}
	}
	nonEmpty := func(ord int) bool {
		return ord < len(values) && strings.TrimSpace(values[ord]) != ""
	}
	var ords []int
	for _, req := range m.Requirements {
		satisfied := req.Mode == MatchAll
		for _, ford := range req.FieldOrds {
			if req.Mode == MatchAll {
				if !nonEmpty(ford) {
					satisfied = false
					break
				}
			} else if nonEmpty(ford) {
				satisfied = true
				break
			}
		}
		if satisfied {
			ords = append(ords, req.TemplateOrd)
		}
	}
	return ords
}
