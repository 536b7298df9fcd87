package models

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/starford/perthro/internal/apperr"
)

// Note is one instance of user content bound to a Model. Field values
// are positional against the model's fields.
type Note struct {
	Model  *Model
	Values []string
	Tags   []string
	GUID   string
}

// Note constructs a note from positional field values. The value count
// must equal the model's field count.
func (m *Model) Note(values ...string) (*Note, error) {
	if len(values) != len(m.Fields) {
		return nil, &apperr.FieldCountError{Model: m.Name, Expected: len(m.Fields), Actual: len(values)}
	}
	vals := make([]string, len(values))
	copy(vals, values)
	return &Note{Model: m, Values: vals, GUID: DeriveGUID(vals)}, nil
}

// NoteFromMap constructs a note from named field values. Unknown names
// fail; unnamed fields default to empty.
func (m *Model) NoteFromMap(fields map[string]string) (*Note, error) {
	vals := make([]string, len(m.Fields))
	for name, value := range fields {
		ord, ok := m.FieldOrdinal(name)
		if !ok {
			return nil, &apperr.UnknownFieldError{Model: m.Name, Field: name}
		}
		vals[ord] = value
	}
	return &Note{Model: m, Values: vals, GUID: DeriveGUID(vals)}, nil
}

// DeriveGUID computes the stable content-derived note identifier: a
// 64-bit FNV-1a hash of the joined field values, rendered base-36.
// Identical content always yields the same GUID, which is what lets the
// importer detect re-exports.
func DeriveGUID(values []string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.Join(values, "|")))
	return strconv.FormatUint(h.Sum64(), 36)
}

// SetGUID overrides the derived identifier with a caller-supplied one.
func (n *Note) SetGUID(guid string) {
	n.GUID = guid
}

// AddTag appends a tag to the note.
func (n *Note) AddTag(tag string) {
	n.Tags = append(n.Tags, tag)
}

// SortValue returns the note's first field, which the collection stores
// as the sortable/searchable field.
func (n *Note) SortValue() string {
	if len(n.Values) == 0 {
		return ""
	}
	return n.Values[0]
}

// CardOrdinals returns the template ordinals that generate cards for
// this note, in template order.
func (n *Note) CardOrdinals() []int {
	return n.Model.cardOrdinals(n.Values)
}

// Card is one renderable quiz instance: a note paired with a template
// ordinal. Scheduling fields are the fixed new-card defaults the target
// format expects; they carry no computed state.
type Card struct {
	Note        *Note
	TemplateOrd int
	Due         int
}

// Cards materializes the note's generated cards. Due ordinals are
// assigned later, in deck insertion order, by the collection builder.
func (n *Note) Cards() []Card {
	ords := n.CardOrdinals()
	cards := make([]Card, len(ords))
	for i, ord := range ords {
		cards[i] = Card{Note: n, TemplateOrd: ord}
	}
	return cards
}
