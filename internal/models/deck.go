package models

// Deck is an ordered collection of notes under one name. Insertion
// order is preserved and later determines the due ordinal of generated
// cards.
type Deck struct {
	ID    int64
	Name  string
	Desc  string
	Notes []*Note
}

// NewDeck creates a deck with the given identifier and name.
func NewDeck(id int64, name string) *Deck {
	return &Deck{ID: id, Name: name}
}

// AddNote appends a note to the deck.
func (d *Deck) AddNote(n *Note) {
	d.Notes = append(d.Notes, n)
}

// AddNotes appends notes in call order.
func (d *Deck) AddNotes(notes ...*Note) {
	d.Notes = append(d.Notes, notes...)
}
