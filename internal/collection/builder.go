package collection

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/perthro/internal/apperr"
	"github.com/starford/perthro/internal/checksum"
	"github.com/starford/perthro/internal/ids"
	"github.com/starford/perthro/internal/models"
)

// fieldSep joins a note's field values in the flds column.
const fieldSep = "\x1f"

// Builder serializes a deck/model graph into collection bytes.
type Builder struct {
	alloc  ids.Allocator
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder creates a Builder drawing note/card ids from alloc.
func NewBuilder(alloc ids.Allocator, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{alloc: alloc, logger: logger, now: time.Now}
}

// Build serializes decks and mods into a complete collection database
// and returns its bytes. The produced bytes are re-opened and verified
// before being returned; a failed verification is fatal.
func (b *Builder) Build(decks []*models.Deck, mods []*models.Model) ([]byte, error) {
	f, err := os.CreateTemp("", "perthro-col-*.db")
	if err != nil {
		return nil, fmt.Errorf("collection: create temp db: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := b.write(path, decks, mods); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("collection: read serialized db: %w", err)
	}
	if err := Verify(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *Builder) write(path string, decks []*models.Deck, mods []*models.Model) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("collection: open db: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("collection: apply schema: %w", err)
	}

	// The importer treats a package without a model as corrupt; cover
	// the pathological empty-registry case with a synthetic one.
	if len(mods) == 0 {
		mods = []*models.Model{models.NewBasicModel(b.alloc.Next(), "Default")}
		b.logger.Warn("model registry empty, synthesizing default model")
	}

	now := b.now()
	if err := b.insertCol(db, now, decks, mods); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("collection: begin tx: %w", err)
	}
	defer tx.Rollback()

	firstCardID, err := b.insertNotes(tx, now, decks, mods)
	if err != nil {
		return err
	}

	// The importer also rejects an empty revlog.
	if _, err := tx.Exec(
		`INSERT INTO revlog (id, cid, usn, ease, ivl, lastIvl, factor, time, type)
		 VALUES (?, ?, -1, 0, 0, 0, 0, 0, 0)`,
		b.alloc.Next(), firstCardID); err != nil {
		return fmt.Errorf("collection: insert revlog row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("collection: commit: %w", err)
	}
	return nil
}

func (b *Builder) insertCol(db *sql.DB, now time.Time, decks []*models.Deck, mods []*models.Model) error {
	modelsBlob, err := modelsJSON(mods, now)
	if err != nil {
		return err
	}
	decksBlob, err := decksJSON(decks, now)
	if err != nil {
		return err
	}
	conf := fmt.Sprintf(defaultConfFmt, mods[0].ID)

	_, err = db.Exec(
		`INSERT INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		 VALUES (1, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?, ?, ?)`,
		now.Unix(), now.UnixMilli(), now.UnixMilli(), SchemaVersion,
		conf, modelsBlob, decksBlob, defaultDconf, "{}")
	if err != nil {
		return fmt.Errorf("collection: insert col row: %w", err)
	}
	return nil
}

// insertNotes writes every note and its generated cards, inserting a
// blank placeholder pair for decks with no notes. It returns the id of
// the first card written, for the synthetic revlog row.
func (b *Builder) insertNotes(tx *sql.Tx, now time.Time, decks []*models.Deck, mods []*models.Model) (int64, error) {
	noteStmt, err := tx.Prepare(
		`INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		 VALUES (?, ?, ?, ?, -1, ?, ?, ?, ?, 0, '')`)
	if err != nil {
		return 0, fmt.Errorf("collection: prepare notes: %w", err)
	}
	defer noteStmt.Close()

	cardStmt, err := tx.Prepare(
		`INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due,
		                    ivl, factor, reps, lapses, left, odue, odid, flags, data)
		 VALUES (?, ?, ?, ?, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`)
	if err != nil {
		return 0, fmt.Errorf("collection: prepare cards: %w", err)
	}
	defer cardStmt.Close()

	due := 1
	var firstCardID int64

	writeNote := func(deckID int64, n *models.Note) error {
		noteID := b.alloc.Next()
		flds := strings.Join(n.Values, fieldSep)
		sfld := n.SortValue()
		_, err := noteStmt.Exec(noteID, n.GUID, n.Model.ID, now.Unix(),
			tagString(n.Tags), flds, sfld, int64(checksum.SortField(sfld)))
		if err != nil {
			return fmt.Errorf("collection: insert note: %w", err)
		}
		for _, c := range n.Cards() {
			cardID := b.alloc.Next()
			if firstCardID == 0 {
				firstCardID = cardID
			}
			c.Due = due
			if _, err := cardStmt.Exec(cardID, noteID, deckID, c.TemplateOrd, now.Unix(), c.Due); err != nil {
				return fmt.Errorf("collection: insert card: %w", err)
			}
			due++
		}
		return nil
	}

	for _, deck := range decks {
		notes := deck.Notes
		if len(notes) == 0 {
			// An empty notes or cards table reads as corrupt on import;
			// a blank placeholder note keeps the package loadable.
			blank, err := blankNote(mods[0])
			if err != nil {
				return 0, err
			}
			notes = []*models.Note{blank}
			b.logger.Warn("deck has no notes, inserting placeholder",
				slog.String("deck", deck.Name))
		}
		for _, n := range notes {
			if err := writeNote(deck.ID, n); err != nil {
				return 0, err
			}
		}
	}

	if firstCardID == 0 {
		// No decks at all: still honor the non-empty invariant.
		blank, err := blankNote(mods[0])
		if err != nil {
			return 0, err
		}
		if err := writeNote(1, blank); err != nil {
			return 0, err
		}
	}
	return firstCardID, nil
}

// blankNote builds the placeholder note for an empty deck. Cloze models
// have no satisfiable requirements on empty fields, so the placeholder
// is forced onto a card-producing value set.
func blankNote(m *models.Model) (*models.Note, error) {
	vals := make([]string, len(m.Fields))
	vals[0] = "placeholder"
	n, err := m.Note(vals...)
	if err != nil {
		return nil, fmt.Errorf("collection: build placeholder note: %w", err)
	}
	return n, nil
}

// tagString renders tags in the space-delimited, space-padded form the
// importer parses.
func tagString(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

func modelsJSON(mods []*models.Model, now time.Time) (string, error) {
	out := make(map[string]modelJSON, len(mods))
	for _, m := range mods {
		mj := modelJSON{
			ID:        m.ID,
			Name:      m.Name,
			Type:      int(m.Kind),
			Mod:       now.Unix(),
			SortField: 0,
			DeckID:    nil,
			CSS:       m.CSS,
			LatexPre:  latexPre,
			LatexPost: latexPost,
			Tags:      []string{},
			Vers:      []json.RawMessage{},
		}
		for _, f := range m.Fields {
			mj.Fields = append(mj.Fields, fieldJSON{
				Name: f.Name, Ord: f.Ord, Font: f.Font, Size: f.Size, Media: []string{},
			})
		}
		for _, tpl := range m.Templates {
			mj.Templates = append(mj.Templates, templateJSON{
				Name: tpl.Name, Ord: tpl.Ord, Qfmt: tpl.QuestionFmt, Afmt: tpl.AnswerFmt,
			})
		}
		if m.Kind == models.Standard {
			for _, req := range m.Requirements {
				fieldOrds := make([]interface{}, len(req.FieldOrds))
				for i, o := range req.FieldOrds {
					fieldOrds[i] = o
				}
				mj.Req = append(mj.Req, []interface{}{req.TemplateOrd, string(req.Mode), fieldOrds})
			}
		}
		out[strconv.FormatInt(m.ID, 10)] = mj
	}
	blob, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("collection: marshal models: %w", err)
	}
	return string(blob), nil
}

func decksJSON(decks []*models.Deck, now time.Time) (string, error) {
	out := make(map[string]deckJSON, len(decks)+1)
	// Deck 1 must always exist; the importer anchors new cards to it.
	out["1"] = deckDescriptor(1, "Default", "", now)
	for _, d := range decks {
		out[strconv.FormatInt(d.ID, 10)] = deckDescriptor(d.ID, d.Name, d.Desc, now)
	}
	blob, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("collection: marshal decks: %w", err)
	}
	return string(blob), nil
}

func deckDescriptor(id int64, name, desc string, now time.Time) deckJSON {
	return deckJSON{
		ID:        id,
		Name:      name,
		Desc:      desc,
		Mod:       now.Unix(),
		ExtendNew: 10,
		ExtendRev: 50,
		ConfID:    1,
	}
}

// Verify re-opens serialized collection bytes and checks the invariants
// the importer relies on: exactly one col row and non-empty notes and
// cards tables. Any violation is ErrCorruptCollection.
func Verify(data []byte) error {
	f, err := os.CreateTemp("", "perthro-verify-*.db")
	if err != nil {
		return fmt.Errorf("collection: create verify db: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("collection: write verify db: %w", err)
	}
	f.Close()

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("%w: reopen failed: %v", apperr.ErrCorruptCollection, err)
	}
	defer db.Close()

	count := func(table string) (int, error) {
		var n int
		err := db.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n)
		return n, err
	}

	colRows, err := count("col")
	if err != nil {
		return fmt.Errorf("%w: col table unreadable: %v", apperr.ErrCorruptCollection, err)
	}
	if colRows != 1 {
		return fmt.Errorf("%w: col has %d rows, want exactly 1", apperr.ErrCorruptCollection, colRows)
	}
	for _, table := range []string{"notes", "cards"} {
		n, err := count(table)
		if err != nil {
			return fmt.Errorf("%w: %s table unreadable: %v", apperr.ErrCorruptCollection, table, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s table is empty", apperr.ErrCorruptCollection, table)
		}
	}
	return nil
}
