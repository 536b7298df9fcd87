package exporter

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/perthro/internal/apperr"
	"github.com/starford/perthro/internal/ids"
	"github.com/starford/perthro/internal/testutil"
)

func testExporter(t *testing.T, opts Options) *Exporter {
	t.Helper()
	if opts.Alloc == nil {
		opts.Alloc = ids.NewSequence(100)
	}
	return New(opts)
}

// openCollection extracts collection.anki2 from archive bytes and opens it.
func openCollection(t *testing.T, archiveData []byte) *sql.DB {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archiveData), int64(len(archiveData)))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range zr.File {
		if f.Name != "collection.anki2" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		return testutil.OpenDB(t, data)
	}
	t.Fatal("collection.anki2 not in archive")
	return nil
}

func readArchiveEntry(t *testing.T, data []byte, name string) ([]byte, bool) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			defer rc.Close()
			b, err := io.ReadAll(rc)
			if err != nil {
				t.Fatal(err)
			}
			return b, true
		}
	}
	return nil, false
}

func TestExport_BasicDeck(t *testing.T) {
	e := testExporter(t, Options{DeckName: "Test"})
	res, err := e.Export(context.Background(), []Record{
		{Kind: KindBasic, Front: "Bonjour", Back: "Hello", Tags: []string{"greeting"}},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Stats.TotalNotes != 1 || res.Stats.TotalCards != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.Filename != "test.apkg" {
		t.Errorf("filename = %q", res.Filename)
	}

	db := openCollection(t, res.Data)
	var tags, flds string
	if err := db.QueryRow(`SELECT tags, flds FROM notes`).Scan(&tags, &flds); err != nil {
		t.Fatal(err)
	}
	if tags != " greeting " {
		t.Errorf("tags = %q", tags)
	}
	if !strings.HasPrefix(flds, "Bonjour\x1fHello") {
		t.Errorf("flds = %q", flds)
	}
}

func TestExport_ClozeConversion(t *testing.T) {
	e := testExporter(t, Options{DeckName: "Geo"})
	res, err := e.Export(context.Background(), []Record{
		{Kind: KindCloze, Text: "La capitale est ((c1::Paris))."},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Stats.TotalClozes != 1 {
		t.Errorf("TotalClozes = %d", res.Stats.TotalClozes)
	}

	db := openCollection(t, res.Data)
	var flds string
	if err := db.QueryRow(`SELECT flds FROM notes`).Scan(&flds); err != nil {
		t.Fatal(err)
	}
	field := strings.SplitN(flds, "\x1f", 2)[0]
	if field != "La capitale est {{c1::Paris}}." {
		t.Errorf("field = %q", field)
	}
	if strings.Contains(field, "((") {
		t.Error("internal cloze syntax leaked into export")
	}
}

func TestExport_DuplicateClozeRejected(t *testing.T) {
	e := testExporter(t, Options{})
	_, err := e.Export(context.Background(), []Record{
		{Kind: KindCloze, Text: "((c1::a)) ((c1::b))"},
	})
	var dup *apperr.DuplicateClozeError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateClozeError", err)
	}
}

func TestExport_ClozelessClozeRejected(t *testing.T) {
	e := testExporter(t, Options{})
	_, err := e.Export(context.Background(), []Record{
		{Kind: KindCloze, Text: "no deletions"},
	})
	if !errors.Is(err, apperr.ErrNoClozeFound) {
		t.Fatalf("err = %v, want ErrNoClozeFound", err)
	}
}

func TestExport_RecordValidation(t *testing.T) {
	e := testExporter(t, Options{})
	cases := []Record{
		{},                        // no kind
		{Kind: "fancy"},           // unknown kind
		{Kind: KindBasic},         // basic without front
		{Kind: KindCloze},         // cloze without text
	}
	for i, r := range cases {
		if _, err := e.Export(context.Background(), []Record{r}); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestExport_MediaEmbedded(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".png") {
			w.Write(png)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := testExporter(t, Options{DeckName: "Media", Client: srv.Client()})
	res, err := e.Export(context.Background(), []Record{
		{Kind: KindBasic, Front: "a", Back: "b", Image: srv.URL + "/pic.png"},
		{Kind: KindBasic, Front: "c", Back: "d", Image: srv.URL + "/broken.gif"},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Stats.MediaRequested != 2 || res.Stats.MediaEmbedded != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}

	manifestBlob, ok := readArchiveEntry(t, res.Data, "media")
	if !ok {
		t.Fatal("manifest missing")
	}
	var manifest map[string]string
	if err := json.Unmarshal(manifestBlob, &manifest); err != nil {
		t.Fatal(err)
	}
	if len(manifest) != 1 {
		t.Fatalf("manifest = %v", manifest)
	}
	if data, ok := readArchiveEntry(t, res.Data, "0"); !ok || string(data) != string(png) {
		t.Error("embedded media entry wrong")
	}

	// The note's field markup points at the planned name, not the URL.
	db := openCollection(t, res.Data)
	var flds string
	if err := db.QueryRow(`SELECT flds FROM notes ORDER BY id LIMIT 1`).Scan(&flds); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(flds, `<img src="`+manifest["0"]+`"`) {
		t.Errorf("flds = %q, want img pointing at %q", flds, manifest["0"])
	}
}

func TestExport_DataURIStaysInline(t *testing.T) {
	e := testExporter(t, Options{})
	uri := "data:image/png;base64,iVBORw0KGgo="
	res, err := e.Export(context.Background(), []Record{
		{Kind: KindBasic, Front: "a", Back: "b", Image: uri},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Stats.MediaRequested != 0 {
		t.Errorf("MediaRequested = %d, want 0 for inline data", res.Stats.MediaRequested)
	}
	db := openCollection(t, res.Data)
	var flds string
	db.QueryRow(`SELECT flds FROM notes`).Scan(&flds)
	if !strings.Contains(flds, uri) {
		t.Error("data URI not kept inline")
	}
}

func TestExport_MultipleDecks(t *testing.T) {
	e := testExporter(t, Options{DeckName: "Fallback"})
	res, err := e.Export(context.Background(), []Record{
		{Kind: KindBasic, Front: "a", Back: "1", Deck: "French"},
		{Kind: KindBasic, Front: "b", Back: "2", Deck: "German"},
		{Kind: KindBasic, Front: "c", Back: "3"},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	db := openCollection(t, res.Data)
	var decksBlob string
	if err := db.QueryRow(`SELECT decks FROM col`).Scan(&decksBlob); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"French", "German", "Fallback"} {
		if !strings.Contains(decksBlob, name) {
			t.Errorf("decks blob missing %q", name)
		}
	}
}

func TestExport_SuppliedGUIDUsed(t *testing.T) {
	e := testExporter(t, Options{})
	res, err := e.Export(context.Background(), []Record{
		{Kind: KindBasic, Front: "a", Back: "b", GUID: "fixed-guid"},
	})
	if err != nil {
		t.Fatal(err)
	}
	db := openCollection(t, res.Data)
	var guid string
	db.QueryRow(`SELECT guid FROM notes`).Scan(&guid)
	if guid != "fixed-guid" {
		t.Errorf("guid = %q", guid)
	}
}

func TestExport_IdempotentFieldEncoding(t *testing.T) {
	run := func() (string, string) {
		e := testExporter(t, Options{DeckName: "Same"})
		res, err := e.Export(context.Background(), []Record{
			{Kind: KindBasic, Front: "Bonjour", Back: "Hello"},
		})
		if err != nil {
			t.Fatal(err)
		}
		db := openCollection(t, res.Data)
		var guid, flds string
		db.QueryRow(`SELECT guid, flds FROM notes`).Scan(&guid, &flds)
		return guid, flds
	}
	g1, f1 := run()
	g2, f2 := run()
	if g1 != g2 || f1 != f2 {
		t.Errorf("exports differ: (%q,%q) vs (%q,%q)", g1, f1, g2, f2)
	}
}

func TestExport_EmptyRecordListStillImportable(t *testing.T) {
	e := testExporter(t, Options{DeckName: "Empty"})
	res, err := e.Export(context.Background(), nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	db := openCollection(t, res.Data)
	var notes, cards int
	db.QueryRow(`SELECT count(*) FROM notes`).Scan(&notes)
	db.QueryRow(`SELECT count(*) FROM cards`).Scan(&cards)
	if notes == 0 || cards == 0 {
		t.Errorf("notes = %d, cards = %d; want placeholders", notes, cards)
	}
}
