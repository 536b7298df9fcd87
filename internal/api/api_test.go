package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/perthro/internal/exporter"
	"github.com/starford/perthro/internal/ids"
)

func testRouter(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	factory := func(deckName, filename string) *exporter.Exporter {
		return exporter.New(exporter.Options{
			DeckName: deckName,
			Filename: filename,
			Alloc:    ids.NewSequence(100),
		})
	}
	return NewRouter(NewHandler(factory), authEnabled, token)
}

func postJSON(t *testing.T, h http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	blob, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(blob))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestExport_ReturnsArchive(t *testing.T) {
	h := testRouter(t, false, "")
	rec := postJSON(t, h, "/export", ExportRequest{
		Deck: "Test",
		Cards: []exporter.Record{
			{Kind: exporter.KindBasic, Front: "Bonjour", Back: "Hello"},
		},
	}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "test.apkg") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	var stats exporter.Stats
	if err := json.Unmarshal([]byte(rec.Header().Get("X-Export-Stats")), &stats); err != nil {
		t.Fatalf("stats header: %v", err)
	}
	if stats.TotalNotes != 1 {
		t.Errorf("stats = %+v", stats)
	}
	// ZIP local file header magic.
	if body := rec.Body.Bytes(); len(body) < 4 || string(body[:2]) != "PK" {
		t.Error("body is not a ZIP archive")
	}
}

func TestExport_ValidationErrorIs422(t *testing.T) {
	h := testRouter(t, false, "")
	rec := postJSON(t, h, "/export", ExportRequest{
		Deck: "Test",
		Cards: []exporter.Record{
			{Kind: exporter.KindCloze, Text: "((c1::a)) ((c1::b))"},
		},
	}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestExport_BadJSONIs400(t *testing.T) {
	h := testRouter(t, false, "")
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestValidate_Endpoint(t *testing.T) {
	h := testRouter(t, false, "")

	rec := postJSON(t, h, "/validate", ValidateRequest{Text: "((c1::a)) ((c2::b))"}, nil)
	var resp ValidateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Valid || resp.Count != 2 {
		t.Errorf("resp = %+v", resp)
	}

	rec = postJSON(t, h, "/validate", ValidateRequest{Text: "((c1::a)) ((c1::b))"}, nil)
	resp = ValidateResponse{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Valid || len(resp.Duplicates) != 1 || resp.Duplicates[0] != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAuth_Required(t *testing.T) {
	h := testRouter(t, true, "secret")

	rec := postJSON(t, h, "/validate", ValidateRequest{Text: "((c1::a))"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without token", rec.Code)
	}

	rec = postJSON(t, h, "/validate", ValidateRequest{Text: "((c1::a))"},
		map[string]string{"Authorization": "Bearer secret"})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with token", rec.Code)
	}
}
