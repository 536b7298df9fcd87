// Package archive assembles the final export: the serialized collection,
// embedded media, and the manifest, in one ZIP container.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/starford/perthro/internal/apperr"
	"github.com/starford/perthro/internal/media"
)

// Reserved entry names inside the archive.
const (
	CollectionName   = "collection.anki2"
	ManifestName     = "media"
	FormatMarkerName = "meta"
	MetadataName     = "metadata.json"
)

// FormatVersion is the plain-text format marker's payload.
const FormatVersion = "2"

// Metadata is the JSON metadata record written alongside the collection.
type Metadata struct {
	Created       int64 `json:"created"`
	Modified      int64 `json:"modified"`
	SchemaVersion int   `json:"schema_version"`
}

// Result is a finished archive plus its media accounting, so callers
// can tell users when files were silently omitted.
type Result struct {
	Data           []byte
	MediaRequested int
	MediaEmbedded  int
}

// Assembler writes export archives.
type Assembler struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAssembler creates an Assembler.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger, now: time.Now}
}

// Assemble builds the archive from verified collection bytes and the
// fetch results. Failed fetches are omitted from the manifest; a
// missing collection or a manifest/entry mismatch is fatal.
func (a *Assembler) Assemble(colBytes []byte, fetched []media.Fetched, schemaVersion int) (*Result, error) {
	if len(colBytes) == 0 {
		return nil, fmt.Errorf("archive: %w", apperr.ErrMissingCollection)
	}

	// Successful fetches keep their planning order; keys are assigned
	// over the surviving subset.
	manifest := make(map[string]string)
	type entry struct {
		key  string
		data []byte
	}
	var entries []entry
	for _, f := range fetched {
		if f.Err != nil {
			continue
		}
		key := strconv.Itoa(len(entries))
		manifest[key] = f.Plan.Filename
		entries = append(entries, entry{key: key, data: f.Data})
	}

	if err := checkManifest(manifest, len(entries)); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("archive: create entry %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("archive: write entry %s: %w", name, err)
		}
		return nil
	}

	if err := write(CollectionName, colBytes); err != nil {
		return nil, err
	}
	manifestBlob, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("archive: marshal manifest: %w", err)
	}
	if err := write(ManifestName, manifestBlob); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := write(e.key, e.data); err != nil {
			return nil, err
		}
	}
	if err := write(FormatMarkerName, []byte(FormatVersion)); err != nil {
		return nil, err
	}
	meta := Metadata{
		Created:       a.now().Unix(),
		Modified:      a.now().Unix(),
		SchemaVersion: schemaVersion,
	}
	metaBlob, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("archive: marshal metadata: %w", err)
	}
	if err := write(MetadataName, metaBlob); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close zip: %w", err)
	}

	data := buf.Bytes()
	if err := verifyArchive(data, manifest); err != nil {
		return nil, err
	}

	a.logger.Info("archive assembled",
		slog.Int("media_requested", len(fetched)),
		slog.Int("media_embedded", len(entries)),
		slog.Int("bytes", len(data)))

	return &Result{
		Data:           data,
		MediaRequested: len(fetched),
		MediaEmbedded:  len(entries),
	}, nil
}

// checkManifest ensures keys are exactly "0".."n-1" with no gaps.
func checkManifest(manifest map[string]string, n int) error {
	if len(manifest) != n {
		return fmt.Errorf("%w: %d keys for %d entries", apperr.ErrManifestInconsistent, len(manifest), n)
	}
	for i := 0; i < n; i++ {
		if _, ok := manifest[strconv.Itoa(i)]; !ok {
			return fmt.Errorf("%w: key %d missing", apperr.ErrManifestInconsistent, i)
		}
	}
	return nil
}

// verifyArchive re-opens the finished bytes and confirms every manifest
// key exists as a same-named archive entry, and the collection entry is
// present. A mismatch here must never ship.
func verifyArchive(data []byte, manifest map[string]string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: reopen failed: %v", apperr.ErrManifestInconsistent, err)
	}
	names := make(map[string]struct{}, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = struct{}{}
	}
	if _, ok := names[CollectionName]; !ok {
		return fmt.Errorf("archive: %w", apperr.ErrMissingCollection)
	}
	for key := range manifest {
		if _, ok := names[key]; !ok {
			return fmt.Errorf("%w: manifest key %q has no archive entry", apperr.ErrManifestInconsistent, key)
		}
	}
	return nil
}
