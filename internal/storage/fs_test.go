package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func testFS(t *testing.T) (*FS, string, string) {
	t.Helper()
	mediaRoot := t.TempDir()
	outDir := t.TempDir()
	f, err := NewFS(mediaRoot, outDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return f, mediaRoot, outDir
}

func TestResolve(t *testing.T) {
	f, mediaRoot, _ := testFS(t)
	if err := os.WriteFile(filepath.Join(mediaRoot, "pic.png"), []byte{0x89}, 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := f.Resolve(context.Background(), "pic.png")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(data) != 1 || data[0] != 0x89 {
		t.Errorf("data = %v", data)
	}
}

func TestResolve_Missing(t *testing.T) {
	f, _, _ := testFS(t)
	if _, err := f.Resolve(context.Background(), "gone.png"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolve_TraversalRejected(t *testing.T) {
	f, _, _ := testFS(t)
	for _, key := range []string{"../outside.png", "/etc/passwd", "a/../../b"} {
		if _, err := f.Resolve(context.Background(), key); err == nil {
			t.Errorf("Resolve(%q) succeeded, want traversal rejection", key)
		}
	}
}

func TestResolve_CancelledContext(t *testing.T) {
	f, _, _ := testFS(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Resolve(ctx, "pic.png"); err == nil {
		t.Error("expected context error")
	}
}

func TestWriteArchive(t *testing.T) {
	f, _, outDir := testFS(t)
	p, err := f.WriteArchive([]byte("zip-bytes"), "deck.apkg")
	if err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	if filepath.Dir(p) != outDir {
		t.Errorf("path = %q, want under %q", p, outDir)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "zip-bytes" {
		t.Errorf("data = %q", data)
	}
}

func TestWriteArchive_TraversalRejected(t *testing.T) {
	f, _, _ := testFS(t)
	if _, err := f.WriteArchive([]byte("x"), "../escape.apkg"); err == nil {
		t.Error("expected traversal rejection")
	}
}
