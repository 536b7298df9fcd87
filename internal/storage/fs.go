package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FS implements Provider backed by the local file system: media keys
// resolve under a media root, archives land in an output directory.
type FS struct {
	mediaRoot string
	outDir    string
}

// NewFS creates an FS provider. mediaRoot may be empty when no local
// media is used; outDir is created on demand.
func NewFS(mediaRoot, outDir string) (*FS, error) {
	var absMedia string
	if mediaRoot != "" {
		var err error
		absMedia, err = filepath.Abs(mediaRoot)
		if err != nil {
			return nil, fmt.Errorf("storage: resolve media root: %w", err)
		}
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve output dir: %w", err)
	}
	return &FS{mediaRoot: absMedia, outDir: absOut}, nil
}

// safePath resolves key against root and rejects any result that
// escapes it (directory traversal).
func safePath(root, key string) (string, error) {
	cleaned := filepath.Clean(key)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", key)
	}
	joined := filepath.Join(root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, root+string(os.PathSeparator)) && abs != root {
		return "", fmt.Errorf("storage: path escapes root: %s", key)
	}
	return abs, nil
}

// Resolve reads the media file at key under the media root.
func (f *FS) Resolve(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.mediaRoot == "" {
		return nil, fmt.Errorf("storage: no media root configured")
	}
	p, err := safePath(f.mediaRoot, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// WriteArchive writes the finished archive into the output directory
// and returns its full path.
func (f *FS) WriteArchive(data []byte, filename string) (string, error) {
	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create output dir: %w", err)
	}
	p, err := safePath(f.outDir, filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write archive: %w", err)
	}
	return p, nil
}
