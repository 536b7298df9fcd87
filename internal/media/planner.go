// Package media plans content-addressed filenames for media references
// and resolves their bytes at assembly time.
package media

import (
	"net/url"
	"path"
	"strings"

	"github.com/starford/perthro/internal/checksum"
	"github.com/starford/perthro/internal/models"
)

// Plan is one resolved media entry: the original reference and the
// filename it will carry inside the archive.
type Plan struct {
	Ref      models.MediaReference
	Filename string
	Prefix   string
}

var (
	imageExts = map[string]struct{}{"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "webp": {}}
	audioExts = map[string]struct{}{"mp3": {}, "wav": {}, "ogg": {}, "m4a": {}}

	// Hosts that serve media from extensionless URLs.
	knownImageHosts = map[string]string{
		"lh3.googleusercontent.com": "jpg",
		"images.unsplash.com":       "jpg",
		"i.imgur.com":               "png",
	}
	knownAudioHosts = map[string]string{
		"translate.google.com": "mp3",
	}
)

// Planner accumulates planned media entries for one export. Identical
// references collapse to one entry because filenames are derived purely
// from the reference's content hash.
type Planner struct {
	entries []Plan
	seen    map[string]struct{}
}

// NewPlanner creates an empty planner.
func NewPlanner() *Planner {
	return &Planner{seen: make(map[string]struct{})}
}

// Plan assigns a deterministic archive filename to ref and records it.
// It returns ok=false for inline data: URIs, which stay embedded in the
// field markup and never become archive entries.
func (p *Planner) Plan(ref models.MediaReference) (string, bool) {
	if ref.Kind == models.KindInlineData {
		return "", false
	}
	name := PlannedFilename(ref)
	if _, dup := p.seen[name]; !dup {
		p.seen[name] = struct{}{}
		p.entries = append(p.entries, Plan{Ref: ref, Filename: name, Prefix: prefixFor(ref.Role)})
	}
	return name, true
}

// Entries returns all planned entries in planning order. Order carries
// no meaning (content-hash naming), but it is what the assembler uses
// to keep manifests reproducible.
func (p *Planner) Entries() []Plan {
	return p.entries
}

// PlannedFilename computes "{PREFIX}_{contentHash(ref)}.{ext}" for a
// reference. The hash covers the original reference string, so the same
// source always maps to the same archive name.
func PlannedFilename(ref models.MediaReference) string {
	return prefixFor(ref.Role) + "_" + checksum.Short([]byte(ref.Raw)) + "." + sniffExtension(ref)
}

func prefixFor(role models.MediaRole) string {
	if role == models.RoleAudio {
		return "snd"
	}
	return "img"
}

// sniffExtension derives the extension from the URL path, special-cases
// known extensionless hosts, and clamps the result to the allow-list.
// Anything unrecognized silently falls back to the role default.
func sniffExtension(ref models.MediaReference) string {
	fallback, allowed := "jpg", imageExts
	if ref.Role == models.RoleAudio {
		fallback, allowed = "mp3", audioExts
	}

	raw := ref.Raw
	if ref.Kind == models.KindStorageRef {
		raw = ref.StorageKey()
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	if ref.Kind == models.KindURL {
		hosts := knownImageHosts
		if ref.Role == models.RoleAudio {
			hosts = knownAudioHosts
		}
		if ext, ok := hosts[u.Hostname()]; ok {
			return ext
		}
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if _, ok := allowed[ext]; !ok {
		return fallback
	}
	return ext
}
