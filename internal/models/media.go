package models

import "strings"

// MediaRole tags what a media reference is used for.
type MediaRole string

const (
	RoleImage MediaRole = "image"
	RoleAudio MediaRole = "audio"
)

// MediaKind is the closed set of reference shapes, decided once at
// ingestion instead of re-sniffed through the pipeline.
type MediaKind int

const (
	// KindURL is a plain http(s) URL fetched over the network.
	KindURL MediaKind = iota
	// KindStorageRef is an opaque identifier resolved by an injected
	// storage strategy.
	KindStorageRef
	// KindInlineData is a data: URI whose payload is already embedded
	// in the reference itself.
	KindInlineData
)

// MediaReference is an ingested media reference: the original string,
// its decided kind, and its role.
type MediaReference struct {
	Raw  string
	Kind MediaKind
	Role MediaRole
}

const storagePrefix = "store:"

// IngestMedia classifies a raw reference string. Empty input returns
// ok=false; callers fall back to embedding nothing.
func IngestMedia(raw string, role MediaRole) (MediaReference, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MediaReference{}, false
	}
	ref := MediaReference{Raw: raw, Role: role}
	switch {
	case strings.HasPrefix(raw, "data:"):
		ref.Kind = KindInlineData
	case strings.HasPrefix(raw, storagePrefix):
		ref.Kind = KindStorageRef
	default:
		ref.Kind = KindURL
	}
	return ref, true
}

// StorageKey strips the storage prefix from an opaque reference.
func (r MediaReference) StorageKey() string {
	return strings.TrimPrefix(r.Raw, storagePrefix)
}
