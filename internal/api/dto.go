package api

import "github.com/starford/perthro/internal/exporter"

// ExportRequest is the request body for an export.
type ExportRequest struct {
	Deck     string            `json:"deck"`
	Filename string            `json:"filename,omitempty"`
	Cards    []exporter.Record `json:"cards"`
}

// ValidateRequest asks for a cloze text check.
type ValidateRequest struct {
	Text string `json:"text"`
}

// ValidateResponse reports the outcome of a cloze text check.
type ValidateResponse struct {
	Valid      bool   `json:"valid"`
	Count      int    `json:"count"`
	Duplicates []int  `json:"duplicates,omitempty"`
	Error      string `json:"error,omitempty"`
}
