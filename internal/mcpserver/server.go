// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the exporter as tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/perthro/internal/cloze"
	"github.com/starford/perthro/internal/exporter"
)

// ExporterFactory builds a fresh exporter per tool call.
type ExporterFactory func(deckName, filename string) *exporter.Exporter

// Server wraps the MCP server with export tools.
type Server struct {
	mcp         *server.MCPServer
	newExporter ExporterFactory
}

// New creates a new MCP server with the export tools registered.
func New(factory ExporterFactory) *Server {
	s := &Server{newExporter: factory}

	s.mcp = server.NewMCPServer(
		"Perthro",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("export_deck",
		mcp.WithDescription("Export flashcards into an importable .apkg package. "+
			"Cards is a JSON array of records: {type:\"basic\",front,back} or "+
			"{type:\"cloze\",text} with optional tags, image, audio, deck. "+
			"Cloze text uses ((c1::answer)) or ((c1::answer::hint)) markers. "+
			"Returns the archive as base64 plus export stats."),
		mcp.WithString("deck", mcp.Required(), mcp.Description("Deck name for the exported package")),
		mcp.WithString("cards", mcp.Required(), mcp.Description("JSON array of card records")),
	), s.exportDeck)

	s.mcp.AddTool(mcp.NewTool("validate_cloze",
		mcp.WithDescription("Check a cloze text for problems: missing deletions "+
			"or duplicate cloze numbers."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Cloze text using ((cN::...)) markers")),
	), s.validateCloze)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type exportResult struct {
	Filename string         `json:"filename"`
	Stats    exporter.Stats `json:"stats"`
	Archive  string         `json:"archive_base64"`
}

func (s *Server) exportDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deck, err := req.RequireString("deck")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cardsJSON, err := req.RequireString("cards")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var records []exporter.Record
	if err := json.Unmarshal([]byte(cardsJSON), &records); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cards is not a JSON array of records: %v", err)), nil
	}

	res, err := s.newExporter(deck, "").Export(ctx, records)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.MarshalIndent(exportResult{
		Filename: res.Filename,
		Stats:    res.Stats,
		Archive:  base64.StdEncoding.EncodeToString(res.Data),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) validateCloze(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v := cloze.Validate(text)
	if !v.Valid {
		return mcp.NewToolResultError(v.Err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("valid: %d cloze deletions, numbers %v", v.Count, cloze.Numbers(text))), nil
}
