package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/perthro/internal/exporter"
	"github.com/starford/perthro/internal/ids"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	factory := func(deckName, filename string) *exporter.Exporter {
		return exporter.New(exporter.Options{
			DeckName: deckName,
			Filename: filename,
			Alloc:    ids.NewSequence(100),
		})
	}
	return New(factory)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error
	switch name {
	case "export_deck":
		result, err = srv.exportDeck(ctx, req)
	case "validate_cloze":
		result, err = srv.validateCloze(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestExportDeck(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "export_deck", map[string]interface{}{
		"deck":  "Test",
		"cards": `[{"type":"basic","front":"Bonjour","back":"Hello"}]`,
	})
	if r.IsError {
		t.Fatalf("tool errored: %s", resultText(r))
	}

	var res exportResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if res.Filename != "test.apkg" || res.Stats.TotalNotes != 1 {
		t.Errorf("result = %+v", res)
	}
	data, err := base64.StdEncoding.DecodeString(res.Archive)
	if err != nil {
		t.Fatalf("archive not base64: %v", err)
	}
	if len(data) < 4 || string(data[:2]) != "PK" {
		t.Error("archive is not a ZIP")
	}
}

func TestExportDeck_BadCardsJSON(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "export_deck", map[string]interface{}{
		"deck":  "Test",
		"cards": "not json",
	})
	if !r.IsError {
		t.Error("expected error for malformed cards")
	}
}

func TestValidateCloze(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "validate_cloze", map[string]interface{}{
		"text": "((c1::a)) ((c2::b))",
	})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "2 cloze deletions") {
		t.Errorf("result = %q", resultText(r))
	}

	r = callTool(t, srv, "validate_cloze", map[string]interface{}{
		"text": "((c1::a)) ((c1::b))",
	})
	if !r.IsError {
		t.Error("expected duplicate numbers to be an error")
	}
}
