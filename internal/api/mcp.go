package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fixturelab/plumbline/internal/notestore"
	"github.com/fixturelab/plumbline/internal/storage"
)

// MCPDeps holds dependencies for the MCP server. Cache must be the same
// instance the HTTP handler uses so edits on either surface stay coherent.
type MCPDeps struct {
	Store      *storage.Store
	Notes      *notestore.Service
	Cache      *ReportCache
	UnitColumn string // optional; forces the unit column instead of detecting it
}

// NewMCPServer creates an MCP server exposing the installation-report note
// tools and the compiled report resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"plumbline",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("plumbline — installation report notes for water-fixture inspections."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_report_notes",
			mcp.WithDescription("List the compiled installation notes, one entry per unit, sorted by unit."),
		),
		mcpListReportNotes(deps),
	)

	s.AddTool(
		mcp.NewTool("get_note",
			mcp.WithDescription("Read the manually edited note stored for a unit."),
			mcp.WithString("unit", mcp.Description("Unit identifier"), mcp.Required()),
		),
		mcpGetNote(deps),
	)

	s.AddTool(
		mcp.NewTool("set_note",
			mcp.WithDescription("Overwrite the manually edited note for a unit. The compiled report picks the change up immediately."),
			mcp.WithString("unit", mcp.Description("Unit identifier"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Note text"), mcp.Required()),
		),
		mcpSetNote(deps),
	)

	s.AddTool(
		mcp.NewTool("clear_notes",
			mcp.WithDescription("Remove every manually edited note. Compiled notes fall back to the automatic sources."),
		),
		mcpClearNotes(deps),
	)

	s.AddTool(
		mcp.NewTool("add_annotation",
			mcp.WithDescription("Attach a free-text annotation to a unit; it is appended to the unit's compiled note."),
			mcp.WithString("unit", mcp.Description("Unit identifier"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Annotation text"), mcp.Required()),
		),
		mcpAddAnnotation(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"report://notes",
			"Compiled Installation Notes",
			mcp.WithResourceDescription("The compiled per-unit notes section as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceReport(deps),
	)

	return s
}

func mcpListReportNotes(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		notes := compileReport(deps.Store, deps.Notes, deps.UnitColumn)

		b, err := json.Marshal(notes)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal notes: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		unit, err := req.RequireString("unit")
		if err != nil {
			return mcpError("unit is required"), nil
		}

		content, ok := deps.Notes.Get(unit)
		if !ok {
			return mcpText(fmt.Sprintf("no stored note for unit %s", unit)), nil
		}
		return mcpText(content), nil
	}
}

func mcpSetNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		unit, err := req.RequireString("unit")
		if err != nil {
			return mcpError("unit is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}

		deps.Notes.Update(unit, content)
		return mcpText(fmt.Sprintf("Stored note for unit %s", unit)), nil
	}
}

func mcpClearNotes(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		deps.Notes.ClearAll()
		if deps.Cache != nil {
			deps.Cache.Invalidate()
		}
		return mcpText("Cleared all stored notes"), nil
	}
}

func mcpAddAnnotation(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		unit, err := req.RequireString("unit")
		if err != nil {
			return mcpError("unit is required"), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		if err := deps.Store.AppendSelectedCell(unit, text); err != nil {
			return mcpError(fmt.Sprintf("failed to save annotation: %v", err)), nil
		}
		if deps.Cache != nil {
			deps.Cache.Invalidate()
		}
		return mcpText(fmt.Sprintf("Attached annotation to unit %s", unit)), nil
	}
}

func mcpResourceReport(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		notes := compileReport(deps.Store, deps.Notes, deps.UnitColumn)

		b, err := json.Marshal(notes)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notes: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
