// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Foundry tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/foundryos/foundry/internal/apperr"
	"github.com/foundryos/foundry/internal/hub"
	"github.com/foundryos/foundry/internal/manifest"
)

// Server wraps the MCP server with Foundry tools.
type Server struct {
	mcp *server.MCPServer
	svc *hub.Service
}

// New creates a new MCP server with all Foundry tools registered.
func New(svc *hub.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Foundry",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("empire_status",
		mcp.WithDescription("Aggregate status of the whole empire: revenue and user totals, "+
			"completion rates per project type, agent workloads, and any patterns awaiting review."),
	), s.empireStatus)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List projects, optionally filtered by status and project type."),
		mcp.WithString("status", mcp.Description("Optional status filter (planning, development, production, paused, archived)")),
		mcp.WithString("type", mcp.Description("Optional project type filter (e.g. saas, content)")),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Read the full record of a single project."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Project id (manifest id field or file name stem)")),
	), s.getProject)

	s.mcp.AddTool(mcp.NewTool("create_project",
		mcp.WithDescription("Write a new project manifest into the hub. "+
			"The manifest MUST follow the canonical format (required name, type and status fields, "+
			"revenue as a dollar string or number). Read the contract first via the "+
			"get_manifest_contract tool or the foundry://manifest-format resource."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("File name for the new manifest (must end with .json)")),
		mcp.WithString("manifest", mcp.Required(), mcp.Description("Manifest document as a JSON object string")),
	), s.createProject)

	s.mcp.AddTool(mcp.NewTool("get_manifest_contract",
		mcp.WithDescription("Returns the canonical Foundry manifest format contract. "+
			"Call this before creating manifests to ensure correct structure."),
	), s.getManifestContract)

	s.mcp.AddTool(mcp.NewTool("reload_hub",
		mcp.WithDescription("Rescan the hub directory and rebuild the empire snapshot."),
	), s.reloadHub)

	s.mcp.AddTool(mcp.NewTool("list_diagnostics",
		mcp.WithDescription("List the diagnostics from the last manifest scan: rejected files and degraded fields."),
	), s.listDiagnostics)

	s.mcp.AddTool(mcp.NewTool("list_patterns",
		mcp.WithDescription("List confirmed success patterns."),
	), s.listPatterns)

	s.mcp.AddTool(mcp.NewTool("confirm_pattern",
		mcp.WithDescription("Accept or reject the pending pattern detected for a project type. "+
			"Accepting records the pattern and advances the type's baseline; rejecting only advances the baseline."),
		mcp.WithString("project_type", mcp.Required(), mcp.Description("Project type the pending pattern belongs to")),
		mcp.WithString("decision", mcp.Required(), mcp.Description("Either \"accept\" or \"reject\"")),
	), s.confirmPattern)

	// Resource: manifest format contract.
	s.mcp.AddResource(
		mcp.NewResource("foundry://manifest-format", "Manifest Format Contract",
			mcp.WithResourceDescription("Canonical project manifest format that all manifests must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readManifestFormatResource,
	)

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

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) empireStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report), nil
}

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := ""
	if v, err := req.RequireString("status"); err == nil {
		status = v
	}
	projectType := ""
	if v, err := req.RequireString("type"); err == nil {
		projectType = v
	}

	projects, err := s.svc.Projects(ctx, status, projectType)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(projects), nil
}

func (s *Server) getProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	project, err := s.svc.Project(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(project), nil
}

func (s *Server) createProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := req.RequireString("manifest")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := manifest.Decode([]byte(doc))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	project, err := s.svc.CreateManifest(ctx, filename, raw)
	if err != nil {
		var rejected *hub.ManifestRejectedError
		if errors.As(err, &rejected) {
			out, _ := json.MarshalIndent(rejected.Diagnostics, "", "  ")
			return mcp.NewToolResultError("manifest rejected:\n" + string(out)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(project), nil
}

func (s *Server) getManifestContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ManifestFormatContract), nil
}

func (s *Server) reloadHub(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.svc.Reload(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result), nil
}

func (s *Server) listDiagnostics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	diags, err := s.svc.Diagnostics(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(diags) == 0 {
		return mcp.NewToolResultText("no diagnostics, all manifests clean"), nil
	}
	return jsonResult(diags), nil
}

func (s *Server) listPatterns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patterns, err := s.svc.Patterns(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(patterns) == 0 {
		return mcp.NewToolResultText("no confirmed patterns yet"), nil
	}
	return jsonResult(patterns), nil
}

func (s *Server) confirmPattern(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectType, err := req.RequireString("project_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	decision, err := req.RequireString("decision")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var accept bool
	switch decision {
	case "accept":
		accept = true
	case "reject":
		accept = false
	default:
		return mcp.NewToolResultError(fmt.Sprintf("decision must be accept or reject, got %q", decision)), nil
	}

	confirmed, err := s.svc.ResolvePattern(ctx, projectType, accept)
	if err != nil {
		if errors.Is(err, apperr.ErrNoPending) {
			return mcp.NewToolResultError(fmt.Sprintf("no pending pattern for type %s", projectType)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if confirmed == nil {
		return mcp.NewToolResultText(fmt.Sprintf("pattern rejected, %s baseline advanced", projectType)), nil
	}
	return jsonResult(confirmed), nil
}

func (s *Server) readManifestFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "foundry://manifest-format",
			MIMEType: "text/markdown",
			Text:     ManifestFormatContract,
		},
	}, nil
}
