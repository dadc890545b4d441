package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"seo-agents/backend/internal/compliance"
	"seo-agents/backend/internal/services"
	"seo-agents/backend/pkg/models"
)

// Server exposes the agent workflows as MCP tools.
type Server struct {
	mcpServer  *server.MCPServer
	runner     services.AgentRunner
	compliance compliance.Checker
}

func NewServer(runner services.AgentRunner, checker compliance.Checker) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"SEO Agents",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		runner:     runner,
		compliance: checker,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_scholar",
			mcp.WithDescription("Research keywords and propose content topics for a client"),
			mcp.WithString("client_id", mcp.Required(), mcp.Description("The ID of the client")),
			mcp.WithString("org_id", mcp.Description("The organization that owns the client")),
		),
		s.handleRunScholar,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_ghostwriter",
			mcp.WithDescription("Write a compliance-checked article for one topic and queue it for review"),
			mcp.WithString("client_id", mcp.Required(), mcp.Description("The ID of the client")),
			mcp.WithString("keyword", mcp.Required(), mcp.Description("The target keyword")),
			mcp.WithString("title", mcp.Description("Suggested article title")),
			mcp.WithString("angle", mcp.Description("Editorial angle, e.g. informational")),
			mcp.WithString("org_id", mcp.Description("The organization that owns the client")),
		),
		s.handleRunGhostwriter,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_conductor",
			mcp.WithDescription("Run the full research and writing pipeline for a client"),
			mcp.WithString("client_id", mcp.Required(), mcp.Description("The ID of the client")),
			mcp.WithString("org_id", mcp.Description("The organization that owns the client")),
		),
		s.handleRunConductor,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"check_compliance",
			mcp.WithDescription("Review text against the advertising rules of a vertical"),
			mcp.WithString("text", mcp.Required(), mcp.Description("Text or HTML to review")),
			mcp.WithString("vertical", mcp.Required(), mcp.Description("The client vertical, e.g. dental")),
		),
		s.handleCheckCompliance,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"resume_run",
			mcp.WithDescription("Resume an interrupted run from its last checkpoint"),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("The ID of the run")),
		),
		s.handleResumeRun,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"cancel_run",
			mcp.WithDescription("Cancel a run executing in this process"),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("The ID of the run")),
		),
		s.handleCancelRun,
	)
}

func (s *Server) handleRunScholar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID, err := request.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: client_id"), nil
	}
	summary, err := s.runner.RunScholar(ctx, clientID, request.GetString("org_id", ""), models.TriggerManual)
	return summaryResult("run scholar", summary, err)
}

func (s *Server) handleRunGhostwriter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID, err := request.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: client_id"), nil
	}
	keyword, err := request.RequireString("keyword")
	if err != nil || keyword == "" {
		return mcp.NewToolResultError("Missing required parameter: keyword"), nil
	}
	topic := models.ContentTopic{
		Keyword:        keyword,
		SuggestedTitle: request.GetString("title", keyword),
		Angle:          request.GetString("angle", "informational"),
	}
	summary, err := s.runner.RunGhostwriter(ctx, clientID, request.GetString("org_id", ""), topic, models.TriggerManual)
	return summaryResult("run ghostwriter", summary, err)
}

func (s *Server) handleRunConductor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID, err := request.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: client_id"), nil
	}
	summary, err := s.runner.RunConductor(ctx, clientID, request.GetString("org_id", ""), models.TriggerManual)
	return summaryResult("run conductor", summary, err)
}

func (s *Server) handleCheckCompliance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil || text == "" {
		return mcp.NewToolResultError("Missing required parameter: text"), nil
	}
	vertical, err := request.RequireString("vertical")
	if err != nil || vertical == "" {
		return mcp.NewToolResultError("Missing required parameter: vertical"), nil
	}

	verdict := s.compliance.Check(ctx, text, models.Vertical(vertical))
	jsonBytes, _ := json.Marshal(verdict)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleResumeRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: run_id"), nil
	}
	summary, err := s.runner.Resume(ctx, runID)
	return summaryResult("resume run", summary, err)
}

func (s *Server) handleCancelRun(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: run_id"), nil
	}
	if !s.runner.Cancel(runID) {
		return mcp.NewToolResultError(fmt.Sprintf("Run %s is not executing", runID)), nil
	}
	return mcp.NewToolResultText("Cancellation requested"), nil
}

func summaryResult(action string, summary models.RunSummary, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err)), nil
	}
	jsonBytes, _ := json.Marshal(summary)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
