// Package mcp exposes the clarification workflow as an MCP server, so
// agent hosts can drive sessions as tools over stdio or SSE.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/elicit"
	"github.com/aretw0/elicit/pkg/domain"
)

// SessionResult is the structured output of the start and resume tools.
type SessionResult struct {
	SessionID string         `json:"session_id" jsonschema_description:"The session identifier"`
	Status    string         `json:"status" jsonschema_description:"suspended or completed"`
	Payload   map[string]any `json:"payload,omitempty" jsonschema_description:"Suspend payload with pending questions"`
	Answer    string         `json:"answer,omitempty" jsonschema_description:"Final answer when completed"`
}

// SessionInfo is the structured output of the inspect tool.
type SessionInfo struct {
	SessionID         string `json:"session_id"`
	NextNode          string `json:"next_node" jsonschema_description:"Node the session will execute next"`
	Version           int64  `json:"version"`
	Terminal          bool   `json:"terminal"`
	QuestionsAsked    int    `json:"questions_asked"`
	QuestionsAnswered int    `json:"questions_answered"`
	Answer            string `json:"answer,omitempty"`
}

// Engine defines the workflow surface the MCP server drives.
type Engine interface {
	Start(ctx context.Context, sessionID, prompt string, metadata map[string]any) (domain.Result, error)
	Resume(ctx context.Context, sessionID string, data map[string]any) (domain.Result, error)
}

// SessionDirectory provides read access to stored sessions.
type SessionDirectory interface {
	Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error)
	List(ctx context.Context) ([]string, error)
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	sessions  SessionDirectory
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, sessions SessionDirectory) *Server {
	s := &Server{
		engine:    engine,
		sessions:  sessions,
		mcpServer: server.NewMCPServer("elicit-mcp", strings.TrimSpace(elicit.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: start_session
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a clarification session for a prompt. Suspends with clarifying questions or completes with an answer."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The user's original question or request")),
		mcp.WithString("session_id", mcp.Description("Session identifier (generated when omitted)")),
		mcp.WithString("metadata", mcp.Description("JSON object of pass-through metadata, e.g. UI element descriptors under 'elements'")),
		mcp.WithOutputSchema[SessionResult](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	// TOOL: resume_session
	resumeTool := mcp.NewTool("resume_session",
		mcp.WithDescription("Resume a suspended session with the user's choice and/or answered questions."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("data", mcp.Required(), mcp.Description(`JSON object with the expected resume fields, e.g. {"choice":"final_answer","answered_questions":[{"question":"...","answer":"..."}]}`)),
		mcp.WithOutputSchema[SessionResult](),
	)
	s.mcpServer.AddTool(resumeTool, mcp.NewStructuredToolHandler(s.handleResumeSession))

	// TOOL: inspect_session
	inspectTool := mcp.NewTool("inspect_session",
		mcp.WithDescription("Inspect a session's checkpoint: position, version and progress."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[SessionInfo](),
	)
	s.mcpServer.AddTool(inspectTool, mcp.NewStructuredToolHandler(s.handleInspectSession))

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List all stored session IDs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessions, err := s.sessions.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(sessions)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResult, error) {
	prompt, _ := args["prompt"].(string)
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		sessionID = fmt.Sprintf("mcp-%d", time.Now().UnixNano())
	}

	var metadata map[string]any
	if metaStr, ok := args["metadata"].(string); ok && metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &metadata); err != nil {
			return SessionResult{}, fmt.Errorf("invalid metadata JSON: %w", err)
		}
	}

	res, err := s.engine.Start(ctx, sessionID, prompt, metadata)
	if err != nil {
		return SessionResult{}, fmt.Errorf("start failed: %w", err)
	}

	return sessionResult(sessionID, res), nil
}

func (s *Server) handleResumeSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResult, error) {
	sessionID, _ := args["session_id"].(string)

	var data map[string]any
	if dataStr, ok := args["data"].(string); ok && dataStr != "" {
		if err := json.Unmarshal([]byte(dataStr), &data); err != nil {
			return SessionResult{}, fmt.Errorf("invalid data JSON: %w", err)
		}
	}

	res, err := s.engine.Resume(ctx, sessionID, data)
	if err != nil {
		return SessionResult{}, fmt.Errorf("resume failed: %w", err)
	}

	return sessionResult(sessionID, res), nil
}

func (s *Server) handleInspectSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionInfo, error) {
	sessionID, _ := args["session_id"].(string)

	cp, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("inspect failed: %w", err)
	}

	info := SessionInfo{
		SessionID:         cp.SessionID,
		NextNode:          cp.NextNode,
		Version:           cp.Version,
		Terminal:          cp.Terminal(),
		QuestionsAsked:    len(cp.State.AllPreviousQuestions),
		QuestionsAnswered: len(cp.State.AnsweredQuestions),
	}
	if cp.Terminal() {
		info.Answer = cp.State.Answer
	}
	return info, nil
}

func sessionResult(sessionID string, res domain.Result) SessionResult {
	return SessionResult{
		SessionID: sessionID,
		Status:    string(res.Status),
		Payload:   res.Payload,
		Answer:    res.Answer,
	}
}

func (s *Server) registerResources() {
	// EXPOSE: elicit://sessions
	s.mcpServer.AddResource(mcp.NewResource("elicit://sessions", "Stored Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sessions, err := s.sessions.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		jsonBytes, _ := json.Marshal(sessions)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "elicit://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
