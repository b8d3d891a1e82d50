package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/qmdsync/internal/autosync"
	"github.com/Aman-CERP/qmdsync/internal/qmd"
	"github.com/Aman-CERP/qmdsync/pkg/version"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// Searcher runs cached searches.
type Searcher interface {
	Search(ctx context.Context, mode qmd.Mode, query string, opts qmd.SearchOptions) (*qmd.SearchResult, error)
	Related(ctx context.Context, path, content string) (*qmd.SearchResult, error)
}

// Index reads documents and index state.
type Index interface {
	Get(ctx context.Context, pathOrID string) (*qmd.Document, error)
	Status(ctx context.Context) (*qmd.IndexStatus, error)
}

// Syncer is the sync coordinator as seen by tools.
type Syncer interface {
	Status() autosync.Status
	ManualSync(ctx context.Context) error
}

// Server is the MCP server for qmdsync.
type Server struct {
	mcp      *mcp.Server
	searcher Searcher
	index    Index
	syncer   Syncer
	logger   *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search",
		Description: "Search the notes vault. Mode search is fast keyword matching, vsearch finds notes by meaning, query combines both with reranking.",
	},
	{
		Name:        "get_document",
		Description: "Fetch the full text of a note by path, qmd:// locator or document id.",
	},
	{
		Name:        "related_documents",
		Description: "Find notes semantically similar to the given note.",
	},
	{
		Name:        "index_status",
		Description: "Report index size, collections and whether embeddings are missing.",
	},
	{
		Name:        "sync_status",
		Description: "Report the auto-sync mode, whether a sync is running, pending changes and the last error.",
	},
	{
		Name:        "sync_now",
		Description: "Re-index the vault now and wait for the sync to finish. Fails if a sync is already running.",
	},
}

// NewServer creates a new MCP server. A nil logger means slog.Default().
func NewServer(searcher Searcher, index Index, syncer Syncer, logger *slog.Logger) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if index == nil {
		return nil, errors.New("index is required")
	}
	if syncer == nil {
		return nil, errors.New("sync coordinator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		searcher: searcher,
		index:    index,
		syncer:   syncer,
		logger:   logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "qmdsync",
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools and resources
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

func toolDescription(name string) string {
	for _, t := range tools {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "search", Description: toolDescription("search")}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "get_document", Description: toolDescription("get_document")}, s.mcpGetDocumentHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "related_documents", Description: toolDescription("related_documents")}, s.mcpRelatedHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "index_status", Description: toolDescription("index_status")}, s.mcpIndexStatusHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "sync_status", Description: toolDescription("sync_status")}, s.mcpSyncStatusHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "sync_now", Description: toolDescription("sync_now")}, s.mcpSyncNowHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

// CallTool invokes a tool by name with loosely typed arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		in := SearchInput{}
		in.Query, _ = args["query"].(string)
		in.Mode, _ = args["mode"].(string)
		in.Collection, _ = args["collection"].(string)
		in.Full, _ = args["full"].(bool)
		if l, ok := args["limit"].(float64); ok {
			in.Limit = int(l)
		}
		if m, ok := args["min_score"].(float64); ok {
			in.MinScore = m
		}
		return s.handleSearch(ctx, in)
	case "get_document":
		ref, _ := args["ref"].(string)
		return s.handleGetDocument(ctx, GetDocumentInput{Ref: ref})
	case "related_documents":
		path, _ := args["path"].(string)
		return s.handleRelated(ctx, RelatedInput{Path: path})
	case "index_status":
		return s.handleIndexStatus(ctx)
	case "sync_status":
		return ToSyncStatusOutput(s.syncer.Status()), nil
	case "sync_now":
		return s.handleSyncNow(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// handleSearch validates input, runs the search and converts the result.
func (s *Server) handleSearch(ctx context.Context, in SearchInput) (SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return SearchOutput{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}

	mode := qmd.ModeSearch
	if in.Mode != "" {
		m, ok := qmd.ParseMode(in.Mode)
		if !ok {
			return SearchOutput{}, NewInvalidParamsError(fmt.Sprintf("unknown mode %q: use search, vsearch or query", in.Mode))
		}
		mode = m
	}
	if in.MinScore < 0 || in.MinScore > 1 {
		return SearchOutput{}, NewInvalidParamsError("min_score must be between 0 and 1")
	}

	opts := qmd.SearchOptions{
		Collection: in.Collection,
		Limit:      clampLimit(in.Limit, defaultLimit, 1, maxLimit),
		MinScore:   in.MinScore,
		Full:       in.Full,
	}

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("search started",
		slog.String("request_id", requestID),
		slog.String("mode", string(mode)),
		slog.String("query", in.Query),
		slog.Int("limit", opts.Limit))

	result, err := s.searcher.Search(ctx, mode, in.Query, opts)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return SearchOutput{}, MapError(err)
	}

	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(result.Items)))
	return ToSearchOutput(result), nil
}

func (s *Server) handleGetDocument(ctx context.Context, in GetDocumentInput) (DocumentOutput, error) {
	ref := strings.TrimSpace(in.Ref)
	if ref == "" {
		return DocumentOutput{}, NewInvalidParamsError("ref is required")
	}
	doc, err := s.index.Get(ctx, ref)
	if err != nil {
		return DocumentOutput{}, MapError(err)
	}
	return ToDocumentOutput(doc), nil
}

// handleRelated loads the document text, then asks for its neighbours.
func (s *Server) handleRelated(ctx context.Context, in RelatedInput) (SearchOutput, error) {
	path := strings.TrimSpace(in.Path)
	if path == "" {
		return SearchOutput{}, NewInvalidParamsError("path is required")
	}
	doc, err := s.index.Get(ctx, path)
	if err != nil {
		return SearchOutput{}, MapError(err)
	}
	result, err := s.searcher.Related(ctx, path, doc.Content)
	if err != nil {
		return SearchOutput{}, MapError(err)
	}
	return ToSearchOutput(result), nil
}

func (s *Server) handleIndexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	st, err := s.index.Status(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	return ToIndexStatusOutput(st), nil
}

// handleSyncNow runs a manual sync. The message mirrors what the CLI prints.
func (s *Server) handleSyncNow(ctx context.Context) (SyncStatusOutput, error) {
	s.logger.Info("manual sync requested over MCP")
	if err := s.syncer.ManualSync(ctx); err != nil {
		return SyncStatusOutput{}, MapError(err)
	}
	out := ToSyncStatusOutput(s.syncer.Status())
	out.Message = "Sync complete"
	return out, nil
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	out, err := s.handleSearch(ctx, in)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return markdownResult(FormatSearchResults(out)), out, nil
}

func (s *Server) mcpGetDocumentHandler(ctx context.Context, _ *mcp.CallToolRequest, in GetDocumentInput) (*mcp.CallToolResult, DocumentOutput, error) {
	out, err := s.handleGetDocument(ctx, in)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) mcpRelatedHandler(ctx context.Context, _ *mcp.CallToolRequest, in RelatedInput) (*mcp.CallToolResult, SearchOutput, error) {
	out, err := s.handleRelated(ctx, in)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return markdownResult(FormatSearchResults(out)), out, nil
}

func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (*mcp.CallToolResult, *IndexStatusOutput, error) {
	out, err := s.handleIndexStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

func (s *Server) mcpSyncStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ SyncStatusInput) (*mcp.CallToolResult, SyncStatusOutput, error) {
	return nil, ToSyncStatusOutput(s.syncer.Status()), nil
}

func (s *Server) mcpSyncNowHandler(ctx context.Context, _ *mcp.CallToolRequest, _ SyncNowInput) (*mcp.CallToolResult, SyncStatusOutput, error) {
	out, err := s.handleSyncNow(ctx)
	if err != nil {
		return nil, SyncStatusOutput{}, err
	}
	return nil, out, nil
}

// markdownResult carries a human-readable rendering next to the structured output.
func markdownResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// Serve runs the server over stdio until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}

// generateRequestID returns a short random id for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
