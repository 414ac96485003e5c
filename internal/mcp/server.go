package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/semaphore"

	"github.com/Aman-CERP/gujimcp/internal/config"
	"github.com/Aman-CERP/gujimcp/internal/library"
	"github.com/Aman-CERP/gujimcp/internal/telemetry"
	"github.com/Aman-CERP/gujimcp/pkg/version"
)

// Library is the query surface served over MCP.
type Library interface {
	Search(ctx context.Context, p library.SearchParams) (*library.SearchResponse, error)
	BookInfo(ctx context.Context, p library.BookInfoParams) (*library.BookInfo, error)
	Snippets(ctx context.Context, p library.SnippetParams) (*library.SnippetsResponse, error)
	ChapterContent(ctx context.Context, p library.ChapterParams) (*library.ChapterContent, error)
	Themes(ctx context.Context, p library.ThemeParams) (*library.ThemesResponse, error)
	Books() ([]library.BookInfo, error)
	Status() (*library.Status, error)
}

var _ Library = (*library.Library)(nil)

// Server is the gujimcp MCP server. Tool calls run concurrently, bounded by
// server.max_concurrent.
type Server struct {
	mcp    *mcp.Server
	lib    Library
	sem    *semaphore.Weighted
	logger *slog.Logger

	metrics  *telemetry.QueryMetrics
	watching bool
	mu       sync.RWMutex
}

// NewServer creates an MCP server over lib and registers its tools and the
// book catalogue resource.
func NewServer(lib Library, cfg *config.Config) (*Server, error) {
	if lib == nil {
		return nil, errors.New("library is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	limit := cfg.Server.MaxConcurrent
	if limit < 1 {
		limit = 1
	}

	s := &Server{
		lib:    lib,
		sem:    semaphore.NewWeighted(int64(limit)),
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: version.Name, Version: version.Version}, nil)

	s.registerTools()
	s.registerBooksResource()
	return s, nil
}

// SetLogger replaces the default logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetMetrics registers the query_metrics resource backed by m.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// SetWatching records whether the corpus directory is being watched.
func (s *Server) SetWatching(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watching = on
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), toolInfos...)
}

func describe(name string) string {
	for _, t := range toolInfos {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}

// guard bounds concurrency and maps failures to MCP errors.
func guard[In, Out any](s *Server, name string, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (Out, error) {
		var zero Out
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return zero, MapError(err)
		}
		defer s.sem.Release(1)

		out, err := fn(ctx, in)
		if err != nil {
			mapped := MapError(err)
			s.logger.Debug("tool call failed",
				slog.String("tool", name),
				slog.Int("code", mapped.Code),
				slog.String("error", err.Error()))
			return zero, mapped
		}
		return out, nil
	}
}

func addTool[In, Out any](s *Server, name string, fn func(context.Context, In) (Out, error)) {
	h := guard(s, name, fn)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: name, Description: describe(name)},
		func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
			out, err := h(ctx, in)
			return nil, out, err
		})
	s.logger.Debug("Registered tool", slog.String("name", name))
}

func (s *Server) registerTools() {
	addTool(s, ToolSearch, s.searchTool)
	addTool(s, ToolBookInfo, s.bookInfoTool)
	addTool(s, ToolSnippets, s.snippetsTool)
	addTool(s, ToolChapter, s.chapterTool)
	addTool(s, ToolThemes, s.themesTool)
	addTool(s, ToolCorpusStatus, s.statusTool)
	s.logger.Info("MCP tools registered", slog.Int("count", len(toolInfos)))
}

// CallTool invokes a tool by name with JSON-style arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearch:
		return invoke(ctx, s, name, args, s.searchTool)
	case ToolBookInfo:
		return invoke(ctx, s, name, args, s.bookInfoTool)
	case ToolSnippets:
		return invoke(ctx, s, name, args, s.snippetsTool)
	case ToolChapter:
		return invoke(ctx, s, name, args, s.chapterTool)
	case ToolThemes:
		return invoke(ctx, s, name, args, s.themesTool)
	case ToolCorpusStatus:
		return invoke(ctx, s, name, args, s.statusTool)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func invoke[In, Out any](ctx context.Context, s *Server, name string, args map[string]any, fn func(context.Context, In) (Out, error)) (any, error) {
	var in In
	data, err := json.Marshal(args)
	if err != nil {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	out, err := guard(s, name, fn)(ctx, in)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) searchTool(ctx context.Context, in SearchInput) (*library.SearchResponse, error) {
	return s.lib.Search(ctx, in.params())
}

func (s *Server) bookInfoTool(ctx context.Context, in BookInfoInput) (*library.BookInfo, error) {
	return s.lib.BookInfo(ctx, library.BookInfoParams{BookID: in.BookID, IncludeChapters: in.IncludeChapters})
}

func (s *Server) snippetsTool(ctx context.Context, in SnippetsInput) (*library.SnippetsResponse, error) {
	return s.lib.Snippets(ctx, library.SnippetParams{
		BookID:           in.BookID,
		Keyword:          in.Keyword,
		MaxSnippets:      in.MaxSnippets,
		ContextLength:    in.ContextLength,
		EnableLocalCache: in.EnableLocalCache,
	})
}

func (s *Server) chapterTool(ctx context.Context, in ChapterInput) (*library.ChapterContent, error) {
	return s.lib.ChapterContent(ctx, library.ChapterParams{
		BookID:             in.BookID,
		ChapterID:          in.ChapterID,
		IncludeAnnotations: in.IncludeAnnotations,
		IncludeFootnotes:   in.IncludeFootnotes,
	})
}

func (s *Server) themesTool(ctx context.Context, in ThemesInput) (*library.ThemesResponse, error) {
	return s.lib.Themes(ctx, library.ThemeParams{Content: in.Content, MaxThemes: in.MaxThemes})
}

func (s *Server) statusTool(_ context.Context, _ CorpusStatusInput) (*CorpusStatusOutput, error) {
	st, err := s.lib.Status()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	watching := s.watching
	s.mu.RUnlock()
	return statusOutput(st, watching), nil
}

// Serve runs the server on the given transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
