package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	BooksURI        = "guji://books"
	QueryMetricsURI = "guji://query_metrics"
)

func (s *Server) registerBooksResource() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "books",
		URI:         BooksURI,
		Description: "Catalogue of every book in the corpus",
		MIMEType:    "application/json",
	}, func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.readBooks(ctx)
	})
}

func (s *Server) readBooks(_ context.Context) (*mcp.ReadResourceResult, error) {
	books, err := s.lib.Books()
	if err != nil {
		return nil, MapError(err)
	}
	return jsonResource(BooksURI, map[string]any{"books": books, "total": len(books)})
}

// QueryMetricsOutput is the JSON structure for the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	OperationCounts     map[string]int64    `json:"operation_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary provides overview statistics.
type QueryMetricsSummary struct {
	TotalQueries    int64   `json:"total_queries"`
	ErrorCount      int64   `json:"error_count"`
	ZeroResultPct   float64 `json:"zero_result_pct"`
	ExactRepeatRate float64 `json:"exact_repeat_rate"`
	Since           string  `json:"since"`
}

// QueryTermCount represents a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "query_metrics",
		URI:         QueryMetricsURI,
		Description: "Query telemetry: operation counts, top terms, zero-result keywords and latency",
		MIMEType:    "application/json",
	}, func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.readQueryMetrics(ctx)
	})
}

func (s *Server) readQueryMetrics(_ context.Context) (*mcp.ReadResourceResult, error) {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	if metrics == nil {
		return nil, NewInvalidParamsError("query metrics not available")
	}

	snap := metrics.Snapshot()
	out := QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:    snap.TotalQueries,
			ErrorCount:      snap.ErrorCount,
			ZeroResultPct:   snap.ZeroResultPercentage(),
			ExactRepeatRate: snap.ExactRepeatRate,
			Since:           snap.Since.Format("2006-01-02T15:04:05Z07:00"),
		},
		OperationCounts:     make(map[string]int64, len(snap.OperationCounts)),
		TopTerms:            make([]QueryTermCount, 0, len(snap.TopTerms)),
		ZeroResultQueries:   snap.ZeroResultQueries,
		LatencyDistribution: make(map[string]int64, len(snap.LatencyDistribution)),
	}
	for op, n := range snap.OperationCounts {
		out.OperationCounts[string(op)] = n
	}
	for _, tc := range snap.TopTerms {
		out.TopTerms = append(out.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	for b, n := range snap.LatencyDistribution {
		out.LatencyDistribution[string(b)] = n
	}
	return jsonResource(QueryMetricsURI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(content),
		}},
	}, nil
}
