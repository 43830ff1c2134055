package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/rawlog"
)

var (
	retrieveToolName    = "retrieve"
	retrieveDescription = "Recall past conversation from memoria using semantic search. Returns the most relevant earlier messages as \"role: content\" excerpts, best match first."

	episodesToolName    = "retrieve_episodes"
	episodesDescription = "Recall whole episodes of past conversation. Returns the episodic summaries closest to the query together with the messages each one covers."

	appendToolName    = "append"
	appendDescription = "Record one conversation message in memoria. Summaries are rolled up automatically every ten messages."
)

// RetrieveInput represents the input arguments for the retrieve tools.
type RetrieveInput struct {
	Query     string `json:"query" jsonschema:"the text to find related past messages for"`
	TopN      int    `json:"top_n,omitempty" jsonschema:"number of results to return (default: 5)"`
	Namespace string `json:"namespace,omitempty" jsonschema:"memory namespace (default: the server's namespace)"`
}

// RetrieveOutput represents the output of the retrieve tool.
type RetrieveOutput struct {
	Query    string   `json:"query"`
	Excerpts []string `json:"excerpts"`
	Count    int      `json:"count"`
}

// EpisodesOutput represents the output of the retrieve_episodes tool.
type EpisodesOutput struct {
	Query    string               `json:"query"`
	Episodes []memoria.EpisodeHit `json:"episodes"`
	Count    int                  `json:"count"`
}

// AppendInput represents the input arguments for the append tool.
type AppendInput struct {
	Role      string `json:"role" jsonschema:"who wrote the message: user or assistant"`
	Content   string `json:"content" jsonschema:"the message text"`
	Namespace string `json:"namespace,omitempty" jsonschema:"memory namespace (default: the server's namespace)"`
}

// AppendOutput represents the output of the append tool.
type AppendOutput struct {
	ID        uint64 `json:"id"`
	Summaries int    `json:"summaries"`
}

func (s *Server) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, RetrieveOutput, error) {
	s.config.Logger.Debug("MCP retrieve request",
		"query", input.Query,
		"top_n", input.TopN,
		"namespace", input.Namespace,
	)

	st, err := s.store(input.Namespace)
	if err != nil {
		return toolError("Failed to open namespace: %v", err), emptyRetrieve(input.Query), nil
	}

	excerpts, err := st.Retrieve(ctx, input.Query, input.TopN)
	if err != nil {
		return toolError("Retrieve failed: %v", err), emptyRetrieve(input.Query), nil
	}
	if excerpts == nil {
		excerpts = []string{}
	}

	return result(RetrieveOutput{
		Query:    input.Query,
		Excerpts: excerpts,
		Count:    len(excerpts),
	})
}

func (s *Server) handleEpisodes(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, EpisodesOutput, error) {
	st, err := s.store(input.Namespace)
	if err != nil {
		return toolError("Failed to open namespace: %v", err), emptyEpisodes(input.Query), nil
	}

	hits, err := st.RetrieveEpisodes(ctx, input.Query, input.TopN)
	if err != nil {
		return toolError("Retrieve failed: %v", err), emptyEpisodes(input.Query), nil
	}
	if hits == nil {
		hits = []memoria.EpisodeHit{}
	}

	return result(EpisodesOutput{
		Query:    input.Query,
		Episodes: hits,
		Count:    len(hits),
	})
}

func (s *Server) handleAppend(ctx context.Context, _ *mcp.CallToolRequest, input AppendInput) (*mcp.CallToolResult, AppendOutput, error) {
	role, err := rawlog.ParseRole(input.Role)
	if err != nil {
		return toolError("%v", err), AppendOutput{}, nil
	}

	st, err := s.store(input.Namespace)
	if err != nil {
		return toolError("Failed to open namespace: %v", err), AppendOutput{}, nil
	}

	res, err := st.Append(ctx, role, input.Content)
	if err != nil {
		s.config.Logger.Error("MCP append failed", "error", err)
		return toolError("Append failed: %v", err), AppendOutput{}, nil
	}

	return result(AppendOutput{
		ID:        res.ID,
		Summaries: len(res.Episodic) + len(res.Branch) + len(res.Global),
	})
}

// The SDK validates structured output against the schema even for tool
// errors, and a nil slice encodes as null where an array is required.
func emptyRetrieve(query string) RetrieveOutput {
	return RetrieveOutput{Query: query, Excerpts: []string{}}
}

func emptyEpisodes(query string) EpisodesOutput {
	return EpisodesOutput{Query: query, Episodes: []memoria.EpisodeHit{}}
}

// result returns out as structured content and, for clients that only read
// text, as serialized JSON in a TextContent block.
func result[T any](out T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(out)
	if err != nil {
		var zero T
		return toolError("Failed to serialize results: %v", err), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, out, nil
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}
