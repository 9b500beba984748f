package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	errand "github.com/jwhitelaw/errand"
	"github.com/jwhitelaw/errand/pkg/chat"
)

const searchResultCount = 5

// GoogleSearchTool queries the Google Custom Search API and formats the top
// results for the model.
type GoogleSearchTool struct {
	APIKey   string
	EngineID string
}

// NewGoogleSearchTool reads GOOGLE_API_KEY and GOOGLE_CSE_ID from the env.
// Missing configuration is reported at invocation time as an error string,
// not at construction, so the agent still starts without search access.
func NewGoogleSearchTool() *GoogleSearchTool {
	return &GoogleSearchTool{
		APIKey:   os.Getenv("GOOGLE_API_KEY"),
		EngineID: os.Getenv("GOOGLE_CSE_ID"),
	}
}

func (t *GoogleSearchTool) Spec() chat.ToolSpec {
	return chat.ToolSpec{
		Name:        "google_search",
		Description: "Useful for searching the internet for information. Input should be a search query.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to look up.",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *GoogleSearchTool) Invoke(ctx context.Context, req errand.ToolRequest) (errand.ToolResponse, error) {
	query, ok := req.Arguments["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return errand.ToolResponse{}, fmt.Errorf("missing or invalid 'query' argument")
	}

	if t.APIKey == "" || t.EngineID == "" {
		return errand.ToolResponse{
			Content: "Error: Google API Key or CSE ID not configured. Please set GOOGLE_API_KEY and GOOGLE_CSE_ID environment variables.",
		}, nil
	}

	svc, err := customsearch.NewService(ctx, option.WithAPIKey(t.APIKey))
	if err != nil {
		return errand.ToolResponse{Content: fmt.Sprintf("Error during Google Search API call: %v", err)}, nil
	}

	result, err := svc.Cse.List().Q(query).Cx(t.EngineID).Num(searchResultCount).Context(ctx).Do()
	if err != nil {
		return errand.ToolResponse{Content: fmt.Sprintf("Error during Google Search API call: %v", err)}, nil
	}

	return errand.ToolResponse{Content: formatSearchResults(result.Items)}, nil
}

func formatSearchResults(items []*customsearch.Result) string {
	if len(items) == 0 {
		return "No results found."
	}
	blocks := make([]string, 0, len(items))
	for _, item := range items {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nLink: %s\nSnippet: %s\n---", item.Title, item.Link, item.Snippet))
	}
	return strings.Join(blocks, "\n")
}
