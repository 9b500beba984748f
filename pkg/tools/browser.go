package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	errand "github.com/jwhitelaw/errand"
	"github.com/jwhitelaw/errand/pkg/chat"
)

const browseMaxLength = 4000

// browseHeaders mimic a regular browser visit; some sites refuse the Go
// default user agent.
var browseHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// BrowseTool fetches a web page and extracts its readable text.
type BrowseTool struct {
	Client    *http.Client
	MaxLength int
}

func NewBrowseTool() *BrowseTool {
	return &BrowseTool{
		Client:    &http.Client{Timeout: 15 * time.Second},
		MaxLength: browseMaxLength,
	}
}

func (t *BrowseTool) Spec() chat.ToolSpec {
	return chat.ToolSpec{
		Name:        "browse_website",
		Description: "Fetches the textual content from a given URL. Use this tool when you need to answer questions about the content of a specific webpage provided by the user or found in search results. Input must be a single, valid URL string.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The valid URL of the website to browse.",
				},
			},
			"required": []string{"url"},
		},
	}
}

func (t *BrowseTool) Invoke(ctx context.Context, req errand.ToolRequest) (errand.ToolResponse, error) {
	url, ok := req.Arguments["url"].(string)
	if !ok || strings.TrimSpace(url) == "" {
		return errand.ToolResponse{}, fmt.Errorf("missing or invalid 'url' argument")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errand.ToolResponse{Content: fmt.Sprintf("Error fetching URL %s: %v", url, err)}, nil
	}
	for name, value := range browseHeaders {
		httpReq.Header.Set(name, value)
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return errand.ToolResponse{Content: fmt.Sprintf("Error fetching URL %s: %v", url, err)}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errand.ToolResponse{Content: fmt.Sprintf("Error fetching URL %s: %s", url, resp.Status)}, nil
	}

	text := extractText(resp.Body)
	if text == "" {
		return errand.ToolResponse{Content: "Could not extract text from the webpage."}, nil
	}
	if len(text) > t.MaxLength {
		text = truncate(text, t.MaxLength) + "... [content truncated]"
	}
	return errand.ToolResponse{Content: text}, nil
}

// truncate cuts s to at most n bytes, backing up so a multi-byte rune is
// never split. Tool output ends up in provider string fields that must be
// valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// extractText walks the HTML token stream, keeping visible text and skipping
// script and style blocks. Whitespace runs collapse to single newlines.
func extractText(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)
	var text strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF or malformed markup; return what was collected.
			return strings.TrimSpace(text.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if chunk := strings.TrimSpace(string(tokenizer.Text())); chunk != "" {
				text.WriteString(chunk)
				text.WriteByte('\n')
			}
		}
	}
}
