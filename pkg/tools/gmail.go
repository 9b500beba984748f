package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	errand "github.com/jwhitelaw/errand"
	"github.com/jwhitelaw/errand/pkg/chat"
)

const (
	defaultCredentialsPath = "credentials.json"
	defaultTokenPath       = "token.json"
	defaultReadQuery       = "is:unread"
	maxEmailResults        = 3
	maxBodyLength          = 1500
)

var gmailScopes = []string{gmail.GmailReadonlyScope, gmail.GmailSendScope}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// gmailClient owns the OAuth token lifecycle and hands out an authenticated
// Gmail service. The token is cached in a file and refreshed transparently;
// the first run walks the user through the installed-app consent flow.
type gmailClient struct {
	credentialsPath string
	tokenPath       string

	mu  sync.Mutex
	svc *gmail.Service
}

func newGmailClient() *gmailClient {
	credentials := os.Getenv("GMAIL_CREDENTIALS_FILE")
	if credentials == "" {
		credentials = defaultCredentialsPath
	}
	token := os.Getenv("GMAIL_TOKEN_FILE")
	if token == "" {
		token = defaultTokenPath
	}
	return &gmailClient{credentialsPath: credentials, tokenPath: token}
}

func (g *gmailClient) service(ctx context.Context) (*gmail.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.svc != nil {
		return g.svc, nil
	}

	raw, err := os.ReadFile(g.credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("credentials file not found at %s, download it from Google Cloud Console: %w", g.credentialsPath, err)
	}
	config, err := google.ConfigFromJSON(raw, gmailScopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	token, err := g.tokenFromFile()
	if err != nil {
		log.Info().Str("token_file", g.tokenPath).Msg("no cached token, starting OAuth consent flow")
		token, err = exchangeFromWeb(ctx, config)
		if err != nil {
			return nil, err
		}
		g.saveToken(token)
	}

	source := config.TokenSource(ctx, token)
	fresh, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		g.saveToken(fresh)
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("build gmail service: %w", err)
	}
	g.svc = svc
	return svc, nil
}

func (g *gmailClient) tokenFromFile() (*oauth2.Token, error) {
	raw, err := os.ReadFile(g.tokenPath)
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(raw, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (g *gmailClient) saveToken(token *oauth2.Token) {
	raw, err := json.Marshal(token)
	if err != nil {
		log.Error().Err(err).Msg("encode gmail token")
		return
	}
	if err := os.WriteFile(g.tokenPath, raw, 0o600); err != nil {
		log.Error().Err(err).Str("token_file", g.tokenPath).Msg("save gmail token")
		return
	}
	log.Info().Str("token_file", g.tokenPath).Msg("gmail token saved")
}

// exchangeFromWeb runs the interactive half of the installed-app flow: the
// user opens the consent URL and pastes the authorization code back.
func exchangeFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, authorize the app, then paste the code here:\n%v\nCode: ", authURL)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}
	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

// ReadEmailTool lists and decodes messages from the user's Gmail account.
type ReadEmailTool struct {
	client *gmailClient
}

// SendEmailTool sends plain-text mail from the user's Gmail account.
type SendEmailTool struct {
	client *gmailClient
}

// NewGmailTools builds the read and send tools over one shared OAuth client,
// so both reuse the same cached token and consent flow.
func NewGmailTools() (*ReadEmailTool, *SendEmailTool) {
	client := newGmailClient()
	return &ReadEmailTool{client: client}, &SendEmailTool{client: client}
}

func (t *ReadEmailTool) Spec() chat.ToolSpec {
	return chat.ToolSpec{
		Name:        "read_email",
		Description: "Use this tool to read emails from the user's Gmail account when they ask to check their inbox, read specific emails, or search for emails. Fetches the From, Subject, Snippet, and the main Body content (decoded plain text or stripped HTML, possibly truncated) for the most recent matching emails.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Optional Gmail query string (e.g., 'is:unread', 'subject:meeting'). Defaults to 'is:unread'.",
				},
			},
		},
	}
}

func (t *ReadEmailTool) Invoke(ctx context.Context, req errand.ToolRequest) (errand.ToolResponse, error) {
	query, _ := req.Arguments["query"].(string)
	if strings.TrimSpace(query) == "" {
		query = defaultReadQuery
	}

	svc, err := t.client.service(ctx)
	if err != nil {
		return errand.ToolResponse{Content: fmt.Sprintf("Error: %v", err)}, nil
	}

	listing, err := svc.Users.Messages.List("me").Q(query).MaxResults(maxEmailResults).Context(ctx).Do()
	if err != nil {
		return errand.ToolResponse{Content: fmt.Sprintf("API Error reading emails: %v", err)}, nil
	}
	if len(listing.Messages) == 0 {
		return errand.ToolResponse{Content: "No emails found matching the query."}, nil
	}

	details := make([]string, 0, len(listing.Messages)+1)
	for _, ref := range listing.Messages {
		msg, err := svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return errand.ToolResponse{Content: fmt.Sprintf("API Error reading emails: %v", err)}, nil
		}
		from := headerValue(msg.Payload, "From")
		subject := headerValue(msg.Payload, "Subject")
		body := extractEmailBody(msg.Payload)
		details = append(details, fmt.Sprintf("From: %s\nSubject: %s\nSnippet: %s\nBody: %s\n---", from, subject, msg.Snippet, body))
	}

	if extra := listing.ResultSizeEstimate - int64(len(listing.Messages)); extra > 0 {
		details = append(details, fmt.Sprintf("(%d more emails match the query but were not shown for brevity.)", extra))
	}
	return errand.ToolResponse{Content: strings.Join(details, "\n")}, nil
}

func (t *SendEmailTool) Spec() chat.ToolSpec {
	return chat.ToolSpec{
		Name:        "send_email",
		Description: "Sends an email from the user's Gmail account. Use this when the user asks to send an email.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"to": map[string]any{
					"type":        "string",
					"description": "Recipient email address",
				},
				"subject": map[string]any{
					"type":        "string",
					"description": "Subject line of the email",
				},
				"body": map[string]any{
					"type":        "string",
					"description": "Body content of the email",
				},
			},
			"required": []string{"to", "subject", "body"},
		},
	}
}

func (t *SendEmailTool) Invoke(ctx context.Context, req errand.ToolRequest) (errand.ToolResponse, error) {
	to, _ := req.Arguments["to"].(string)
	subject, _ := req.Arguments["subject"].(string)
	body, _ := req.Arguments["body"].(string)
	if strings.TrimSpace(to) == "" {
		return errand.ToolResponse{}, fmt.Errorf("missing or invalid 'to' argument")
	}

	svc, err := t.client.service(ctx)
	if err != nil {
		return errand.ToolResponse{Content: fmt.Sprintf("Error: %v", err)}, nil
	}

	sent, err := svc.Users.Messages.Send("me", &gmail.Message{Raw: buildRawMessage(to, subject, body)}).Context(ctx).Do()
	if err != nil {
		return errand.ToolResponse{Content: fmt.Sprintf("API Error sending email: %v", err)}, nil
	}

	log.Info().Str("message_id", sent.Id).Str("to", to).Msg("email sent")
	return errand.ToolResponse{Content: fmt.Sprintf("Email sent successfully to %s with subject %q.", to, subject)}, nil
}

// buildRawMessage assembles an RFC 2822 plain-text message and encodes it the
// way the Gmail API expects (base64url).
func buildRawMessage(to, subject, body string) string {
	msg := fmt.Sprintf("To: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s", to, subject, body)
	return base64.URLEncoding.EncodeToString([]byte(msg))
}

func headerValue(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return "N/A"
	}
	for _, h := range payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return "N/A"
}

// extractEmailBody decodes the message body, preferring text/plain over
// tag-stripped text/html, and recursing into nested multiparts. The result
// is truncated so one email cannot crowd out the rest of the context.
func extractEmailBody(payload *gmail.MessagePart) string {
	body := emailBodyText(payload)
	if body == "" {
		return "N/A"
	}
	if len(body) > maxBodyLength {
		body = truncate(body, maxBodyLength) + "... (truncated)"
	}
	return body
}

func emailBodyText(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if len(payload.Parts) > 0 {
		var htmlBody string
		for _, part := range payload.Parts {
			switch {
			case part.MimeType == "text/plain":
				if text := decodePartBody(part); text != "" {
					return text
				}
			case part.MimeType == "text/html":
				if htmlBody == "" {
					htmlBody = stripHTMLTags(decodePartBody(part))
				}
			case len(part.Parts) > 0:
				if nested := emailBodyText(part); nested != "" {
					return nested
				}
			}
		}
		return htmlBody
	}

	if strings.HasPrefix(payload.MimeType, "text/") {
		text := decodePartBody(payload)
		if payload.MimeType == "text/html" {
			return stripHTMLTags(text)
		}
		return text
	}
	return ""
}

func decodePartBody(part *gmail.MessagePart) string {
	if part == nil || part.Body == nil || part.Body.Data == "" {
		return ""
	}
	if raw, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
		return string(raw)
	}
	raw, err := base64.RawURLEncoding.DecodeString(part.Body.Data)
	if err != nil {
		return ""
	}
	return string(raw)
}

func stripHTMLTags(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}
