package tools

import (
	"encoding/base64"
	"strings"
	"testing"
	"unicode/utf8"

	gmail "google.golang.org/api/gmail/v1"
)

func b64url(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestExtractEmailBodyPrefersPlainText(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64url("<p>html version</p>")}},
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64url("plain version")}},
		},
	}
	if got := extractEmailBody(payload); got != "plain version" {
		t.Fatalf("expected plain text body, got %q", got)
	}
}

func TestExtractEmailBodyFallsBackToStrippedHTML(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64url("<div><b>hello</b> there</div>")}},
		},
	}
	if got := extractEmailBody(payload); got != "hello there" {
		t.Fatalf("expected stripped html body, got %q", got)
	}
}

func TestExtractEmailBodyRecursesNestedParts(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64url("nested body")}},
				},
			},
		},
	}
	if got := extractEmailBody(payload); got != "nested body" {
		t.Fatalf("expected nested body, got %q", got)
	}
}

func TestExtractEmailBodySinglePart(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: b64url("just the body")},
	}
	if got := extractEmailBody(payload); got != "just the body" {
		t.Fatalf("expected single-part body, got %q", got)
	}
}

func TestExtractEmailBodyTruncates(t *testing.T) {
	long := strings.Repeat("x", maxBodyLength+200)
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: b64url(long)},
	}
	got := extractEmailBody(payload)
	if !strings.HasSuffix(got, "... (truncated)") {
		t.Fatalf("expected truncation marker, got tail %q", got[len(got)-30:])
	}
	if len(got) != maxBodyLength+len("... (truncated)") {
		t.Fatalf("unexpected truncated length %d", len(got))
	}
}

func TestExtractEmailBodyTruncatesOnRuneBoundary(t *testing.T) {
	// The limit lands inside an 'é'; the cut must not split it.
	long := strings.Repeat("x", maxBodyLength-1) + strings.Repeat("é", 50)
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: b64url(long)},
	}
	got := extractEmailBody(payload)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated body is not valid UTF-8, tail %q", got[len(got)-30:])
	}
	if !strings.HasSuffix(got, "... (truncated)") {
		t.Fatalf("expected truncation marker, got tail %q", got[len(got)-30:])
	}
	if strings.TrimSuffix(got, "... (truncated)") != strings.Repeat("x", maxBodyLength-1) {
		t.Fatalf("unexpected body prefix, len %d", len(got))
	}
}

func TestExtractEmailBodyMissing(t *testing.T) {
	payload := &gmail.MessagePart{MimeType: "multipart/mixed"}
	if got := extractEmailBody(payload); got != "N/A" {
		t.Fatalf("expected N/A for missing body, got %q", got)
	}
}

func TestDecodePartBodyAcceptsUnpaddedData(t *testing.T) {
	raw := base64.RawURLEncoding.EncodeToString([]byte("no padding here!"))
	part := &gmail.MessagePart{Body: &gmail.MessagePartBody{Data: raw}}
	if got := decodePartBody(part); got != "no padding here!" {
		t.Fatalf("expected decoded body, got %q", got)
	}
}

func TestHeaderValue(t *testing.T) {
	payload := &gmail.MessagePart{
		Headers: []*gmail.MessagePartHeader{
			{Name: "From", Value: "ana@example.com"},
			{Name: "Subject", Value: "Status"},
		},
	}
	if got := headerValue(payload, "Subject"); got != "Status" {
		t.Fatalf("expected Subject header, got %q", got)
	}
	if got := headerValue(payload, "Date"); got != "N/A" {
		t.Fatalf("expected N/A for missing header, got %q", got)
	}
}

func TestBuildRawMessage(t *testing.T) {
	raw := buildRawMessage("bob@example.com", "Lunch", "Noon works for me.")
	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("raw message is not base64url: %v", err)
	}
	msg := string(decoded)
	for _, want := range []string{
		"To: bob@example.com\r\n",
		"Subject: Lunch\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: text/plain; charset=\"utf-8\"\r\n",
		"\r\n\r\nNoon works for me.",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("raw message missing %q:\n%s", want, msg)
		}
	}
}
