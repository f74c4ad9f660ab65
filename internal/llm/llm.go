package llm

import (
	"context"
	"encoding/base64"
	"errors"
)

// Client abstracts LLM providers. Implementations return the raw model output
// for one prompt.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Prompt is one completion request.
type Prompt struct {
	// Name identifies the prompt in logs, e.g. "analysis.clauses".
	Name   string
	System string
	User   string
	// Attachment carries a document that could not be reduced to text.
	Attachment *Attachment
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Attachment is an embedded binary document.
type Attachment struct {
	MimeType string
	FileName string
	Data     []byte
}

// DataURI renders the attachment as a base64 data URI.
func (a Attachment) DataURI() string {
	return "data:" + a.MimeType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// IsImage reports whether the attachment is an image.
func (a Attachment) IsImage() bool {
	return len(a.MimeType) > 6 && a.MimeType[:6] == "image/"
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("LLM provider not configured")

// PlaceholderClient fails every call. It stands in when no provider is set.
type PlaceholderClient struct{}

func (PlaceholderClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return "", ErrNotConfigured
}

var _ Client = PlaceholderClient{}
