package analyses

import "strings"

// Request is the immutable input shared by all analyses of one document.
// Exactly one of Text or Binary carries the document.
type Request struct {
	Text     string
	Binary   []byte
	MimeType string
	FileName string
	Context  string
}

// HasText reports whether the document is carried as text.
func (r Request) HasText() bool {
	return strings.TrimSpace(r.Text) != ""
}

// HasBinary reports whether the document is carried as an embedded payload.
func (r Request) HasBinary() bool {
	return len(r.Binary) > 0
}

// Validate enforces the request contract before orchestration starts.
func (r Request) Validate() error {
	switch {
	case !r.HasText() && !r.HasBinary():
		return &InputContractError{Field: "document", Reason: "either text or binary payload is required"}
	case r.HasText() && r.HasBinary():
		return &InputContractError{Field: "document", Reason: "text and binary payload are mutually exclusive"}
	case r.HasBinary() && strings.TrimSpace(r.MimeType) == "":
		return &InputContractError{Field: "mimeType", Reason: "binary payload requires a mime type"}
	case strings.TrimSpace(r.Context) == "":
		return &InputContractError{Field: "context", Reason: "context must be resolved before analysis"}
	}
	return nil
}
