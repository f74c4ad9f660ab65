package documents

import (
	"errors"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/shared/storage/object"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyDocument   = errors.New("document is empty")
	ErrUnsupportedType = errors.New("unsupported document type")
)

// Document is an uploaded file reduced to what the analyses need: either its
// text or its raw bytes with a MIME type, never both.
type Document struct {
	FileName string
	MimeType string
	Text     string
	Binary   []byte
	Size     int64
	// Archive is set when the upload was stored.
	Archive *object.Object
}

// IsBinary reports whether the document is sent to providers as an attachment.
func (d Document) IsBinary() bool {
	return len(d.Binary) > 0
}

// Request builds the analysis input for the given document context.
func (d Document) Request(docContext string) analyses.Request {
	req := analyses.Request{FileName: d.FileName, Context: docContext}
	if d.IsBinary() {
		req.Binary = d.Binary
		req.MimeType = d.MimeType
		return req
	}
	req.Text = d.Text
	return req
}
