package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"legalreview-backend/internal/extract"
	"legalreview-backend/internal/shared/storage/object"
	"legalreview-backend/internal/shared/telemetry"
)

// MaxUploadBytes bounds a single document.
const MaxUploadBytes = 20 << 20

// Service turns uploads into documents.
type Service struct {
	// Store is optional; uploads are archived only when Archive is set.
	Store   object.Store
	Archive bool
}

// Ingest classifies and extracts one upload. Plain text and DOCX become text;
// PDFs are extracted when they carry a text layer and otherwise sent as binary
// along with images.
func (s *Service) Ingest(ctx context.Context, owner, fileName, mimeType string, data []byte) (Document, error) {
	doc, err := classify(ctx, fileName, mimeType, data)
	if err != nil {
		return Document{}, err
	}

	if s.Archive && s.Store != nil {
		obj, err := s.Store.Put(ctx, owner, doc.FileName, doc.MimeType, bytes.NewReader(data))
		if err != nil {
			// Archival never blocks a review.
			telemetry.Warn("documents.archive.failed", map[string]any{
				"file_name": doc.FileName,
				"error":     err,
			})
		} else {
			doc.Archive = &obj
		}
	}
	return doc, nil
}

// IngestObject loads a document the owner uploaded directly to the store and
// classifies it like Ingest. The object is already archived.
func (s *Service) IngestObject(ctx context.Context, owner, key, mimeType string) (Document, error) {
	key = strings.TrimSpace(key)
	if s.Store == nil {
		return Document{}, fmt.Errorf("%w: direct uploads are not configured", ErrInvalidInput)
	}
	if !object.OwnedBy(key, owner) {
		return Document{}, fmt.Errorf("%w: %s", object.ErrNotFound, key)
	}
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		return Document{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, MaxUploadBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}

	doc, err := classify(ctx, object.FileName(key), mimeType, data)
	if err != nil {
		return Document{}, err
	}
	doc.Archive = &object.Object{Key: key, Size: doc.Size, ContentType: doc.MimeType}
	return doc, nil
}

func classify(ctx context.Context, fileName, mimeType string, data []byte) (Document, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, ErrEmptyDocument
	}
	if len(data) > MaxUploadBytes {
		return Document{}, fmt.Errorf("%w: document exceeds %d bytes", ErrInvalidInput, MaxUploadBytes)
	}

	doc := Document{
		FileName: fileName,
		MimeType: extract.DetectMimeType(mimeType, fileName, data),
		Size:     int64(len(data)),
	}

	text, err := extract.Text(ctx, data, doc.MimeType)
	switch {
	case err == nil:
		doc.Text = text
	case errors.Is(err, extract.ErrUnsupportedType), errors.Is(err, extract.ErrNoText):
		if !extract.IsEmbeddable(doc.MimeType) {
			return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedType, doc.MimeType)
		}
		doc.Binary = data
	case errors.Is(err, extract.ErrTooLarge):
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Document{}, err
	default:
		if !extract.IsEmbeddable(doc.MimeType) {
			return Document{}, fmt.Errorf("extract %s: %w", doc.MimeType, err)
		}
		telemetry.Warn("documents.extract.fallback", map[string]any{
			"file_name": fileName,
			"mime_type": doc.MimeType,
			"error":     err,
		})
		doc.Binary = data
	}
	return doc, nil
}

// FromText wraps pasted text as a document.
func FromText(fileName, text string) (Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Document{}, ErrEmptyDocument
	}
	if fileName = strings.TrimSpace(fileName); fileName == "" {
		fileName = "pasted.txt"
	}
	return Document{FileName: fileName, MimeType: extract.MimeText, Text: text, Size: int64(len(text))}, nil
}
