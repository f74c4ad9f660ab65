// Package uploads hands out presigned URLs so clients can upload large
// documents straight to S3 and then start a review by object key.
package uploads

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"

	"legalreview-backend/internal/documents"
	"legalreview-backend/internal/extract"
	"legalreview-backend/internal/shared/server/middleware"
	"legalreview-backend/internal/shared/server/respond"
	"legalreview-backend/internal/shared/storage/object"
	s3store "legalreview-backend/internal/shared/storage/object/s3"
	"legalreview-backend/internal/shared/telemetry"
)

const presignExpires = 15 * time.Minute

var allowedContentTypes = map[string]struct{}{
	extract.MimePDF:  {},
	extract.MimeDOCX: {},
	extract.MimeText: {},
	extract.MimePNG:  {},
	extract.MimeJPEG: {},
	extract.MimeWebP: {},
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Handler struct {
	presign presignAPI
	bucket  string
	prefix  string
	now     func() time.Time
}

// NewHandler builds a presigning handler for bucket. prefix must match the
// object store's prefix so uploaded keys can be opened later.
func NewHandler(ctx context.Context, conn s3store.Connection, bucket, prefix string) (*Handler, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	client, err := s3store.NewClient(ctx, conn)
	if err != nil {
		return nil, err
	}
	return newHandler(s3.NewPresignClient(client), bucket, prefix), nil
}

func newHandler(presign presignAPI, bucket, prefix string) *Handler {
	return &Handler{
		presign: presign,
		bucket:  bucket,
		prefix:  strings.Trim(strings.TrimSpace(prefix), "/"),
		now:     time.Now,
	}
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type presignResponse struct {
	UploadURL        string `json:"uploadUrl"`
	ObjectKey        string `json:"objectKey"`
	ContentType      string `json:"contentType"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads/presign", h.presignUpload)
}

func (h *Handler) presignUpload(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	req.FileName = strings.TrimSpace(req.FileName)
	req.ContentType = strings.TrimSpace(req.ContentType)

	if req.FileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", nil)
		return
	}
	if _, ok := allowedContentTypes[req.ContentType]; !ok {
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "contentType is not allowed", nil)
		return
	}
	if req.SizeBytes <= 0 || req.SizeBytes > documents.MaxUploadBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sizeBytes exceeds limit", nil)
		return
	}

	key, err := object.NewKey(middleware.UserIDFromContext(c), req.FileName, h.now())
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}

	out, err := h.presign.PresignPutObject(c.Request.Context(), presignInput(h.bucket, h.fullKey(key), req.ContentType), func(opts *s3.PresignOptions) {
		opts.Expires = presignExpires
	})
	if err != nil {
		telemetry.Error("uploads.presign.failed", map[string]any{
			"error":        err,
			"bucket":       h.bucket,
			"key":          key,
			"content_type": req.ContentType,
			"size_bytes":   req.SizeBytes,
			"request_id":   middleware.RequestIDFromContext(c),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate upload url", nil)
		return
	}

	respond.JSON(c, http.StatusOK, presignResponse{
		UploadURL:        out.URL,
		ObjectKey:        key,
		ContentType:      req.ContentType,
		ExpiresInSeconds: int64(presignExpires.Seconds()),
	})
}

func (h *Handler) fullKey(key string) string {
	if h.prefix == "" {
		return key
	}
	return h.prefix + "/" + key
}

func presignInput(bucket, key, contentType string) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
}
