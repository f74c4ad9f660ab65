package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/documents"
	"legalreview-backend/internal/fixes"
	"legalreview-backend/internal/items"
	"legalreview-backend/internal/shared/server/middleware"
	"legalreview-backend/internal/shared/server/respond"
	"legalreview-backend/internal/shared/storage/object"
	"legalreview-backend/internal/usage"
)

// Handler exposes review endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches review routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reviews", h.create)
	rg.GET("/reviews/:id", h.get)
	rg.POST("/reviews/:id/items/:collection/:itemId/propose", h.transition(h.Svc.Propose))
	rg.POST("/reviews/:id/items/:collection/:itemId/accept", h.transition(h.Svc.Accept))
	rg.POST("/reviews/:id/items/:collection/:itemId/revert", h.transition(h.Svc.Revert))
	rg.POST("/reviews/:id/autofix", h.autoFix)
	rg.POST("/reviews/:id/ask", h.ask)
}

// FixRoutes lists the routes that call the fix provider, for rate limiting.
func FixRoutes() []string {
	return []string{
		"POST /api/v1/reviews/:id/items/:collection/:itemId/propose",
		"POST /api/v1/reviews/:id/autofix",
	}
}

func (h *Handler) create(c *gin.Context) {
	in := StartInput{Owner: middleware.UserIDFromContext(c)}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
			return
		}
		if fileHeader.Size > documents.MaxUploadBytes {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, documents.MaxUploadBytes+1))
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		in.Data = data
		in.FileName = fileHeader.Filename
		in.MimeType = fileHeader.Header.Get("Content-Type")
		in.Context = c.PostForm("context")
	} else {
		var req createReviewRequest
		if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
			return
		}
		if strings.TrimSpace(req.Text) == "" && strings.TrimSpace(req.ObjectKey) == "" {
			respond.Error(c, http.StatusBadRequest, "validation_error", "text or objectKey is required", nil)
			return
		}
		in.Text, in.FileName, in.Context = req.Text, req.FileName, req.Context
		in.ObjectKey, in.MimeType = strings.TrimSpace(req.ObjectKey), req.MimeType
	}

	sess, err := h.Svc.Start(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetSessionID(c, sess.ID)
	respond.Created(c, "/api/v1/reviews/"+sess.ID, sess.View())
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	middleware.SetSessionID(c, id)
	sess, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, sess.View())
}

type transitionFunc func(ctx context.Context, owner, id string, target fixes.Target) (items.Set, error)

func (h *Handler) transition(op transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		middleware.SetSessionID(c, id)
		collection, err := items.ParseCollection(c.Param("collection"))
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		target := fixes.Target{Collection: collection, ID: c.Param("itemId")}

		set, err := op(c.Request.Context(), middleware.UserIDFromContext(c), id, target)
		if err != nil {
			var provErr *fixes.ProviderError
			if errors.As(err, &provErr) {
				// The item is back to initial with its error recorded.
				respond.Error(c, http.StatusBadGateway, "fix_failed", provErr.Err.Error(), newItemsResponse(set))
				return
			}
			writeError(c, err)
			return
		}
		respond.OK(c, newItemsResponse(set))
	}
}

// autoFix streams progress as server-sent events unless the client asks for
// a single JSON response.
func (h *Handler) autoFix(c *gin.Context) {
	id := c.Param("id")
	middleware.SetSessionID(c, id)
	owner := middleware.UserIDFromContext(c)
	ctx := c.Request.Context()

	if _, err := h.Svc.Get(ctx, owner, id); err != nil {
		writeError(c, err)
		return
	}

	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		var steps []fixes.Step
		sum, err := h.Svc.AutoFix(ctx, owner, id, func(s fixes.Step) {
			if s.Phase != fixes.PhaseStarted {
				steps = append(steps, s)
			}
		})
		if err != nil {
			writeError(c, err)
			return
		}
		sess, err := h.Svc.Get(ctx, owner, id)
		if err != nil {
			writeError(c, err)
			return
		}
		respond.OK(c, autoFixResponse{Summary: sum, Steps: steps, Items: sess.Board.Snapshot()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sum, err := h.Svc.AutoFix(ctx, owner, id, func(s fixes.Step) {
		c.SSEvent("progress", s)
		c.Writer.Flush()
	})
	if err != nil {
		c.SSEvent("error", respond.ErrorBody{Code: errorCode(err), Message: err.Error()})
		c.Writer.Flush()
		return
	}
	c.SSEvent("completed", sum)
	c.Writer.Flush()
}

func (h *Handler) ask(c *gin.Context) {
	id := c.Param("id")
	middleware.SetSessionID(c, id)
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	answer, err := h.Svc.Ask(c.Request.Context(), middleware.UserIDFromContext(c), id, req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, askResponse{Answer: answer})
}

func errorCode(err error) string {
	code, _ := classify(err)
	return code
}

func classify(err error) (string, int) {
	var (
		transitionErr  *fixes.InvalidTransitionError
		fixInputErr    *fixes.InputContractError
		analysisInput  *analyses.InputContractError
		fixProviderErr *fixes.ProviderError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, fixes.ErrItemNotFound):
		return "item_not_found", http.StatusNotFound
	case errors.Is(err, object.ErrNotFound):
		return "upload_not_found", http.StatusNotFound
	case errors.As(err, &transitionErr):
		return "invalid_transition", http.StatusConflict
	case errors.Is(err, ErrBatchRunning):
		return "batch_running", http.StatusConflict
	case errors.As(err, &fixInputErr), errors.As(err, &analysisInput),
		errors.Is(err, documents.ErrInvalidInput), errors.Is(err, documents.ErrEmptyDocument),
		errors.Is(err, ErrInvalidQuestion):
		return "validation_error", http.StatusBadRequest
	case errors.Is(err, documents.ErrUnsupportedType):
		return "unsupported_media_type", http.StatusUnsupportedMediaType
	case errors.Is(err, usage.ErrLimitReached):
		return "limit_reached", http.StatusTooManyRequests
	case errors.As(err, &fixProviderErr):
		return "fix_failed", http.StatusBadGateway
	case errors.Is(err, analyses.ErrNoProvider), errors.Is(err, fixes.ErrNoProvider), errors.Is(err, ErrNoAssistant):
		return "provider_unavailable", http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout", http.StatusRequestTimeout
	case errors.Is(err, ErrAskFailed):
		return "assistant_failed", http.StatusBadGateway
	default:
		return "internal_error", http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code, status := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "unexpected error"
	}
	respond.Error(c, status, code, message, nil)
}
