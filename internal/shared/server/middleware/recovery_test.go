package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"legalreview-backend/internal/shared/metrics"
	"legalreview-backend/internal/shared/telemetry"
)

func TestRecoveryReturnsErrorBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(nil) })

	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/api/v1/reviews/:id", func(c *gin.Context) {
		panic("board exploded")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/reviews/s-1", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"code":"internal"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if !strings.Contains(metrics.Render(), `http_panics_total{route="/api/v1/reviews/:id"}`) {
		t.Fatalf("expected panic to be counted by route")
	}
}

func TestRecoveryAfterStreamStarted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(nil) })

	router := gin.New()
	router.Use(Recovery())
	router.POST("/stream", func(c *gin.Context) {
		c.SSEvent("progress", gin.H{"index": 1})
		c.Writer.Flush()
		panic("provider adapter bug")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/stream", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("status should stay as written, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), `"error"`) {
		t.Fatalf("error body must not be appended to a started stream: %s", resp.Body.String())
	}
}
