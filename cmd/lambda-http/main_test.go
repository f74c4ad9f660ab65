package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"

	"legalreview-backend/internal/shared/telemetry"
)

func healthRequest() events.APIGatewayV2HTTPRequest {
	req := events.APIGatewayV2HTTPRequest{RawPath: "/api/v1/health"}
	req.RequestContext.HTTP.Method = http.MethodGet
	req.RequestContext.HTTP.Path = "/api/v1/health"
	return req
}

func TestProxyRetriesFailedBuild(t *testing.T) {
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(nil) })

	attempts := 0
	p := &proxy{build: func() (*gin.Engine, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("database unreachable")
		}
		r := gin.New()
		r.GET("/api/v1/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
		return r, nil
	}}

	resp, err := p.handle(context.Background(), healthRequest())
	if err != nil {
		t.Fatalf("bootstrap failure should not be an invocation error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	resp, err = p.handle(context.Background(), healthRequest())
	if err != nil {
		t.Fatalf("second invocation: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after a successful build, got %d: %s", resp.StatusCode, resp.Body)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 build attempts, got %d", attempts)
	}
}
