package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"legalreview-backend/internal/bootstrap"
	"legalreview-backend/internal/shared/config"
	"legalreview-backend/internal/shared/server/respond"
	"legalreview-backend/internal/shared/telemetry"
)

// proxy lazily builds the app on first invocation. A failed build is retried
// on the next invocation instead of poisoning the container.
type proxy struct {
	mu      sync.Mutex
	adapter *ginadapter.GinLambdaV2
	build   func() (*gin.Engine, error)
}

func (p *proxy) get() (*ginadapter.GinLambdaV2, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adapter != nil {
		return p.adapter, nil
	}
	router, err := p.build()
	if err != nil {
		return nil, err
	}
	p.adapter = ginadapter.NewV2(router)
	return p.adapter, nil
}

func (p *proxy) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	adapter, err := p.get()
	if err != nil {
		telemetry.Error("lambda.bootstrap.failed", map[string]any{
			"request_id": req.RequestContext.RequestID,
			"error":      err,
		})
		body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
			Code:    "unavailable",
			Message: "Service is starting, retry shortly",
		}})
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusServiceUnavailable,
			Body:       string(body),
			Headers:    map[string]string{"Content-Type": "application/json", "Retry-After": "1"},
		}, nil
	}
	return adapter.ProxyWithContext(ctx, req)
}

func buildRouter() (*gin.Engine, error) {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return nil, err
	}
	app.Start(context.Background())
	return app.Router, nil
}

func main() {
	p := &proxy{build: buildRouter}
	lambda.Start(p.handle)
}
