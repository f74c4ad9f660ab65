package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"legalreview-backend/internal/audit"
	"legalreview-backend/internal/shared/config"
	"legalreview-backend/internal/shared/storage/db"
	"legalreview-backend/internal/shared/telemetry"
)

var (
	sinkMu sync.Mutex
	sink   *audit.Sink
)

// loadSink builds the sink on first use. A failed build is retried on the
// next invocation.
func loadSink(ctx context.Context) (*audit.Sink, error) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if sink != nil {
		return sink, nil
	}
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		sink = &audit.Sink{}
		return sink, nil
	}
	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.RoleWorker)
	if err != nil {
		return nil, err
	}
	sink = &audit.Sink{DB: sqlDB}
	return sink, nil
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	s, err := loadSink(ctx)
	if err != nil {
		telemetry.Error("worker.init.failed", map[string]any{"records": len(event.Records), "error": err})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, nil
	}
	return handleRecords(ctx, s, event.Records), nil
}

// handleRecords reports failed records for redelivery. Undecodable records are
// dropped since a retry cannot fix them.
func handleRecords(ctx context.Context, s *audit.Sink, records []events.SQSMessage) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range records {
		err := s.HandleBody(ctx, record.Body)
		if err == nil {
			continue
		}
		fields := map[string]any{"sqs_message_id": record.MessageId, "error": err}
		var decodeErr *audit.DecodeError
		if errors.As(err, &decodeErr) {
			telemetry.Error("worker.event.decode_failed", fields)
			continue
		}
		telemetry.Error("worker.event.failed", fields)
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
