package main

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-lambda-go/events"

	"legalreview-backend/internal/audit"
)

func TestHandleRecordsReportsOnlyRetryableFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_events")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_events")).WillReturnError(errors.New("connection reset"))

	records := []events.SQSMessage{
		{MessageId: "ok", Body: `{"type":"analysis.completed","sessionId":"s-1","occurredAt":"2026-05-04T09:30:00Z"}`},
		{MessageId: "garbage", Body: "not json"},
		{MessageId: "retry", Body: `{"type":"autofix.completed","sessionId":"s-1","occurredAt":"2026-05-04T09:31:00Z"}`},
	}
	resp := handleRecords(context.Background(), &audit.Sink{DB: db}, records)
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "retry" {
		t.Fatalf("unexpected failures: %+v", resp.BatchItemFailures)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
