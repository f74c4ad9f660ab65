package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"legalreview-backend/internal/shared/telemetry"
)

type sqsReceiveAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Handler processes one received event. A returned error leaves the message
// on the queue for redelivery.
type Handler func(ctx context.Context, e Event) error

// SQSConsumer long-polls an events queue.
type SQSConsumer struct {
	client      sqsReceiveAPI
	queueURL    string
	WaitSeconds int32
	MaxMessages int32
}

// NewSQSConsumer constructs a consumer for queueURL.
func NewSQSConsumer(ctx context.Context, queueURL, region string) (*SQSConsumer, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, errors.New("queue url is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region = strings.TrimSpace(region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSQSConsumer(sqs.NewFromConfig(cfg), queueURL), nil
}

func newSQSConsumer(client sqsReceiveAPI, queueURL string) *SQSConsumer {
	return &SQSConsumer{client: client, queueURL: queueURL, WaitSeconds: 20, MaxMessages: 10}
}

// Decode parses a message body produced by SQSPublisher.
func Decode(body string) (Event, error) {
	var e Event
	if strings.TrimSpace(body) == "" {
		return e, errors.New("empty message body")
	}
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return e, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return e, errors.New("event type is missing")
	}
	return e, nil
}

// Run polls until ctx is done. Messages that cannot be decoded are deleted
// since redelivery cannot fix them.
func (c *SQSConsumer) Run(ctx context.Context, handle Handler) error {
	for {
		if err := c.PollOnce(ctx, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			telemetry.Warn("events.receive.failed", map[string]any{"error": err})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// PollOnce receives and handles a single batch.
func (c *SQSConsumer) PollOnce(ctx context.Context, handle Handler) error {
	resp, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.MaxMessages,
		WaitTimeSeconds:     c.WaitSeconds,
		AttributeNames:      []types.QueueAttributeName{types.QueueAttributeName("ApproximateReceiveCount")},
	})
	if err != nil {
		return err
	}

	for _, msg := range resp.Messages {
		fields := map[string]any{
			"sqs_message_id": aws.ToString(msg.MessageId),
			"receive_count":  receiveCount(msg),
		}
		e, err := Decode(aws.ToString(msg.Body))
		if err != nil {
			fields["error"] = err
			telemetry.Error("events.decode.failed", fields)
			c.delete(ctx, msg, fields)
			continue
		}
		fields["type"] = e.Type
		fields["session_id"] = e.SessionID
		if err := handle(ctx, e); err != nil {
			fields["error"] = err
			telemetry.Error("events.handle.failed", fields)
			continue
		}
		c.delete(ctx, msg, fields)
	}
	return nil
}

func (c *SQSConsumer) delete(ctx context.Context, msg types.Message, fields map[string]any) {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields["error"] = "missing receipt handle"
		telemetry.Error("events.delete.failed", fields)
		return
	}
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields["error"] = err
		telemetry.Error("events.delete.failed", fields)
	}
}

func receiveCount(msg types.Message) int {
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
