package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"legalreview-backend/internal/events"
	"legalreview-backend/internal/shared/config"
)

var (
	eventsQueueURLFlag string
	eventsRegionFlag   string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the review events queue",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print review events as they arrive",
	Long: `Tail long-polls the events queue and prints each event. Printed
messages are deleted from the queue, so do not point it at a queue that
another consumer depends on.`,
	RunE: runEventsTail,
}

func init() {
	eventsTailCmd.Flags().StringVar(&eventsQueueURLFlag, "queue-url", "", "SQS queue URL (default $EVENTS_QUEUE_URL)")
	eventsTailCmd.Flags().StringVar(&eventsRegionFlag, "region", "", "AWS region (default $AWS_REGION)")
	eventsCmd.AddCommand(eventsTailCmd)
	rootCmd.AddCommand(eventsCmd)
}

func runEventsTail(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	queueURL := eventsQueueURLFlag
	if queueURL == "" {
		queueURL = cfg.EventsQueueURL
	}
	region := eventsRegionFlag
	if region == "" {
		region = cfg.AWSRegion
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := events.NewSQSConsumer(ctx, queueURL, region)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styleMuted.Render("Waiting for events on "+queueURL+" (Ctrl+C to stop)"))
	return consumer.Run(ctx, func(_ context.Context, e events.Event) error {
		fmt.Fprintln(out, renderEvent(e))
		return nil
	})
}
