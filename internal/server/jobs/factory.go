package jobs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/soundfilter/internal/server/config"
)

// NewFromConfig creates the Queue selected by cfg.QueueType.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Queue, error) {
	switch cfg.QueueType {
	case "memory":
		return NewMemoryQueue(100), nil
	case "sqs":
		if cfg.SQSQueueURL == "" {
			return nil, fmt.Errorf("sqs queue requires sqs_queue_url to be set")
		}
		// Credentials come from the default AWS chain, not the S3 settings,
		// which usually point at MinIO.
		return NewSQSQueue(ctx, SQSOptions{
			QueueURL: cfg.SQSQueueURL,
			Region:   cfg.S3Region,
		})
	default:
		return nil, fmt.Errorf("unknown queue type: %s", cfg.QueueType)
	}
}
