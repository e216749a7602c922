package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsAPI is the part of *sqs.Client the queue uses.
type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, in *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newSQSClientFromConfig = func(cfg aws.Config, optFns ...func(*sqs.Options)) sqsAPI {
		return sqs.NewFromConfig(cfg, optFns...)
	}
)

const (
	sqsWaitSeconds        = 20
	receiveCountAttribute = "ApproximateReceiveCount"
	// SQS rejects visibility timeouts above 12 hours.
	sqsMaxVisibilitySecs = 12 * 60 * 60
)

type SQSOptions struct {
	QueueURL  string
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the SQS endpoint, e.g. for LocalStack.
	Endpoint string
}

// SQSQueue stores jobs as JSON message bodies in an SQS queue. Messages that
// are never acknowledged reappear after the queue's visibility timeout.
type SQSQueue struct {
	client   sqsAPI
	queueURL string
}

func NewSQSQueue(ctx context.Context, opts SQSOptions) (*SQSQueue, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newSQSClientFromConfig(cfg, func(o *sqs.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return &SQSQueue{client: client, queueURL: opts.QueueURL}, nil
}

func (q *SQSQueue) Enqueue(ctx context.Context, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}

// Receive long-polls until a message arrives or ctx is done. Bodies that are
// not valid jobs are deleted so they cannot block the queue.
func (q *SQSQueue) Receive(ctx context.Context) (Delivery, error) {
	for {
		out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:                    aws.String(q.queueURL),
			MaxNumberOfMessages:         1,
			WaitTimeSeconds:             sqsWaitSeconds,
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameApproximateReceiveCount},
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("sqs receive: %w", err)
		}

		for _, msg := range out.Messages {
			job := &Job{}
			if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), job); err != nil {
				_, _ = q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
					QueueUrl:      aws.String(q.queueURL),
					ReceiptHandle: msg.ReceiptHandle,
				})
				continue
			}
			if n, err := strconv.Atoi(msg.Attributes[receiveCountAttribute]); err == nil && n > 0 {
				job.Attempt = n - 1
			}
			return &sqsDelivery{q: q, job: job, receipt: msg.ReceiptHandle}, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

type sqsDelivery struct {
	q       *SQSQueue
	job     *Job
	receipt *string
}

func (d *sqsDelivery) Job() *Job { return d.job }

func (d *sqsDelivery) Ack(ctx context.Context) error {
	_, err := d.q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(d.q.queueURL),
		ReceiptHandle: d.receipt,
	})
	if err != nil {
		return fmt.Errorf("sqs delete: %w", err)
	}
	return nil
}

// Nack hides the message for delay, after which SQS redelivers it.
func (d *sqsDelivery) Nack(ctx context.Context, delay time.Duration) error {
	_, err := d.q.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(d.q.queueURL),
		ReceiptHandle:     d.receipt,
		VisibilityTimeout: visibilitySeconds(delay),
	})
	if err != nil {
		return fmt.Errorf("sqs change visibility: %w", err)
	}
	return nil
}

func visibilitySeconds(delay time.Duration) int32 {
	secs := int64(delay.Round(time.Second) / time.Second)
	if secs < 0 {
		return 0
	}
	if secs > sqsMaxVisibilitySecs {
		return sqsMaxVisibilitySecs
	}
	return int32(secs)
}
