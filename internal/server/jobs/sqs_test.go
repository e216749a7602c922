package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	mu         sync.Mutex
	sent       []string
	inbox      []types.Message
	deleted    []string
	visibility []string
	timeouts   []int32
	sendErr    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{MessageId: aws.String("m1")}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbox) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &sqs.ReceiveMessageOutput{}, nil
	}
	msg := f.inbox[0]
	f.inbox = f.inbox[1:]
	return &sqs.ReceiveMessageOutput{Messages: []types.Message{msg}}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(ctx context.Context, in *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visibility = append(f.visibility, aws.ToString(in.ReceiptHandle))
	f.timeouts = append(f.timeouts, in.VisibilityTimeout)
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func TestSQSQueue_Enqueue(t *testing.T) {
	fake := &fakeSQS{}
	q := &SQSQueue{client: fake, queueURL: "http://sqs/q"}

	job, _ := NewJob(TypePasswordResetEmail, RecordPayload{RecordID: 7})
	require.NoError(t, q.Enqueue(context.Background(), job))

	require.Len(t, fake.sent, 1)
	var got Job
	require.NoError(t, json.Unmarshal([]byte(fake.sent[0]), &got))
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, TypePasswordResetEmail, got.Type)

	fake.sendErr = errors.New("throttled")
	assert.ErrorContains(t, q.Enqueue(context.Background(), job), "sqs send: throttled")
}

func TestSQSQueue_ReceiveAckNack(t *testing.T) {
	job, _ := NewJob(TypeWelcomeEmail, RecordPayload{RecordID: 1})
	body, _ := json.Marshal(job)

	fake := &fakeSQS{inbox: []types.Message{
		{Body: aws.String("garbage"), ReceiptHandle: aws.String("r0")},
		{Body: aws.String(string(body)), ReceiptHandle: aws.String("r1"),
			Attributes: map[string]string{"ApproximateReceiveCount": "3"}},
	}}
	q := &SQSQueue{client: fake, queueURL: "http://sqs/q"}

	d, err := q.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, job.ID, d.Job().ID)
	assert.Equal(t, 2, d.Job().Attempt)
	assert.Equal(t, []string{"r0"}, fake.deleted, "undecodable message is dropped")

	require.NoError(t, d.Nack(context.Background(), 90*time.Second))
	assert.Equal(t, []string{"r1"}, fake.visibility)
	assert.Equal(t, []int32{90}, fake.timeouts, "redelivery waits for the backoff")

	require.NoError(t, d.Ack(context.Background()))
	assert.Equal(t, []string{"r0", "r1"}, fake.deleted)
}

func TestSQSQueue_ReceiveCanceled(t *testing.T) {
	q := &SQSQueue{client: &fakeSQS{}, queueURL: "http://sqs/q"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSQSQueue_UsesEndpoint(t *testing.T) {
	orig := newSQSClientFromConfig
	applied := &sqs.Options{}
	newSQSClientFromConfig = func(cfg aws.Config, optFns ...func(*sqs.Options)) sqsAPI {
		for _, fn := range optFns {
			fn(applied)
		}
		return &fakeSQS{}
	}
	t.Cleanup(func() { newSQSClientFromConfig = orig })

	q, err := NewSQSQueue(context.Background(), SQSOptions{QueueURL: "u", Region: "us-east-1", Endpoint: "http://localstack:4566"})
	require.NoError(t, err)
	assert.Equal(t, "u", q.queueURL)
	require.NotNil(t, applied.BaseEndpoint)
	assert.Equal(t, "http://localstack:4566", *applied.BaseEndpoint)
}

func TestVisibilitySeconds(t *testing.T) {
	assert.Equal(t, int32(0), visibilitySeconds(0))
	assert.Equal(t, int32(0), visibilitySeconds(-time.Second))
	assert.Equal(t, int32(2), visibilitySeconds(1600*time.Millisecond))
	assert.Equal(t, int32(sqsMaxVisibilitySecs), visibilitySeconds(48*time.Hour))
}
