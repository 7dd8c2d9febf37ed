package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"example/formula-api/app/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	mu   sync.Mutex
	sent []*sqs.SendMessageInput
	err  error
	done chan struct{}
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	f.sent = append(f.sent, in)
	f.mu.Unlock()
	if f.done != nil {
		close(f.done)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSPublish(t *testing.T) {
	fake := &fakeSQS{}
	p := &SQS{client: fake, queueURL: "https://sqs.local/q"}

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	err := p.Publish(context.Background(), models.UsageEvent{Tier: "free", UserID: "u1", UsageCount: 3, At: at})
	require.NoError(t, err)

	require.Len(t, fake.sent, 1)
	in := fake.sent[0]
	assert.Equal(t, "https://sqs.local/q", aws.ToString(in.QueueUrl))
	assert.Equal(t, "free", aws.ToString(in.MessageAttributes["tier"].StringValue))

	var got models.UsageEvent
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &got))
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, 3, got.UsageCount)
	assert.True(t, at.Equal(got.At))
}

func TestSQSPublishError(t *testing.T) {
	p := &SQS{client: &fakeSQS{err: errors.New("boom")}, queueURL: "q"}
	err := p.Publish(context.Background(), models.UsageEvent{Tier: "guest"})
	assert.Error(t, err)
}

func TestFromConfigWithoutQueue(t *testing.T) {
	p, err := FromConfig(context.Background(), "")
	require.NoError(t, err)
	assert.IsType(t, Noop{}, p)
}

func TestPublishDetachedSurvivesCancelledRequest(t *testing.T) {
	fake := &fakeSQS{err: errors.New("queue down"), done: make(chan struct{})}
	p := &SQS{client: fake, queueURL: "q"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	PublishDetached(ctx, p, models.UsageEvent{Tier: "pro"})

	select {
	case <-fake.done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish was not attempted")
	}
}

type deadlineRecorder struct {
	deadline bool
	err      error
	calls    int
}

func (d *deadlineRecorder) Publish(ctx context.Context, _ models.UsageEvent) error {
	d.calls++
	_, d.deadline = ctx.Deadline()
	return d.err
}

func TestPublishSyncSendsBeforeReturning(t *testing.T) {
	rec := &deadlineRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	PublishSync(ctx, rec, models.UsageEvent{Tier: "guest"})
	assert.Equal(t, 1, rec.calls)
	assert.True(t, rec.deadline)
}

func TestPublishSyncSwallowsErrors(t *testing.T) {
	rec := &deadlineRecorder{err: errors.New("queue down")}
	assert.NotPanics(t, func() {
		PublishSync(context.Background(), rec, models.UsageEvent{Tier: "free"})
	})
	assert.Equal(t, 1, rec.calls)
	PublishSync(context.Background(), nil, models.UsageEvent{})
}
