// Package events publishes usage events after a generation was committed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example/formula-api/app/models"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
)

type Publisher interface {
	Publish(ctx context.Context, event models.UsageEvent) error
}

// Noop drops every event. It is used when no queue is configured.
type Noop struct{}

func (Noop) Publish(context.Context, models.UsageEvent) error { return nil }

type sendAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQS struct {
	client   sendAPI
	queueURL string
}

// NewSQS loads the default AWS config chain and targets queueURL.
func NewSQS(ctx context.Context, queueURL string) (*SQS, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SQS{client: sqs.NewFromConfig(awsCfg), queueURL: queueURL}, nil
}

func (p *SQS) Publish(ctx context.Context, event models.UsageEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal usage event: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"tier": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.Tier),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send usage event: %w", err)
	}
	return nil
}

// FromConfig returns an SQS publisher when queueURL is set and Noop otherwise.
func FromConfig(ctx context.Context, queueURL string) (Publisher, error) {
	if queueURL == "" {
		log.Info().Msg("QUEUE_URL not set; usage events disabled")
		return Noop{}, nil
	}
	p, err := NewSQS(ctx, queueURL)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SyncTimeout bounds an in-line publish.
const SyncTimeout = 2 * time.Second

// PublishSync sends event before returning, for runtimes that freeze the
// process once the response is written. Failures are logged and dropped.
func PublishSync(ctx context.Context, p Publisher, event models.UsageEvent) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SyncTimeout)
	defer cancel()
	if err := p.Publish(ctx, event); err != nil {
		logPublishFailure(err, event)
	}
}

// PublishDetached sends event without holding up the caller. Failures are
// logged and dropped.
func PublishDetached(ctx context.Context, p Publisher, event models.UsageEvent) {
	if p == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := p.Publish(ctx, event); err != nil {
			logPublishFailure(err, event)
		}
	}()
}

func logPublishFailure(err error, event models.UsageEvent) {
	log.Warn().Err(err).
		Str("tier", event.Tier).
		Str("user_id", event.UserID).
		Msg("usage event publish failed")
}
