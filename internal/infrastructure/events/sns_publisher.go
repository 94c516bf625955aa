package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ecomai-shopify-bridge/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/rs/zerolog"
)

// snsAPI is the part of *sns.Client used by the publisher
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// lifecycleMessage never carries the access token
type lifecycleMessage struct {
	ShopDomain string    `json:"shop_domain"`
	Status     string    `json:"status"`
	Scopes     []string  `json:"scopes"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SNSPublisher publishes installation lifecycle events to an SNS topic
type SNSPublisher struct {
	client   snsAPI
	topicARN string
	logger   zerolog.Logger
}

// NewSNSPublisher loads the default AWS configuration and binds a publisher to topicARN.
// An empty topicARN yields a publisher that reports domain.ErrNotConfigured.
func NewSNSPublisher(ctx context.Context, topicARN string, logger zerolog.Logger) (*SNSPublisher, error) {
	if topicARN == "" {
		return &SNSPublisher{logger: logger}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return newSNSPublisher(sns.NewFromConfig(awsCfg), topicARN, logger), nil
}

func newSNSPublisher(client snsAPI, topicARN string, logger zerolog.Logger) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN, logger: logger}
}

// PublishLifecycle sends one message per install or uninstall
func (p *SNSPublisher) PublishLifecycle(ctx context.Context, update domain.InstallationUpdate) error {
	if p.client == nil || p.topicARN == "" {
		return fmt.Errorf("%w: INSTALL_EVENTS_TOPIC_ARN is not set", domain.ErrNotConfigured)
	}

	scopes := update.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	occurred := update.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	body, err := json.Marshal(lifecycleMessage{
		ShopDomain: update.ShopDomain,
		Status:     string(update.Status),
		Scopes:     scopes,
		OccurredAt: occurred.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode lifecycle message: %w", err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(fmt.Sprintf("shop %s: %s", update.Status, update.ShopDomain)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status": {DataType: aws.String("String"), StringValue: aws.String(string(update.Status))},
			"shop":   {DataType: aws.String("String"), StringValue: aws.String(update.ShopDomain)},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to publish lifecycle event: %w", domain.ErrUpstream, err)
	}

	p.logger.Info().
		Str("shop", update.ShopDomain).
		Str("status", string(update.Status)).
		Str("message_id", aws.ToString(out.MessageId)).
		Msg("Lifecycle event published")
	return nil
}
