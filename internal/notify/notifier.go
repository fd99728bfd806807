// internal/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"talent-scoring/internal/common/aws"
	"talent-scoring/internal/common/config"
	"talent-scoring/internal/common/errors"
	"talent-scoring/internal/common/logger"
)

// ScorePublished is the event emitted after a completed job has been written
// through to the talent profile.
type ScorePublished struct {
	TalentID string   `json:"talentId"`
	JobID    string   `json:"jobId"`
	Score    int      `json:"score"`
	Criteria []string `json:"criteria"`
}

// Notifier announces newly published scores. Delivery is best effort; the
// harvester logs a failed send and moves on.
type Notifier interface {
	NotifyScorePublished(ctx context.Context, event ScorePublished) error
}

type emailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// AWSNotifier sends an ops email via SES and fans the event out on an SNS
// topic. Either channel can be disabled in config.
type AWSNotifier struct {
	cfg    config.NotificationConfig
	ses    emailSender
	sns    topicPublisher
	logger logger.Logger
}

func NewAWSNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*AWSNotifier, error) {
	n := &AWSNotifier{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}

	if cfg.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("create ses client: %w", err)
		}
		n.ses = sesClient
	}
	if cfg.SMS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("create sns client: %w", err)
		}
		n.sns = snsClient
	}

	return n, nil
}

func (n *AWSNotifier) NotifyScorePublished(ctx context.Context, event ScorePublished) error {
	var firstErr error

	if n.ses != nil {
		if err := n.sendEmail(ctx, event); err != nil {
			n.logger.Warn("score-published email failed", map[string]interface{}{
				"talentId": event.TalentID,
				"error":    err.Error(),
			})
			firstErr = errors.NewNotificationFailedError("email", err)
		}
	}

	if n.sns != nil {
		if err := n.publishTopic(ctx, event); err != nil {
			n.logger.Warn("score-published topic publish failed", map[string]interface{}{
				"talentId": event.TalentID,
				"error":    err.Error(),
			})
			if firstErr == nil {
				firstErr = errors.NewNotificationFailedError("sns", err)
			}
		}
	}

	return firstErr
}

func (n *AWSNotifier) sendEmail(ctx context.Context, event ScorePublished) error {
	subject := fmt.Sprintf("Scoring completed for talent %s", event.TalentID)
	body := fmt.Sprintf(
		"Talent %s received an overall score of %d.\nCriteria met: %v\nJob: %s\n",
		event.TalentID, event.Score, event.Criteria, event.JobID,
	)

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: awssdk.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.cfg.Email.OpsEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body)},
			},
		},
	})
	return err
}

func (n *AWSNotifier) publishTopic(ctx context.Context, event ScorePublished) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal score event: %w", err)
	}

	_, err = n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.cfg.SMS.TopicARN),
		Subject:  awssdk.String("score-published"),
		Message:  awssdk.String(string(payload)),
	})
	return err
}
