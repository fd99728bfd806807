// internal/notify/notifier_test.go
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-scoring/internal/common/config"
	"talent-scoring/internal/common/logger"
)

type fakeEmailSender struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeEmailSender) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, input)
	return &ses.SendEmailOutput{}, f.err
}

type fakePublisher struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, f.err
}

func testConfig() config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.Email.FromEmail = "noreply@example.com"
	cfg.Email.OpsEmail = "ops@example.com"
	cfg.SMS.TopicARN = "arn:aws:sns:us-east-1:123456789012:score-published"
	return cfg
}

func TestAWSNotifier_SendsBothChannels(t *testing.T) {
	email := &fakeEmailSender{}
	topic := &fakePublisher{}
	n := &AWSNotifier{cfg: testConfig(), ses: email, sns: topic, logger: logger.NewNoOpLogger()}

	event := ScorePublished{TalentID: "talent-1", JobID: "job-1", Score: 82, Criteria: []string{"awards"}}
	err := n.NotifyScorePublished(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, email.inputs, 1)
	assert.Equal(t, "ops@example.com", email.inputs[0].Destination.ToAddresses[0])

	require.Len(t, topic.inputs, 1)
	var published ScorePublished
	require.NoError(t, json.Unmarshal([]byte(*topic.inputs[0].Message), &published))
	assert.Equal(t, event, published)
}

func TestAWSNotifier_EmailFailureStillPublishesTopic(t *testing.T) {
	email := &fakeEmailSender{err: errors.New("ses throttled")}
	topic := &fakePublisher{}
	n := &AWSNotifier{cfg: testConfig(), ses: email, sns: topic, logger: logger.NewNoOpLogger()}

	err := n.NotifyScorePublished(context.Background(), ScorePublished{TalentID: "talent-1", Score: 40})

	assert.Error(t, err)
	assert.Len(t, topic.inputs, 1)
}

func TestAWSNotifier_DisabledChannelsAreSkipped(t *testing.T) {
	n := &AWSNotifier{cfg: testConfig(), logger: logger.NewNoOpLogger()}

	err := n.NotifyScorePublished(context.Background(), ScorePublished{TalentID: "talent-1", Score: 40})

	assert.NoError(t, err)
}
