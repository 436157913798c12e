package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
)

// SNSPublisher is the subset of the SNS client used to send SMS.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AWSSNSSMSService sends transactional SMS using AWS SNS
type AWSSNSSMSService struct {
	client   SNSPublisher
	senderID string
	logger   *slog.Logger
}

// NewAWSSNSSMSService creates an SMS sender for region.
func NewAWSSNSSMSService(ctx context.Context, region, senderID string, logger *slog.Logger) (*AWSSNSSMSService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSNSSMSServiceWithClient(sns.NewFromConfig(cfg), senderID, logger), nil
}

// NewSNSSMSServiceWithClient wraps an existing publisher.
func NewSNSSMSServiceWithClient(client SNSPublisher, senderID string, logger *slog.Logger) *AWSSNSSMSService {
	return &AWSSNSSMSService{client: client, senderID: senderID, logger: logger}
}

func (s *AWSSNSSMSService) SendSMS(ctx context.Context, to, message string) error {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	result, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		s.logger.Error("failed to publish sms via SNS",
			slog.String("phone", pkglogger.SanitizedPhone(to)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send sms: %w", err)
	}

	s.logger.Info("sms sent",
		slog.String("phone", pkglogger.SanitizedPhone(to)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// LogSMSService writes messages to the log instead of sending them. It is
// meant for local development, where the log is how codes are read.
type LogSMSService struct {
	logger *slog.Logger
}

func NewLogSMSService(logger *slog.Logger) *LogSMSService {
	return &LogSMSService{logger: logger}
}

func (s *LogSMSService) SendSMS(_ context.Context, to, message string) error {
	s.logger.Info("sms (not sent)",
		slog.String("phone", pkglogger.SanitizedPhone(to)),
		slog.String("message", message))
	return nil
}
