package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
)

// EmailService defines the interface for sending emails
type EmailService interface {
	SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error
}

// SESSender is the subset of the SES client used to send mail.
type SESSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   SESSender
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(ctx context.Context, region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESEmailServiceWithClient(ses.NewFromConfig(cfg), fromAddress, baseURL, logger), nil
}

// NewSESEmailServiceWithClient wraps an existing SES client.
func NewSESEmailServiceWithClient(client SESSender, fromAddress, baseURL string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{
		sesClient:   client,
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// VerificationLink builds the link a member follows to confirm an address.
func VerificationLink(baseURL, token string) string {
	return fmt.Sprintf("%s/v1/email/verify?token=%s", baseURL, url.QueryEscape(token))
}

func verificationBodies(link string, expiresAt time.Time) (html, text string) {
	expiry := expiresAt.UTC().Format("2 Jan 2006 15:04 MST")

	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Confirm your email for the alumni network</h2>
  <p>Tap the button below to confirm this address and finish joining.</p>
  <p><a href="%s" style="background:#0066cc;color:#fff;padding:12px 24px;text-decoration:none;border-radius:4px;">Confirm email</a></p>
  <p>Or open this link: <code>%s</code></p>
  <p>The link expires on %s. If you did not sign up, ignore this message.</p>
</body>
</html>
`, link, link, expiry)

	text = fmt.Sprintf(`Confirm your email for the alumni network

Open this link to confirm this address and finish joining:
%s

The link expires on %s. If you did not sign up, ignore this message.
`, link, expiry)

	return html, text
}

// SendVerificationEmail sends a verification email to the member
func (s *AWSSESEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	htmlBody, textBody := verificationBodies(VerificationLink(s.baseURL, token), expiresAt)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Confirm your email address"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send verification email via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("verification email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogEmailService logs verification links instead of mailing them, for
// local development.
type LogEmailService struct {
	baseURL string
	logger  *slog.Logger
}

func NewLogEmailService(baseURL string, logger *slog.Logger) *LogEmailService {
	return &LogEmailService{baseURL: baseURL, logger: logger}
}

func (s *LogEmailService) SendVerificationEmail(_ context.Context, email, token string, expiresAt time.Time) error {
	s.logger.Info("verification email (not sent)",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("link", VerificationLink(s.baseURL, token)),
		slog.Time("expires_at", expiresAt))
	return nil
}
