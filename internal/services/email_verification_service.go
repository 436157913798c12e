package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	pkgauth "github.com/BradenHooton/alumni-onboard/pkg/auth"
	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
)

// EmailVerificationRepository defines the interface for email verification token operations
type EmailVerificationRepository interface {
	Create(ctx context.Context, accountID, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error)
	MarkAsUsed(ctx context.Context, id string) error
	DeleteByAccountID(ctx context.Context, accountID string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// EmailVerificationService handles email verification business logic
type EmailVerificationService struct {
	tokens       EmailVerificationRepository
	accounts     AccountRepository
	emailService EmailService
	clock        clock.Clock
	tokenExpiry  time.Duration
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
}

// NewEmailVerificationService creates a new EmailVerificationService
func NewEmailVerificationService(
	tokens EmailVerificationRepository,
	accounts AccountRepository,
	emailService EmailService,
	clk clock.Clock,
	tokenExpiry time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *EmailVerificationService {
	if clk == nil {
		clk = clock.Real()
	}
	return &EmailVerificationService{
		tokens:       tokens,
		accounts:     accounts,
		emailService: emailService,
		clock:        clk,
		tokenExpiry:  tokenExpiry,
		logger:       logger,
		auditLogger:  auditLogger,
	}
}

// SendVerificationEmail replaces any outstanding link for the account
// registered under email and mails a new one. Unknown or already verified
// addresses succeed without sending anything.
func (s *EmailVerificationService) SendVerificationEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification email requested for unknown address",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if account.EmailVerified() {
		return nil
	}

	if err := s.tokens.DeleteByAccountID(ctx, account.ID); err != nil {
		s.logger.Error("failed to delete old tokens",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	plainToken, err := pkgauth.GenerateToken()
	if err != nil {
		s.logger.Error("failed to generate random token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := s.clock.Now().Add(s.tokenExpiry)
	if _, err := s.tokens.Create(ctx, account.ID, pkgauth.HashToken(plainToken), email, expiresAt); err != nil {
		s.logger.Error("failed to create email verification token",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.emailService.SendVerificationEmail(ctx, email, plainToken, expiresAt); err != nil {
		return models.OperationFailed("send verification email", err)
	}

	s.logger.Info("verification email queued",
		slog.String("account_id", account.ID),
		slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}

// VerifyEmail consumes a token from a verification link and marks the
// account's email verified. It returns the account id.
func (s *EmailVerificationService) VerifyEmail(ctx context.Context, plainToken string) (string, error) {
	if plainToken == "" {
		s.logger.Warn("empty verification token provided")
		return "", models.ErrUnauthorized
	}

	token, err := s.tokens.GetByTokenHash(ctx, pkgauth.HashToken(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification token not found")
			return "", models.ErrUnauthorized
		}
		s.logger.Error("failed to retrieve verification token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if token.IsUsed() {
		s.logger.Warn("attempt to reuse verification token", slog.String("token_id", token.ID))
		s.auditLogger.LogAccountEvent("email_verification", token.AccountID, errors.New("token_reused"))
		return "", models.ErrUnauthorized
	}

	if token.IsExpired(s.clock.Now()) {
		s.logger.Info("verification token expired",
			slog.String("token_id", token.ID),
			slog.Time("expires_at", token.ExpiresAt))
		s.auditLogger.LogAccountEvent("email_verification", token.AccountID, errors.New("token_expired"))
		return "", models.ErrUnauthorized
	}

	if err := s.tokens.MarkAsUsed(ctx, token.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrUnauthorized
		}
		s.logger.Error("failed to mark token as used",
			slog.String("token_id", token.ID),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := s.accounts.MarkEmailVerified(ctx, token.AccountID); err != nil {
		s.logger.Error("failed to mark email verified",
			slog.String("account_id", token.AccountID),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.auditLogger.LogAccountEvent("email_verification", token.AccountID, nil)
	return token.AccountID, nil
}

// Status reports whether the account registered under email has confirmed
// it. Unknown addresses report false.
func (s *EmailVerificationService) Status(ctx context.Context, email string) (bool, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return false, models.ErrInternalServer
	}
	return account.EmailVerified(), nil
}

// CleanupExpired removes tokens that expired more than a day ago.
func (s *EmailVerificationService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.tokens.CleanupExpired(ctx)
}
