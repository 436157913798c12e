package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/BradenHooton/alumni-onboard/internal/validation"
	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// SMSSender delivers a text message to a phone number
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// OTPConfig controls code generation and resend throttling.
type OTPConfig struct {
	Issuer string
	// Period is how long one code stays current. Validation also accepts
	// the previous period.
	Period         time.Duration
	ResendCooldown time.Duration
}

// DefaultOTPConfig matches the client's 60 second resend countdown.
var DefaultOTPConfig = OTPConfig{
	Issuer:         "Alumni Network",
	Period:         5 * time.Minute,
	ResendCooldown: 60 * time.Second,
}

// OTPService issues and checks 6-digit phone codes derived from each
// account's TOTP secret.
type OTPService struct {
	accounts    AccountRepository
	sms         SMSSender
	clock       clock.Clock
	config      OTPConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	mu       sync.Mutex
	lastSent map[string]time.Time // account id -> last dispatch
}

// NewOTPService creates a new OTPService
func NewOTPService(accounts AccountRepository, sms SMSSender, clk clock.Clock, config OTPConfig, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *OTPService {
	if clk == nil {
		clk = clock.Real()
	}
	return &OTPService{
		accounts:    accounts,
		sms:         sms,
		clock:       clk,
		config:      config,
		logger:      logger,
		auditLogger: auditLogger,
		lastSent:    make(map[string]time.Time),
	}
}

func (s *OTPService) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(s.config.Period / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// NewSecret generates a base32 TOTP secret for a new account.
func (s *OTPService) NewSecret(accountName string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.config.Issuer,
		AccountName: accountName,
		Period:      uint(s.config.Period / time.Second),
		SecretSize:  20,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	return key.Secret(), nil
}

// SendCode texts a fresh code to phone. Unknown numbers are accepted
// silently so the endpoint cannot be used to probe for members.
func (s *OTPService) SendCode(ctx context.Context, phone string) error {
	account, err := s.accounts.GetByPhone(ctx, validation.NormalizePhone(phone))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("code requested for unknown phone",
				slog.String("phone", pkglogger.SanitizedPhone(phone)))
			return nil
		}
		s.logger.Error("failed to get account by phone", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return s.Dispatch(ctx, account)
}

// Dispatch texts the account's current code, at most once per
// ResendCooldown. A throttled call returns ErrResendNotYetAllowed.
func (s *OTPService) Dispatch(ctx context.Context, account *models.Account) error {
	now := s.clock.Now()

	s.mu.Lock()
	if last, ok := s.lastSent[account.ID]; ok && now.Sub(last) < s.config.ResendCooldown {
		s.mu.Unlock()
		s.logger.Info("code resend throttled",
			slog.String("account_id", account.ID),
			slog.Duration("since_last", now.Sub(last)))
		return models.ErrResendNotYetAllowed
	}
	s.lastSent[account.ID] = now
	s.mu.Unlock()

	code, err := totp.GenerateCodeCustom(account.OTPSecret, now, s.validateOpts())
	if err != nil {
		s.forget(account.ID, now)
		s.logger.Error("failed to generate code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	message := fmt.Sprintf("Your alumni network verification code is %s. It expires in %d minutes.",
		code, int(s.config.Period/time.Minute))
	if err := s.sms.SendSMS(ctx, account.PhoneNumber, message); err != nil {
		s.forget(account.ID, now)
		s.logger.Error("failed to send verification code",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return models.OperationFailed("send sms", err)
	}

	s.logger.Info("verification code sent",
		slog.String("account_id", account.ID),
		slog.String("phone", pkglogger.SanitizedPhone(account.PhoneNumber)))
	return nil
}

// forget clears a cooldown entry recorded at sentAt, so a failed dispatch
// can be retried straight away.
func (s *OTPService) forget(accountID string, sentAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSent[accountID].Equal(sentAt) {
		delete(s.lastSent, accountID)
	}
}

// VerifyCode checks code against the account registered for phone and
// marks the phone verified on a match. Unknown numbers simply fail.
func (s *OTPService) VerifyCode(ctx context.Context, phone, code string) (bool, error) {
	account, err := s.accounts.GetByPhone(ctx, validation.NormalizePhone(phone))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogAccountEvent("phone_verification", "", models.ErrInvalidOTP)
			return false, nil
		}
		s.logger.Error("failed to get account by phone", slog.Any("error", err))
		return false, models.ErrInternalServer
	}

	valid, err := totp.ValidateCustom(code, account.OTPSecret, s.clock.Now(), s.validateOpts())
	if err != nil || !valid {
		s.auditLogger.LogAccountEvent("phone_verification", account.ID, models.ErrInvalidOTP)
		return false, nil
	}

	if !account.PhoneVerified() {
		if err := s.accounts.MarkPhoneVerified(ctx, account.ID); err != nil {
			s.logger.Error("failed to mark phone verified",
				slog.String("account_id", account.ID),
				slog.Any("error", err))
			return false, models.ErrInternalServer
		}
	}

	s.auditLogger.LogAccountEvent("phone_verification", account.ID, nil)
	return true, nil
}
