package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/BradenHooton/alumni-onboard/internal/validation"
	pkgauth "github.com/BradenHooton/alumni-onboard/pkg/auth"
	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
)

// AccountRepository defines the interface for account storage
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByPhone(ctx context.Context, phone string) (*models.Account, error)
	MarkPhoneVerified(ctx context.Context, id string) error
	MarkEmailVerified(ctx context.Context, id string) error
}

// CodeDispatcher sends a phone verification code to an account.
type CodeDispatcher interface {
	Dispatch(ctx context.Context, account *models.Account) error
	NewSecret(accountName string) (string, error)
}

// FailureDelay pads failed logins.
type FailureDelay interface {
	Wait(ctx context.Context, success bool)
}

// SignupInput is the verifier's view of a signup form.
type SignupInput struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Password    string
}

// AccountService registers members and checks their credentials
type AccountService struct {
	repo        AccountRepository
	codes       CodeDispatcher
	delay       FailureDelay
	bcryptCost  int
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAccountService creates a new AccountService. delay may be nil.
func NewAccountService(repo AccountRepository, codes CodeDispatcher, delay FailureDelay, bcryptCost int, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AccountService {
	return &AccountService{
		repo:        repo,
		codes:       codes,
		delay:       delay,
		bcryptCost:  bcryptCost,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an account and dispatches its first phone code. A failed
// dispatch does not undo the signup; the member can ask for a resend.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.Account, error) {
	email := normalizeEmail(in.Email)
	phone := validation.NormalizePhone(in.PhoneNumber)

	if err := s.ensureUnused(ctx, email, phone); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	secret, err := s.codes.NewSecret(email)
	if err != nil {
		s.logger.Error("failed to generate otp secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	account, err := s.repo.Create(ctx, &models.Account{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: hash,
		OTPSecret:    secret,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.auditLogger.LogAccountEvent("signup", "", err)
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountEvent("signup", account.ID, nil)
	s.logger.Info("account created",
		slog.String("account_id", account.ID),
		slog.String("email", pkglogger.SanitizedEmail(account.Email)))

	if err := s.codes.Dispatch(ctx, account); err != nil {
		s.logger.Warn("first verification code not sent",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
	}

	return account, nil
}

func (s *AccountService) ensureUnused(ctx context.Context, email, phone string) error {
	lookups := []func(context.Context, string) (*models.Account, error){s.repo.GetByEmail, s.repo.GetByPhone}
	for i, value := range []string{email, phone} {
		_, err := lookups[i](ctx, value)
		switch {
		case err == nil:
			s.auditLogger.LogAccountEvent("signup", "", models.ErrConflict)
			return models.ErrConflict
		case !errors.Is(err, models.ErrNotFound):
			s.logger.Error("failed to check existing account", slog.Any("error", err))
			return models.ErrInternalServer
		}
	}
	return nil
}

// Login checks that email, phone and password all belong to one account.
// Every mismatch reports ErrUnauthorized.
func (s *AccountService) Login(ctx context.Context, email, phone, password string) (*models.Account, error) {
	account, err := s.repo.GetByPhone(ctx, validation.NormalizePhone(phone))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to get account by phone", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	var reason string
	switch {
	case account == nil:
		reason = "unknown_phone"
	case account.Email != normalizeEmail(email):
		reason = "email_mismatch"
	case pkgauth.ComparePassword(account.PasswordHash, password) != nil:
		reason = "invalid_password"
	}

	if reason != "" {
		accountID := ""
		if account != nil {
			accountID = account.ID
		}
		s.logger.Info("login failed: invalid credentials", slog.String("reason", reason))
		s.auditLogger.LogAccountEvent("login", accountID, errors.New(reason))
		if s.delay != nil {
			s.delay.Wait(ctx, false)
		}
		return nil, models.ErrUnauthorized
	}

	s.auditLogger.LogAccountEvent("login", account.ID, nil)
	return account, nil
}
