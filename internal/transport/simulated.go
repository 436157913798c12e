package transport

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/alumni-onboard/internal/models"
	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
)

// Simulated succeeds at every operation. Latency is owned by the step
// controllers, so its calls return immediately.
type Simulated struct {
	logger *slog.Logger
}

// NewSimulated creates a Transport with no backend behind it.
func NewSimulated(logger *slog.Logger) *Simulated {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulated{logger: logger}
}

func (s *Simulated) SubmitCredentials(ctx context.Context, mode models.AuthMode, form models.AuthForm) error {
	s.logger.Debug("simulated credential submit",
		slog.String("mode", string(mode)),
		slog.String("email", pkglogger.SanitizedEmail(form.Email)))
	return ctx.Err()
}

func (s *Simulated) SendOTP(ctx context.Context, phone string) error {
	s.logger.Debug("simulated otp send", slog.String("phone", pkglogger.SanitizedPhone(phone)))
	return ctx.Err()
}

func (s *Simulated) VerifyOTP(ctx context.Context, phone, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Simulated) SendVerificationEmail(ctx context.Context, email string) error {
	s.logger.Debug("simulated verification email", slog.String("email", pkglogger.SanitizedEmail(email)))
	return ctx.Err()
}

func (s *Simulated) CheckEmailVerified(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Simulated) GrantPermission(ctx context.Context, id models.PermissionID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}
