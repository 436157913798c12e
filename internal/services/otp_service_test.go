package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var otpEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const testSecret = "JBSWY3DPEHPK3PXP"

type otpFixture struct {
	svc      *OTPService
	clk      *clock.FakeClock
	sms      *MockSMSSender
	account  *models.Account
	verified []string
}

func newOTPFixture(t *testing.T) *otpFixture {
	t.Helper()
	f := &otpFixture{
		clk: clock.Fake(otpEpoch),
		sms: &MockSMSSender{},
		account: &models.Account{
			ID:          "acct_1",
			PhoneNumber: "+2348012345678",
			OTPSecret:   testSecret,
		},
	}
	repo := &MockAccountRepository{
		GetByPhoneFunc: func(ctx context.Context, phone string) (*models.Account, error) {
			if phone == f.account.PhoneNumber {
				return f.account, nil
			}
			return nil, models.ErrNotFound
		},
		MarkPhoneVerifiedFunc: func(ctx context.Context, id string) error {
			f.verified = append(f.verified, id)
			return nil
		},
	}
	logger := slog.Default()
	f.svc = NewOTPService(repo, f.sms, f.clk, DefaultOTPConfig, logger, pkglogger.NewAuditLogger(logger))
	return f
}

func (f *otpFixture) currentCode(t *testing.T) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(testSecret, f.clk.Now(), f.svc.validateOpts())
	require.NoError(t, err)
	return code
}

func TestOTPService_NewSecret(t *testing.T) {
	f := newOTPFixture(t)
	secret, err := f.svc.NewSecret("ada@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)

	code, err := totp.GenerateCodeCustom(secret, otpEpoch, f.svc.validateOpts())
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

func TestOTPService_SendCode_TextsCurrentCode(t *testing.T) {
	f := newOTPFixture(t)

	require.NoError(t, f.svc.SendCode(context.Background(), "08012345678"))

	sent := f.sms.Sent()
	require.Len(t, sent, 1)
	assert.True(t, strings.Contains(sent[0], f.currentCode(t)), sent[0])
}

func TestOTPService_SendCode_UnknownPhoneIsSilent(t *testing.T) {
	f := newOTPFixture(t)

	require.NoError(t, f.svc.SendCode(context.Background(), "09011111111"))
	assert.Empty(t, f.sms.Sent())
}

func TestOTPService_Dispatch_Cooldown(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Dispatch(ctx, f.account))

	f.clk.Advance(59 * time.Second)
	assert.ErrorIs(t, f.svc.Dispatch(ctx, f.account), models.ErrResendNotYetAllowed)

	f.clk.Advance(time.Second)
	assert.NoError(t, f.svc.Dispatch(ctx, f.account))
	assert.Len(t, f.sms.Sent(), 2)
}

func TestOTPService_Dispatch_FailureClearsCooldown(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	f.sms.SendSMSFunc = func(ctx context.Context, to, message string) error {
		return errors.New("throttled by carrier")
	}
	err := f.svc.Dispatch(ctx, f.account)
	assert.ErrorIs(t, err, models.ErrOperationFailure)

	f.sms.SendSMSFunc = nil
	assert.NoError(t, f.svc.Dispatch(ctx, f.account))
}

func TestOTPService_VerifyCode(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	ok, err := f.svc.VerifyCode(ctx, "08012345678", f.currentCode(t))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"acct_1"}, f.verified)
}

func TestOTPService_VerifyCode_PreviousPeriodAccepted(t *testing.T) {
	f := newOTPFixture(t)
	code := f.currentCode(t)

	f.clk.Advance(DefaultOTPConfig.Period)
	ok, err := f.svc.VerifyCode(context.Background(), "08012345678", code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTPService_VerifyCode_Rejections(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()
	code := f.currentCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	ok, err := f.svc.VerifyCode(ctx, "08012345678", wrong)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.VerifyCode(ctx, "09011111111", code)
	require.NoError(t, err)
	assert.False(t, ok)

	f.clk.Advance(3 * DefaultOTPConfig.Period)
	ok, err = f.svc.VerifyCode(ctx, "08012345678", code)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, f.verified)
}

func TestOTPService_VerifyCode_AlreadyVerifiedPhone(t *testing.T) {
	f := newOTPFixture(t)
	at := otpEpoch
	f.account.PhoneVerifiedAt = &at

	ok, err := f.svc.VerifyCode(context.Background(), "+2348012345678", f.currentCode(t))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, f.verified)
}
