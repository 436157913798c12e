package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	CreateFunc            func(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByIDFunc           func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc        func(ctx context.Context, email string) (*models.Account, error)
	GetByPhoneFunc        func(ctx context.Context, phone string) (*models.Account, error)
	MarkPhoneVerifiedFunc func(ctx context.Context, id string) error
	MarkEmailVerifiedFunc func(ctx context.Context, id string) error
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	account.ID = "acct_1"
	return account, nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByPhone(ctx context.Context, phone string) (*models.Account, error) {
	if m.GetByPhoneFunc != nil {
		return m.GetByPhoneFunc(ctx, phone)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) MarkPhoneVerified(ctx context.Context, id string) error {
	if m.MarkPhoneVerifiedFunc != nil {
		return m.MarkPhoneVerifiedFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) MarkEmailVerified(ctx context.Context, id string) error {
	if m.MarkEmailVerifiedFunc != nil {
		return m.MarkEmailVerifiedFunc(ctx, id)
	}
	return nil
}

// MockEmailVerificationRepository implements EmailVerificationRepository for testing
type MockEmailVerificationRepository struct {
	CreateFunc            func(ctx context.Context, accountID, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error)
	GetByTokenHashFunc    func(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error)
	MarkAsUsedFunc        func(ctx context.Context, id string) error
	DeleteByAccountIDFunc func(ctx context.Context, accountID string) error
	CleanupExpiredFunc    func(ctx context.Context) (int64, error)
}

func (m *MockEmailVerificationRepository) Create(ctx context.Context, accountID, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, accountID, tokenHash, email, expiresAt)
	}
	return &models.EmailVerificationToken{ID: "token_1", AccountID: accountID, TokenHash: tokenHash, Email: email, ExpiresAt: expiresAt}, nil
}

func (m *MockEmailVerificationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockEmailVerificationRepository) MarkAsUsed(ctx context.Context, id string) error {
	if m.MarkAsUsedFunc != nil {
		return m.MarkAsUsedFunc(ctx, id)
	}
	return nil
}

func (m *MockEmailVerificationRepository) DeleteByAccountID(ctx context.Context, accountID string) error {
	if m.DeleteByAccountIDFunc != nil {
		return m.DeleteByAccountIDFunc(ctx, accountID)
	}
	return nil
}

func (m *MockEmailVerificationRepository) CleanupExpired(ctx context.Context) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx)
	}
	return 0, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendVerificationEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

// MockSMSSender implements SMSSender and records what it was asked to send
type MockSMSSender struct {
	SendSMSFunc func(ctx context.Context, to, message string) error

	mu   sync.Mutex
	sent []string
}

func (m *MockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	m.mu.Lock()
	m.sent = append(m.sent, message)
	m.mu.Unlock()
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(ctx, to, message)
	}
	return nil
}

// Sent returns the messages passed to SendSMS, in order.
func (m *MockSMSSender) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// MockCodeDispatcher implements CodeDispatcher for testing
type MockCodeDispatcher struct {
	DispatchFunc  func(ctx context.Context, account *models.Account) error
	NewSecretFunc func(accountName string) (string, error)
}

func (m *MockCodeDispatcher) Dispatch(ctx context.Context, account *models.Account) error {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, account)
	}
	return nil
}

func (m *MockCodeDispatcher) NewSecret(accountName string) (string, error) {
	if m.NewSecretFunc != nil {
		return m.NewSecretFunc(accountName)
	}
	return "JBSWY3DPEHPK3PXP", nil
}

// MockFailureDelay records calls to Wait
type MockFailureDelay struct {
	Calls []bool
}

func (m *MockFailureDelay) Wait(_ context.Context, success bool) {
	m.Calls = append(m.Calls, success)
}

// MockSNSPublisher implements SNSPublisher for testing
type MockSNSPublisher struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSPublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

// MockSESSender implements SESSender for testing
type MockSESSender struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESSender) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}
