package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/database"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = `id, first_name, last_name, email, phone_number, password_hash, otp_secret,
	phone_verified_at, email_verified_at, created_at, updated_at`

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account

	err := scanner.Scan(
		&account.ID, &account.FirstName, &account.LastName, &account.Email, &account.PhoneNumber,
		&account.PasswordHash, &account.OTPSecret,
		&account.PhoneVerifiedAt, &account.EmailVerifiedAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &account, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO accounts (id, first_name, last_name, email, phone_number, password_hash, otp_secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + accountColumns

	created, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.FirstName, account.LastName, account.Email, account.PhoneNumber,
		account.PasswordHash, account.OTPSecret, account.CreatedAt, account.UpdatedAt,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE phone_number = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, phone))
}

// MarkPhoneVerified records the first successful OTP check.
func (r *AccountRepository) MarkPhoneVerified(ctx context.Context, id string) error {
	return r.mark(ctx, "phone_verified_at", id)
}

// MarkEmailVerified records the first successful email link click.
func (r *AccountRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.mark(ctx, "email_verified_at", id)
}

func (r *AccountRepository) mark(ctx context.Context, column, id string) error {
	query := fmt.Sprintf(`
		UPDATE accounts SET %[1]s = COALESCE(%[1]s, NOW()), updated_at = NOW()
		WHERE id = $1
	`, column)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
