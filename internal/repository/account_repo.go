package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"todo-app/internal/domain"
)

// ErrDuplicate indica una violacion de clave unica.
var ErrDuplicate = errors.New("duplicate key")

// AccountRepository define la persistencia de cuentas del proveedor de auth.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error
	VerifyEmail(ctx context.Context, id string, verifiedAt time.Time) error
	UpdateDisplayName(ctx context.Context, id, name string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

const accountColumns = `id, email, display_name, password_hash, email_verified_at,
		otp_code_hash, otp_expires_at, created_at, updated_at`

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO auth_accounts (id, email, display_name, password_hash, email_verified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		account.EmailVerifiedAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (r *PgAccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM auth_accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM auth_accounts WHERE email = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, email))
}

func (r *PgAccountRepository) UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	const query = `
		UPDATE auth_accounts
		SET otp_code_hash = $2, otp_expires_at = $3, updated_at = now()
		WHERE id = $1
	`
	return execAffectingOne(ctx, r.pool, query, id, otpHash, otpExpiresAt)
}

func (r *PgAccountRepository) VerifyEmail(ctx context.Context, id string, verifiedAt time.Time) error {
	const query = `
		UPDATE auth_accounts
		SET email_verified_at = $2, otp_code_hash = '', otp_expires_at = NULL, updated_at = $2
		WHERE id = $1
	`
	return execAffectingOne(ctx, r.pool, query, id, verifiedAt)
}

func (r *PgAccountRepository) UpdateDisplayName(ctx context.Context, id, name string, updatedAt time.Time) error {
	const query = `
		UPDATE auth_accounts
		SET display_name = $2, updated_at = $3
		WHERE id = $1
	`
	return execAffectingOne(ctx, r.pool, query, id, name, updatedAt)
}

// Delete elimina la cuenta; las sesiones en Postgres caen en cascada.
func (r *PgAccountRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM auth_accounts WHERE id = $1`
	return execAffectingOne(ctx, r.pool, query, id)
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.PasswordHash,
		&a.EmailVerifiedAt,
		&a.OtpCodeHash,
		&a.OtpExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func execAffectingOne(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) error {
	tag, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
