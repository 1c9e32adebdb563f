package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"todo-app/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios locales.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	CreateIfNotExists(ctx context.Context, user domain.User) error
	UpdateName(ctx context.Context, id, name string, updatedAt time.Time) error
	SetEmailVerified(ctx context.Context, id string, verified bool, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, email, name, email_verified, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}

// CreateIfNotExists inserta el usuario si su id no existe. Un email ya usado
// por otro id devuelve el error de unicidad.
func (r *PgUserRepository) CreateIfNotExists(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, email, name, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

func (r *PgUserRepository) UpdateName(ctx context.Context, id, name string, updatedAt time.Time) error {
	const query = `
		UPDATE users
		SET name = $2, updated_at = $3
		WHERE id = $1
	`
	return execAffectingOne(ctx, r.pool, query, id, name, updatedAt)
}

func (r *PgUserRepository) SetEmailVerified(ctx context.Context, id string, verified bool, updatedAt time.Time) error {
	const query = `
		UPDATE users
		SET email_verified = $2, updated_at = $3
		WHERE id = $1
	`
	return execAffectingOne(ctx, r.pool, query, id, verified, updatedAt)
}

// Delete elimina el usuario; sus tareas se eliminan en cascada.
func (r *PgUserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
