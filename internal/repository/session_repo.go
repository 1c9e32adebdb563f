package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"todo-app/internal/domain"
)

// PgSessionRepository guarda sesiones del proveedor en Postgres. Se usa cuando
// Redis no esta disponible.
type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Store(ctx context.Context, session domain.Session) error {
	if strings.TrimSpace(session.ID) == "" {
		return nil
	}
	const query = `
		INSERT INTO auth_sessions (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

// Exists reporta si la sesion existe y no expiro.
func (r *PgSessionRepository) Exists(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM auth_sessions
			WHERE id = $1 AND expires_at > now()
		)
	`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *PgSessionRepository) Revoke(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	const query = `DELETE FROM auth_sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *PgSessionRepository) RevokeAll(ctx context.Context, userID string) error {
	const query = `DELETE FROM auth_sessions WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// DeleteExpired purga sesiones vencidas y devuelve cuantas se eliminaron.
func (r *PgSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM auth_sessions WHERE expires_at <= now()`
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
