package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"todo-app/internal/domain"
)

// TaskRepository define la persistencia de tareas. Toda operacion filtra por
// el dueño de la tarea.
type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error)
	SetCompleted(ctx context.Context, ownerID, id string, completed bool) (bool, error)
	Delete(ctx context.Context, ownerID, id string) (bool, error)
}

// PgTaskRepository implementa TaskRepository usando pgxpool.
type PgTaskRepository struct {
	pool *pgxpool.Pool
}

func NewPgTaskRepository(pool *pgxpool.Pool) *PgTaskRepository {
	return &PgTaskRepository{pool: pool}
}

func (r *PgTaskRepository) Create(ctx context.Context, task domain.Task) error {
	const query = `
		INSERT INTO tasks (id, task, completed, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Task,
		task.Completed,
		task.UserID,
		task.CreatedAt,
	)
	return err
}

func (r *PgTaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	const query = `
		SELECT id::text, task, completed, user_id, created_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.Task, &t.Completed, &t.UserID, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SetCompleted actualiza el estado solo si id y dueño coinciden. Devuelve
// false cuando ninguna fila fue afectada.
func (r *PgTaskRepository) SetCompleted(ctx context.Context, ownerID, id string, completed bool) (bool, error) {
	const query = `
		UPDATE tasks
		SET completed = $3
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, ownerID, completed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgTaskRepository) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	const query = `
		DELETE FROM tasks
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
