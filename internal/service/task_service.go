package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"todo-app/internal/domain"
	"todo-app/internal/repository"
)

// TaskRecorder recibe el resultado de cada operacion sobre tareas.
type TaskRecorder interface {
	RecordTaskOperation(operation, result string)
}

type nopTaskRecorder struct{}

func (nopTaskRecorder) RecordTaskOperation(string, string) {}

// TaskService implementa el ciclo de vida de las tareas. Todas las operaciones
// reciben el dueño de forma explicita y nunca tocan tareas de otro usuario.
type TaskService struct {
	logger   *zap.Logger
	repo     repository.TaskRepository
	recorder TaskRecorder
	now      func() time.Time
}

func NewTaskService(logger *zap.Logger, repo repository.TaskRepository, recorder TaskRecorder) *TaskService {
	if recorder == nil {
		recorder = nopTaskRecorder{}
	}
	return &TaskService{
		logger:   logger,
		repo:     repo,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List devuelve las tareas del dueño, mas recientes primero.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	tasks, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.recorder.RecordTaskOperation("list", "error")
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	s.recorder.RecordTaskOperation("list", "ok")
	return tasks, nil
}

// Create inserta una tarea nueva. Texto vacio tras trim no inserta nada y
// devuelve created=false.
func (s *TaskService) Create(ctx context.Context, ownerID, text string) (domain.Task, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.recorder.RecordTaskOperation("create", "noop")
		return domain.Task{}, false, nil
	}

	task := domain.Task{
		ID:        uuid.NewString(),
		Task:      text,
		Completed: false,
		UserID:    ownerID,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, task); err != nil {
		s.recorder.RecordTaskOperation("create", "error")
		return domain.Task{}, false, fmt.Errorf("create task: %w", err)
	}
	s.recorder.RecordTaskOperation("create", "ok")
	return task, true, nil
}

// Toggle guarda completed = !current. Devuelve false si la tarea no existe o
// pertenece a otro usuario.
func (s *TaskService) Toggle(ctx context.Context, ownerID, id string, current bool) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		s.recorder.RecordTaskOperation("toggle", "noop")
		return false, nil
	}
	changed, err := s.repo.SetCompleted(ctx, ownerID, id, !current)
	if err != nil {
		s.recorder.RecordTaskOperation("toggle", "error")
		return false, fmt.Errorf("toggle task: %w", err)
	}
	if !changed {
		s.recorder.RecordTaskOperation("toggle", "noop")
		return false, nil
	}
	s.recorder.RecordTaskOperation("toggle", "ok")
	return true, nil
}

// Delete borra la tarea del dueño. Que no exista no es error.
func (s *TaskService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		s.recorder.RecordTaskOperation("delete", "noop")
		return nil
	}
	deleted, err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		s.recorder.RecordTaskOperation("delete", "error")
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		s.logger.Debug("delete task: no matching row", zap.String("task_id", id))
		s.recorder.RecordTaskOperation("delete", "noop")
		return nil
	}
	s.recorder.RecordTaskOperation("delete", "ok")
	return nil
}
