package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"todo-app/internal/domain"
	"todo-app/internal/repository"
)

// UserService mantiene el registro de usuarios del almacen de la aplicacion.
type UserService struct {
	logger *zap.Logger
	repo   repository.UserRepository
	now    func() time.Time
}

var ErrUserNotFound = errors.New("user not found")

func NewUserService(logger *zap.Logger, repo repository.UserRepository) *UserService {
	return &UserService{
		logger: logger,
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// EnsureUserExists crea el usuario la primera vez que se ve una identidad
// autenticada. Es idempotente: llamadas concurrentes producen un solo registro
// y nunca modifican uno existente.
func (s *UserService) EnsureUserExists(ctx context.Context, identity domain.Identity) error {
	if strings.TrimSpace(identity.ID) == "" {
		return fmt.Errorf("ensure user: empty identity id")
	}

	_, err := s.repo.GetByID(ctx, identity.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup user: %w", err)
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = domain.DefaultUserName
	}
	createdAt := identity.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	user := domain.User{
		ID:            identity.ID,
		Email:         identity.Email,
		Name:          name,
		EmailVerified: true,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := s.repo.CreateIfNotExists(ctx, user); err != nil {
		return fmt.Errorf("provision user: %w", err)
	}
	s.logger.Info("user provisioned", zap.String("user_id", user.ID))
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateName replica el cambio de nombre hecho en la cuenta.
func (s *UserService) UpdateName(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	if err := s.repo.UpdateName(ctx, id, name, s.now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *UserService) MarkEmailVerified(ctx context.Context, id string) error {
	if err := s.repo.SetEmailVerified(ctx, id, true, s.now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// DeleteUser borra el usuario; sus tareas caen por ON DELETE CASCADE. Un
// usuario inexistente no es error.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}
