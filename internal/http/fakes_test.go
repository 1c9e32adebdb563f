package http

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"todo-app/internal/domain"
	"todo-app/internal/repository"
)

type memAccountRepo struct {
	mu      sync.Mutex
	byID    map[string]domain.Account
	byEmail map[string]string
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{byID: map[string]domain.Account{}, byEmail: map[string]string{}}
}

func (m *memAccountRepo) Create(_ context.Context, a domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[a.Email]; ok {
		return repository.ErrDuplicate
	}
	m.byID[a.ID] = a
	m.byEmail[a.Email] = a.ID
	return nil
}

func (m *memAccountRepo) GetByID(_ context.Context, id string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *memAccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	m.mu.Lock()
	id, ok := m.byEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *memAccountRepo) update(id string, fn func(*domain.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(&a)
	m.byID[id] = a
	return nil
}

func (m *memAccountRepo) UpdateOTP(_ context.Context, id, hash string, expiresAt time.Time) error {
	return m.update(id, func(a *domain.Account) {
		a.OtpCodeHash = hash
		a.OtpExpiresAt = &expiresAt
	})
}

func (m *memAccountRepo) VerifyEmail(_ context.Context, id string, verifiedAt time.Time) error {
	return m.update(id, func(a *domain.Account) {
		a.EmailVerifiedAt = &verifiedAt
		a.OtpCodeHash = ""
		a.OtpExpiresAt = nil
	})
}

func (m *memAccountRepo) UpdateDisplayName(_ context.Context, id, name string, updatedAt time.Time) error {
	return m.update(id, func(a *domain.Account) {
		a.DisplayName = name
		a.UpdatedAt = updatedAt
	})
}

func (m *memAccountRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	delete(m.byEmail, a.Email)
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
	tasks *memTaskRepo
	err   error
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.User{}, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memUserRepo) CreateIfNotExists(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[u.ID]; ok {
		return nil
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return errors.New("duplicate key value violates unique constraint \"users_email_key\"")
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) UpdateName(_ context.Context, id, name string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Name = name
	u.UpdatedAt = updatedAt
	m.users[id] = u
	return nil
}

func (m *memUserRepo) SetEmailVerified(_ context.Context, id string, verified bool, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.EmailVerified = verified
	u.UpdatedAt = updatedAt
	m.users[id] = u
	return nil
}

// Delete reproduce ON DELETE CASCADE sobre tasks.
func (m *memUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.users, id)
	m.mu.Unlock()
	if m.tasks != nil {
		m.tasks.deleteOwner(id)
	}
	return nil
}

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
	err   error
}

func (m *memTaskRepo) Create(_ context.Context, t domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tasks[t.ID] = t
	return nil
}

func (m *memTaskRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Task, 0)
	for _, t := range m.tasks {
		if t.UserID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memTaskRepo) SetCompleted(_ context.Context, ownerID, id string, completed bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	t, ok := m.tasks[id]
	if !ok || t.UserID != ownerID {
		return false, nil
	}
	t.Completed = completed
	m.tasks[id] = t
	return true, nil
}

func (m *memTaskRepo) Delete(_ context.Context, ownerID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	t, ok := m.tasks[id]
	if !ok || t.UserID != ownerID {
		return false, nil
	}
	delete(m.tasks, id)
	return true, nil
}

func (m *memTaskRepo) deleteOwner(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tasks {
		if t.UserID == ownerID {
			delete(m.tasks, id)
		}
	}
}

func (m *memTaskRepo) countFor(ownerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if t.UserID == ownerID {
			n++
		}
	}
	return n
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	err      error
}

func (m *memSessionStore) Store(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.sessions[id]
	return ok, nil
}

func (m *memSessionStore) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return m.err
}

func (m *memSessionStore) RevokeAll(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return m.err
}

func (m *memSessionStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type captureSender struct {
	mu       sync.Mutex
	lastCode string
}

func (s *captureSender) SendVerificationOTP(_ context.Context, _ string, code string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCode = code
	return nil
}

func (s *captureSender) code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCode
}
