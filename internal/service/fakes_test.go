package service

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

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	err      error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]domain.Session)}
}

func (m *memSessionStore) Store(_ context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sessions[session.ID] = session
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

type mockAccountRepo struct {
	byID    map[string]domain.Account
	byEmail map[string]string
	getErr  error
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func (m *mockAccountRepo) Create(_ context.Context, account domain.Account) error {
	if _, ok := m.byEmail[account.Email]; ok {
		return repository.ErrDuplicate
	}
	m.byID[account.ID] = account
	m.byEmail[account.Email] = account.ID
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id string) (domain.Account, error) {
	if m.getErr != nil {
		return domain.Account{}, m.getErr
	}
	account, ok := m.byID[id]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return account, nil
}

func (m *mockAccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockAccountRepo) UpdateOTP(_ context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	account, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.OtpCodeHash = otpHash
	account.OtpExpiresAt = &otpExpiresAt
	m.byID[id] = account
	return nil
}

func (m *mockAccountRepo) VerifyEmail(_ context.Context, id string, verifiedAt time.Time) error {
	account, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.EmailVerifiedAt = &verifiedAt
	account.OtpCodeHash = ""
	account.OtpExpiresAt = nil
	m.byID[id] = account
	return nil
}

func (m *mockAccountRepo) UpdateDisplayName(_ context.Context, id, name string, updatedAt time.Time) error {
	account, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.DisplayName = name
	account.UpdatedAt = updatedAt
	m.byID[id] = account
	return nil
}

func (m *mockAccountRepo) Delete(_ context.Context, id string) error {
	account, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	delete(m.byEmail, account.Email)
	return nil
}

type mockEmailSender struct {
	lastTo      string
	lastCode    string
	lastExpires time.Time
	calls       int
	err         error
}

func (m *mockEmailSender) SendVerificationOTP(_ context.Context, toEmail string, code string, expiresAt time.Time) error {
	m.calls++
	m.lastTo = toEmail
	m.lastCode = code
	m.lastExpires = expiresAt
	return m.err
}

type mockLimiter struct {
	allow bool
	keys  []string
}

func (m *mockLimiter) Allow(_ context.Context, key string) bool {
	m.keys = append(m.keys, key)
	return m.allow
}

// memUserRepo reproduce INSERT ... ON CONFLICT DO NOTHING.
type memUserRepo struct {
	mu      sync.Mutex
	users   map[string]domain.User
	inserts int
	err     error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
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

// errUsersEmailTaken imita la violacion de users.email UNIQUE.
var errUsersEmailTaken = errors.New(`duplicate key value violates unique constraint "users_email_key"`)

func (m *memUserRepo) CreateIfNotExists(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[user.ID]; ok {
		return nil
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return errUsersEmailTaken
		}
	}
	m.users[user.ID] = user
	m.inserts++
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

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

// memTaskRepo aplica los mismos predicados (id AND user_id) que PgTaskRepository.
type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
	err   error
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]domain.Task)}
}

func (m *memTaskRepo) Create(_ context.Context, task domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tasks[task.ID] = task
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
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
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

func (m *memTaskRepo) get(id string) (domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

func (m *memTaskRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

type recordedOp struct {
	operation string
	result    string
}

type recordingTaskRecorder struct {
	ops []recordedOp
}

func (r *recordingTaskRecorder) RecordTaskOperation(operation, result string) {
	r.ops = append(r.ops, recordedOp{operation: operation, result: result})
}
