package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"todo-app/internal/domain"
	"todo-app/internal/email"
	"todo-app/internal/repository"
)

// AccountService es el proveedor de autenticacion: cuentas, credenciales y
// verificacion de email por OTP. Su almacenamiento es independiente del de la
// aplicacion.
type AccountService struct {
	logger        *zap.Logger
	accounts      repository.AccountRepository
	emailSender   email.Sender
	otpLimiter    AttemptLimiter
	signInLimiter AttemptLimiter
	sessions      SessionRevoker
	now           func() time.Time
}

// SessionRevoker invalida todas las sesiones de un usuario.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

func NewAccountService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	emailSender email.Sender,
	otpLimiter AttemptLimiter,
	signInLimiter AttemptLimiter,
) *AccountService {
	if otpLimiter == nil {
		otpLimiter = NewWindowLimiter(otpTTL, 3)
	}
	if signInLimiter == nil {
		signInLimiter = NewWindowLimiter(15*time.Minute, 10)
	}
	return &AccountService{
		logger:        logger,
		accounts:      accounts,
		emailSender:   emailSender,
		otpLimiter:    otpLimiter,
		signInLimiter: signInLimiter,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithSessions registra el revocador usado al eliminar cuentas.
func (s *AccountService) WithSessions(sessions SessionRevoker) *AccountService {
	s.sessions = sessions
	return s
}

type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOTPNotRequested    = errors.New("otp not requested")
	ErrOTPExpired         = errors.New("otp expired")
	ErrOTPInvalid         = errors.New("otp invalid")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrRateLimited        = errors.New("rate limited")
)

const (
	otpTTL            = 10 * time.Minute
	minPasswordLength = 8
	maxNameLength     = 100
)

// SignUp registra una cuenta nueva con email y contraseña.
func (s *AccountService) SignUp(ctx context.Context, input SignUpInput) (domain.Account, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.Account{}, ErrInvalidEmail
	}
	if len(input.Password) < minPasswordLength {
		return domain.Account{}, ErrWeakPassword
	}
	name := strings.TrimSpace(input.Name)
	if len(name) > maxNameLength {
		return domain.Account{}, ErrInvalidName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Account{}, err
	}

	now := s.now()
	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		DisplayName:  name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account created", zap.String("account_id", account.ID))
	return account, nil
}

// SignIn valida credenciales. Email desconocido y contraseña incorrecta
// devuelven el mismo error.
func (s *AccountService) SignIn(ctx context.Context, emailAddr, password string) (domain.Account, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.Account{}, ErrInvalidCredentials
	}
	if !s.signInLimiter.Allow(ctx, emailAddr) {
		return domain.Account{}, ErrRateLimited
	}

	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrInvalidCredentials
		}
		return domain.Account{}, fmt.Errorf("load account: %w", err)
	}
	if account.PasswordHash == "" {
		return domain.Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return domain.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// GetAccount carga una cuenta por id.
func (s *AccountService) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

// SendVerificationOTP genera y envia un codigo de verificacion de email.
func (s *AccountService) SendVerificationOTP(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}
	if !s.otpLimiter.Allow(ctx, emailAddr) {
		return ErrRateLimited
	}

	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("load account: %w", err)
	}

	code, hash, expiresAt, err := generateOTP(s.now())
	if err != nil {
		return err
	}
	if err := s.accounts.UpdateOTP(ctx, account.ID, hash, expiresAt); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if s.emailSender == nil {
		return ErrEmailSendFailure
	}
	if err := s.emailSender.SendVerificationOTP(ctx, emailAddr, code, expiresAt); err != nil {
		s.logger.Warn("send verification otp failed", zap.Error(err), zap.String("account_id", account.ID))
		return ErrEmailSendFailure
	}
	return nil
}

// VerifyEmail comprueba el codigo y marca el email como verificado.
func (s *AccountService) VerifyEmail(ctx context.Context, emailAddr, code string) (domain.Account, error) {
	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if emailAddr == "" {
		return domain.Account{}, ErrInvalidEmail
	}
	if !isValidOTPCode(code) {
		return domain.Account{}, ErrOTPInvalid
	}

	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("load account: %w", err)
	}

	if account.OtpCodeHash == "" || account.OtpExpiresAt == nil {
		return domain.Account{}, ErrOTPNotRequested
	}
	if s.now().After(*account.OtpExpiresAt) {
		return domain.Account{}, ErrOTPExpired
	}
	if !verifyOTP(code, account.OtpCodeHash) {
		return domain.Account{}, ErrOTPInvalid
	}

	verifiedAt := s.now()
	if err := s.accounts.VerifyEmail(ctx, account.ID, verifiedAt); err != nil {
		return domain.Account{}, fmt.Errorf("verify email: %w", err)
	}

	account.EmailVerifiedAt = &verifiedAt
	account.OtpCodeHash = ""
	account.OtpExpiresAt = nil
	return account, nil
}

// UpdateUser cambia el nombre visible de la cuenta.
func (s *AccountService) UpdateUser(ctx context.Context, id, name string) (domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return domain.Account{}, ErrInvalidName
	}
	now := s.now()
	if err := s.accounts.UpdateDisplayName(ctx, id, name, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("update account: %w", err)
	}
	return s.GetAccount(ctx, id)
}

// DeleteUser revoca las sesiones del usuario y elimina la cuenta del proveedor.
func (s *AccountService) DeleteUser(ctx context.Context, id string) error {
	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, id); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}
	s.logger.Info("account deleted", zap.String("account_id", id))
	return nil
}

func generateOTP(now time.Time) (string, string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", time.Time{}, err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", time.Time{}, err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])

	return code, saltStr + ":" + hash, now.Add(otpTTL), nil
}

func verifyOTP(code, stored string) bool {
	saltStr, expectedHash, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])
	return subtle.ConstantTimeCompare([]byte(hash), []byte(expectedHash)) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
