package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"todo-app/internal/domain"
)

const sessionTokenType = "session"

// JWTService emite y valida tokens de sesion. Cada token lleva un jti que se
// registra en el SessionStore; revocar el jti invalida el token.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	store  SessionStore
	now    func() time.Time
}

// SessionToken es un token firmado con su sesion asociada.
type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"-"`
}

type Claims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

func NewJWTService(secret string, ttl time.Duration, store SessionStore) *JWTService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "todo-app",
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// TTL devuelve la duracion de las sesiones emitidas.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Issue firma un token para la cuenta y registra la sesion.
func (s *JWTService) Issue(ctx context.Context, account domain.Account) (SessionToken, error) {
	if len(s.secret) == 0 || s.store == nil {
		return SessionToken{}, ErrJWTInvalid
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()
	claims := Claims{
		UserID:    account.ID,
		Email:     account.Email,
		TokenType: sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return SessionToken{}, err
	}
	if err := s.store.Store(ctx, domain.Session{
		ID:        jti,
		UserID:    account.ID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, ExpiresAt: expiresAt, SessionID: jti}, nil
}

// Parse valida firma, expiracion y forma de los claims. No consulta el store.
func (s *JWTService) Parse(token string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(token) == "" {
		return Claims{}, ErrJWTInvalid
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

// IsActive reporta si la sesion del token sigue registrada.
func (s *JWTService) IsActive(ctx context.Context, claims Claims) (bool, error) {
	if s.store == nil {
		return false, ErrJWTInvalid
	}
	return s.store.Exists(ctx, claims.ID)
}

// Revoke invalida la sesion del token (sign-out). Tokens invalidos o ya
// revocados no producen error.
func (s *JWTService) Revoke(ctx context.Context, token string) error {
	claims, err := s.Parse(token)
	if err != nil {
		return nil
	}
	if s.store == nil {
		return ErrJWTInvalid
	}
	return s.store.Revoke(ctx, claims.ID)
}

// RevokeAll invalida todas las sesiones del usuario.
func (s *JWTService) RevokeAll(ctx context.Context, userID string) error {
	if s.store == nil {
		return ErrJWTInvalid
	}
	return s.store.RevokeAll(ctx, userID)
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if claims.TokenType != sessionTokenType {
		return false
	}
	if strings.TrimSpace(claims.ID) == "" {
		return false
	}
	if strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
