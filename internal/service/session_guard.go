package service

import (
	"context"
	"errors"
	"fmt"

	"todo-app/internal/domain"
)

// ErrUnauthenticated indica que la peticion no tiene una sesion valida.
var ErrUnauthenticated = errors.New("unauthenticated")

type sessionTokens interface {
	Parse(token string) (Claims, error)
	IsActive(ctx context.Context, claims Claims) (bool, error)
}

type accountLookup interface {
	GetAccount(ctx context.Context, id string) (domain.Account, error)
}

// SessionGuard resuelve un token de sesion a la identidad autenticada.
type SessionGuard struct {
	tokens   sessionTokens
	accounts accountLookup
}

func NewSessionGuard(tokens *JWTService, accounts *AccountService) *SessionGuard {
	return &SessionGuard{tokens: tokens, accounts: accounts}
}

// GetSession valida el token, comprueba que la sesion no fue revocada y carga
// la cuenta. Los fallos del store se propagan; el resto es ErrUnauthenticated.
func (g *SessionGuard) GetSession(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, ErrUnauthenticated
	}
	claims, err := g.tokens.Parse(token)
	if err != nil {
		return domain.Identity{}, ErrUnauthenticated
	}

	active, err := g.tokens.IsActive(ctx, claims)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("check session: %w", err)
	}
	if !active {
		return domain.Identity{}, ErrUnauthenticated
	}

	account, err := g.accounts.GetAccount(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return domain.Identity{}, ErrUnauthenticated
		}
		return domain.Identity{}, fmt.Errorf("load session account: %w", err)
	}
	return domain.IdentityFromAccount(account), nil
}
