package domain

import "time"

// DefaultUserName se usa cuando el proveedor de identidad no entrega un nombre.
const DefaultUserName = "User"

// User es el registro local de una identidad autenticada.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Account es la cuenta administrada por el proveedor de autenticacion.
type Account struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	DisplayName     string     `json:"display_name,omitempty"`
	PasswordHash    string     `json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	OtpCodeHash     string     `json:"-"`
	OtpExpiresAt    *time.Time `json:"otp_expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Identity es el resultado de resolver una sesion valida.
type Identity struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// IdentityFromAccount proyecta una cuenta del proveedor a una identidad.
func IdentityFromAccount(a Account) Identity {
	return Identity{
		ID:            a.ID,
		Email:         a.Email,
		Name:          a.DisplayName,
		EmailVerified: a.EmailVerifiedAt != nil,
		CreatedAt:     a.CreatedAt,
	}
}
