package domain

import "time"

// Task es un elemento de la lista de pendientes de un usuario.
type Task struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Completed bool      `json:"completed"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
