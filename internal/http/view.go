package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"todo-app/internal/domain"
)

// ViewMode es la presentacion de la lista en la pagina principal.
type ViewMode string

const (
	ViewGrid  ViewMode = "grid"
	ViewFocus ViewMode = "focus"

	viewCookieName = "view"
)

// ParseViewMode devuelve el modo y si el valor era reconocido.
func ParseViewMode(raw string) (ViewMode, bool) {
	switch ViewMode(raw) {
	case ViewGrid:
		return ViewGrid, true
	case ViewFocus:
		return ViewFocus, true
	default:
		return ViewGrid, false
	}
}

// resolveViewMode usa ?view= si es valido y lo persiste en cookie; si no,
// la cookie; por defecto grid.
func resolveViewMode(c *gin.Context, secure bool) ViewMode {
	if mode, ok := ParseViewMode(c.Query("view")); ok {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(viewCookieName, string(mode), 365*24*60*60, "/", "", secure, true)
		return mode
	}
	if raw, err := c.Cookie(viewCookieName); err == nil {
		if mode, ok := ParseViewMode(raw); ok {
			return mode
		}
	}
	return ViewGrid
}

// FocusTask elige la tarea del modo focus: la primera pendiente en el orden
// de la lista, o la mas reciente si todas estan completas. nil si no hay tareas.
func FocusTask(tasks []domain.Task) *domain.Task {
	for i := range tasks {
		if !tasks[i].Completed {
			return &tasks[i]
		}
	}
	if len(tasks) > 0 {
		return &tasks[0]
	}
	return nil
}
