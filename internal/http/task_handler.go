package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todo-app/internal/service"
)

// TaskHandler sirve la pagina principal, las acciones de formulario y la API
// JSON usada por el script del navegador.
type TaskHandler struct {
	logger  *zap.Logger
	tasks   *service.TaskService
	cookies CookieConfig
}

func NewTaskHandler(logger *zap.Logger, tasks *service.TaskService, cookies CookieConfig) *TaskHandler {
	return &TaskHandler{logger: logger, tasks: tasks, cookies: cookies}
}

// Home maneja GET /.
func (h *TaskHandler) Home(c *gin.Context) {
	identity, _ := GetIdentity(c)
	view := resolveViewMode(c, h.cookies.Secure)

	tasks, err := h.tasks.List(c.Request.Context(), identity.ID)
	if err != nil {
		h.logger.Error("list tasks failed", zap.Error(err), zap.String("user_id", identity.ID))
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"Title":   "Something went wrong",
			"Message": "We could not load your tasks. Please try again.",
		})
		return
	}

	c.HTML(http.StatusOK, "home.html", gin.H{
		"Title":    "My Tasks",
		"Identity": identity,
		"Tasks":    tasks,
		"View":     string(view),
		"Focus":    FocusTask(tasks),
		"Error":    homeErrorMessage(c.Query("error")),
	})
}

// CreateForm maneja POST /todos.
func (h *TaskHandler) CreateForm(c *gin.Context) {
	identity, _ := GetIdentity(c)
	if _, _, err := h.tasks.Create(c.Request.Context(), identity.ID, c.PostForm("task")); err != nil {
		h.logger.Error("create task failed", zap.Error(err), zap.String("user_id", identity.ID))
		c.Redirect(http.StatusSeeOther, "/?error=create")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// ToggleForm maneja POST /todos/:id/toggle. El campo completed es el estado
// que el cliente veia antes del cambio.
func (h *TaskHandler) ToggleForm(c *gin.Context) {
	identity, _ := GetIdentity(c)
	current, err := strconv.ParseBool(c.PostForm("completed"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/?error=toggle")
		return
	}
	if _, err := h.tasks.Toggle(c.Request.Context(), identity.ID, c.Param("id"), current); err != nil {
		h.logger.Error("toggle task failed", zap.Error(err), zap.String("user_id", identity.ID))
		c.Redirect(http.StatusSeeOther, "/?error=toggle")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// DeleteForm maneja POST /todos/:id/delete.
func (h *TaskHandler) DeleteForm(c *gin.Context) {
	identity, _ := GetIdentity(c)
	if err := h.tasks.Delete(c.Request.Context(), identity.ID, c.Param("id")); err != nil {
		h.logger.Error("delete task failed", zap.Error(err), zap.String("user_id", identity.ID))
		c.Redirect(http.StatusSeeOther, "/?error=delete")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// ListAPI maneja GET /api/todos.
func (h *TaskHandler) ListAPI(c *gin.Context) {
	identity, _ := GetIdentity(c)
	tasks, err := h.tasks.List(c.Request.Context(), identity.ID)
	if err != nil {
		h.logger.Error("list tasks failed", zap.Error(err), zap.String("user_id", identity.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CreateAPI maneja POST /api/todos.
func (h *TaskHandler) CreateAPI(c *gin.Context) {
	identity, _ := GetIdentity(c)
	var req struct {
		Task string `json:"task"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	task, created, err := h.tasks.Create(c.Request.Context(), identity.ID, req.Task)
	if err != nil {
		h.logger.Error("create task failed", zap.Error(err), zap.String("user_id", identity.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create task"})
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"created": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": true, "task": task})
}

// ToggleAPI maneja PATCH /api/todos/:id con {"completed": <estado actual>}.
func (h *TaskHandler) ToggleAPI(c *gin.Context) {
	identity, _ := GetIdentity(c)
	var req struct {
		Completed *bool `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Completed == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	changed, err := h.tasks.Toggle(c.Request.Context(), identity.ID, c.Param("id"), *req.Completed)
	if err != nil {
		h.logger.Error("toggle task failed", zap.Error(err), zap.String("user_id", identity.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// DeleteAPI maneja DELETE /api/todos/:id. Responde 204 aunque la tarea no
// exista o sea de otro usuario.
func (h *TaskHandler) DeleteAPI(c *gin.Context) {
	identity, _ := GetIdentity(c)
	if err := h.tasks.Delete(c.Request.Context(), identity.ID, c.Param("id")); err != nil {
		h.logger.Error("delete task failed", zap.Error(err), zap.String("user_id", identity.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete task"})
		return
	}
	c.Status(http.StatusNoContent)
}

func homeErrorMessage(code string) string {
	switch code {
	case "create":
		return "Could not add the task. Please try again."
	case "toggle":
		return "Could not update the task. Please try again."
	case "delete":
		return "Could not delete the task. Please try again."
	default:
		return ""
	}
}
