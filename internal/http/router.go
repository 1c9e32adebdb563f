package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"todo-app/internal/metrics"
)

// RouterDeps agrupa lo que NewRouter necesita para montar las rutas.
type RouterDeps struct {
	Collector   *metrics.Collector
	Gatherer    prometheus.Gatherer
	Sessions    *SessionMiddleware
	AuthLimiter *IPRateLimiter
	Auth        *AuthHandler
	Tasks       *TaskHandler
	Account     *AccountHandler
	Health      gin.HandlerFunc
}

// NewRouter configura el router de Gin con middlewares, plantillas y rutas.
func NewRouter(logger *zap.Logger, deps RouterDeps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger, deps.Collector), gin.Recovery(), securityHeadersMiddleware())

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	static, err := staticFiles()
	if err != nil {
		return nil, fmt.Errorf("load static files: %w", err)
	}
	r.StaticFS("/static", http.FS(static))

	health := deps.Health
	if health == nil {
		health = func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	}
	r.GET("/healthz", health)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}

	auth := r.Group("/auth")
	auth.GET("/sign-up", deps.Sessions.Optional(), deps.Auth.SignUpPage)
	auth.POST("/sign-up", deps.AuthLimiter.Middleware(), deps.Auth.SignUp)
	auth.GET("/sign-in", deps.Sessions.Optional(), deps.Auth.SignInPage)
	auth.POST("/sign-in", deps.AuthLimiter.Middleware(), deps.Auth.SignIn)
	auth.POST("/sign-out", deps.Auth.SignOut)

	pages := r.Group("/", deps.Sessions.RequirePage())
	pages.GET("", deps.Tasks.Home)
	pages.POST("todos", deps.Tasks.CreateForm)
	pages.POST("todos/:id/toggle", deps.Tasks.ToggleForm)
	pages.POST("todos/:id/delete", deps.Tasks.DeleteForm)

	account := r.Group("/account", deps.Sessions.RequirePage())
	account.GET("/settings", deps.Account.Settings)
	account.POST("/profile", deps.Account.UpdateProfile)
	account.POST("/verify/send", deps.Account.SendVerification)
	account.POST("/verify", deps.Account.Verify)
	account.POST("/delete", deps.Account.DeleteAccount)

	api := r.Group("/api", deps.Sessions.RequireAPI())
	api.GET("/todos", deps.Tasks.ListAPI)
	api.POST("/todos", deps.Tasks.CreateAPI)
	api.PATCH("/todos/:id", deps.Tasks.ToggleAPI)
	api.DELETE("/todos/:id", deps.Tasks.DeleteAPI)

	return r, nil
}
