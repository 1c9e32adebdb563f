package http

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"todo-app/internal/domain"
	"todo-app/internal/metrics"
	"todo-app/internal/service"
)

const (
	sessionCookieName = "session_token"
	identityKey       = "auth_identity"
	signInPath        = "/auth/sign-in"
)

type sessionResolver interface {
	GetSession(ctx context.Context, token string) (domain.Identity, error)
}

type userProvisioner interface {
	EnsureUserExists(ctx context.Context, identity domain.Identity) error
}

// SessionMiddleware resuelve la sesion de cada peticion y aprovisiona el
// usuario local antes de llegar a los handlers.
type SessionMiddleware struct {
	logger *zap.Logger
	guard  sessionResolver
	users  userProvisioner
}

func NewSessionMiddleware(logger *zap.Logger, guard *service.SessionGuard, users *service.UserService) *SessionMiddleware {
	return &SessionMiddleware{logger: logger, guard: guard, users: users}
}

// RequirePage protege paginas y acciones de formulario: sin sesion redirige
// a /auth/sign-in con 303.
func (m *SessionMiddleware) RequirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := m.resolve(c)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				clearSessionCookie(c)
				c.Redirect(http.StatusSeeOther, signInPath)
				c.Abort()
				return
			}
			m.logger.Error("resolve session failed", zap.Error(err))
			c.HTML(http.StatusServiceUnavailable, "error.html", gin.H{
				"Title":   "Service unavailable",
				"Message": "We could not verify your session. Please try again.",
			})
			c.Abort()
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireAPI protege /api: sin sesion responde 401 JSON.
func (m *SessionMiddleware) RequireAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := m.resolve(c)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
				return
			}
			m.logger.Error("resolve session failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// Optional carga la identidad si existe sin exigirla. Se usa en las paginas
// de autenticacion.
func (m *SessionMiddleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.Next()
			return
		}
		identity, err := m.guard.GetSession(c.Request.Context(), token)
		if err == nil {
			c.Set(identityKey, identity)
		}
		c.Next()
	}
}

func (m *SessionMiddleware) resolve(c *gin.Context) (domain.Identity, error) {
	token := sessionToken(c)
	if token == "" {
		return domain.Identity{}, service.ErrUnauthenticated
	}
	identity, err := m.guard.GetSession(c.Request.Context(), token)
	if err != nil {
		return domain.Identity{}, err
	}
	if err := m.users.EnsureUserExists(c.Request.Context(), identity); err != nil {
		return domain.Identity{}, err
	}
	return identity, nil
}

// GetIdentity obtiene la identidad autenticada desde el contexto.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

// CookieConfig controla los atributos de la cookie de sesion.
type CookieConfig struct {
	Secure bool
}

func setSessionCookie(c *gin.Context, cfg CookieConfig, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, maxAge, "/", "", cfg.Secure, true)
}

func clearSessionCookie(c *gin.Context) {
	if _, err := c.Cookie(sessionCookieName); err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", false, true)
}

// zapLoggerMiddleware registra cada peticion con zap y en las metricas HTTP.
func zapLoggerMiddleware(logger *zap.Logger, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		if collector != nil {
			collector.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), latency)
		}
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// securityHeadersMiddleware agrega cabeceras de seguridad a todas las respuestas.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Next()
	}
}

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// IPRateLimiter limita los envios de formularios de autenticacion por IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*ipLimiter
	idleTTL  time.Duration
}

// NewIPRateLimiter crea un limitador de perMinute peticiones por minuto por IP.
func NewIPRateLimiter(perMinute, burst int) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
		idleTTL:  10 * time.Minute,
	}
}

func (l *IPRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastAccess = now
	return entry.limiter.AllowN(now, 1)
}

// Cleanup elimina limitadores sin actividad reciente.
func (l *IPRateLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastAccess) > l.idleTTL {
			delete(l.limiters, ip)
		}
	}
}

// Middleware responde 429 cuando la IP supera su cuota.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.allow(c.ClientIP()) {
			c.Next()
			return
		}
		retryAfter := int(math.Ceil(1.0 / float64(l.limit)))
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	}
}
