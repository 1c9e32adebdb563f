package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"todo-app/internal/config"
	"todo-app/internal/db"
	"todo-app/internal/email"
	apihttp "todo-app/internal/http"
	"todo-app/internal/metrics"
	"todo-app/internal/repository"
	"todo-app/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.MigrateOnStart {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			logger.Fatal("migrate on start", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	accountRepo := repository.NewPgAccountRepository(pool)
	userRepo := repository.NewPgUserRepository(pool)
	taskRepo := repository.NewPgTaskRepository(pool)
	pgSessions := repository.NewPgSessionRepository(pool)

	redisClient := connectRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		sessionStore  service.SessionStore
		otpLimiter    service.AttemptLimiter
		signInLimiter service.AttemptLimiter
		sweepers      []func()
	)
	if redisClient != nil {
		sessionStore = service.NewRedisSessionStore(redisClient)
		otpLimiter = service.NewRedisAttemptLimiter(redisClient, service.OTPLimiterPrefix, 10*time.Minute, cfg.OTPMaxPerWindow)
		signInLimiter = service.NewRedisAttemptLimiter(redisClient, service.SignInLimiterPrefix, 15*time.Minute, 10)
		logger.Info("using redis session store")
	} else {
		sessionStore = pgSessions
		otpWindow := service.NewWindowLimiter(10*time.Minute, cfg.OTPMaxPerWindow)
		signInWindow := service.NewWindowLimiter(15*time.Minute, 10)
		otpLimiter = otpWindow
		signInLimiter = signInWindow
		sweepers = append(sweepers, otpWindow.Cleanup, signInWindow.Cleanup)
		logger.Info("using postgres session store")
	}

	emailSender := newEmailSender(cfg, logger)

	tokens := service.NewJWTService(cfg.SessionSecret, time.Duration(cfg.SessionTTLHours)*time.Hour, sessionStore)
	accountSvc := service.NewAccountService(logger, accountRepo, emailSender, otpLimiter, signInLimiter).WithSessions(tokens)
	userSvc := service.NewUserService(logger, userRepo)
	taskSvc := service.NewTaskService(logger, taskRepo, collector)
	guard := service.NewSessionGuard(tokens, accountSvc)

	cookies := apihttp.CookieConfig{Secure: cfg.CookieSecure}
	authLimiter := apihttp.NewIPRateLimiter(cfg.AuthRatePerMin, cfg.AuthRateBurst)

	router, err := apihttp.NewRouter(logger, apihttp.RouterDeps{
		Collector:   collector,
		Gatherer:    registry,
		Sessions:    apihttp.NewSessionMiddleware(logger, guard, userSvc),
		AuthLimiter: authLimiter,
		Auth:        apihttp.NewAuthHandler(logger, accountSvc, tokens, collector, cookies),
		Tasks:       apihttp.NewTaskHandler(logger, taskSvc, cookies),
		Account:     apihttp.NewAccountHandler(logger, accountSvc, userSvc, collector),
		Health:      healthHandler(pool, redisClient),
	})
	if err != nil {
		logger.Fatal("router init", zap.Error(err))
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	sweepers = append(sweepers, authLimiter.Cleanup)
	go runEvery(bgCtx, 5*time.Minute, func() {
		for _, sweep := range sweepers {
			sweep()
		}
	})
	if redisClient == nil {
		go runEvery(bgCtx, time.Hour, func() {
			n, err := pgSessions.DeleteExpired(bgCtx)
			if err != nil {
				logger.Warn("delete expired sessions failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("expired sessions deleted", zap.Int64("count", n))
			}
		})
	}

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// connectRedis devuelve nil si Redis no esta configurado o no responde.
func connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed, falling back to postgres", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

func newEmailSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err == nil {
			return sender
		}
		logger.Warn("smtp sender init failed", zap.Error(err))
	}
	if cfg.IsDevelopment() {
		logger.Warn("smtp not configured, verification codes will be logged")
		return email.NewLogSender(logger)
	}
	return email.NewDisabledSender("email sender not configured")
}

func healthHandler(pool *pgxpool.Pool, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, pool); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "database": "unreachable"})
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "redis": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn()
		case <-ctx.Done():
			return
		}
	}
}
