package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort        string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv          string `env:"APP_ENV" envDefault:"production"`
	DatabaseURL     string `env:"DATABASE_URL,required,notEmpty"`
	MigrateOnStart  bool   `env:"MIGRATE_ON_START" envDefault:"false"`
	SessionSecret   string `env:"SESSION_SECRET,required,notEmpty"`
	SessionTTLHours int    `env:"SESSION_TTL_HOURS" envDefault:"168"`
	CookieSecure    bool   `env:"COOKIE_SECURE" envDefault:"true"`
	SMTPHost        string `env:"SMTP_HOST"`
	SMTPPort        int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser        string `env:"SMTP_USER"`
	SMTPPass        string `env:"SMTP_PASS"`
	SMTPFrom        string `env:"SMTP_FROM"`
	SMTPFromName    string `env:"SMTP_FROM_NAME" envDefault:"Tasks"`
	SMTPUseTLS      bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	OTPMaxPerWindow int    `env:"OTP_MAX_PER_WINDOW" envDefault:"3"`
	AuthRatePerMin  int    `env:"AUTH_RATE_PER_MINUTE" envDefault:"20"`
	AuthRateBurst   int    `env:"AUTH_RATE_BURST" envDefault:"10"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment indica si el servicio corre en modo desarrollo.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "local"
}
