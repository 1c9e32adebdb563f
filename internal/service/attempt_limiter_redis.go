package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

const (
	OTPLimiterPrefix    = "otp:rl:"
	SignInLimiterPrefix = "signin:rl:"
)

type redisAttemptLimiter struct {
	client  redisEvaler
	window  time.Duration
	max     int
	prefix  string
	timeout time.Duration
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisAttemptLimiter crea un limitador de ventana fija compartido entre
// instancias. Devuelve nil si client es nil.
func NewRedisAttemptLimiter(client *redis.Client, prefix string, window time.Duration, max int) AttemptLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisAttemptLimiter{
		client:  client,
		window:  window,
		max:     max,
		prefix:  prefix,
		timeout: 500 * time.Millisecond,
	}
}

// Allow falla abierto si Redis no responde.
func (l *redisAttemptLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisAllowScript, []string{l.prefix + normalizedKey}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
