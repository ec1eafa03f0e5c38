package config

import "time"

// RateLimit configures the Redis token bucket guarding the /auth routes.
// Capacity tokens are available per key; RefillTokens are added every
// RefillInterval.  TTL bounds how long an idle bucket survives in Redis.
type RateLimit struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" env-default:"20"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" env-default:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" env-default:"3s"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL" env-default:"10m"`
	KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" env-default:"ip_route"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX" env-default:"rl"`
	Debug          bool          `env:"RATE_LIMIT_DEBUG" env-default:"false"`
}

// normalize clamps values that would make the bucket script misbehave.
func (r *RateLimit) normalize() {
	if r.Capacity < 1 {
		r.Capacity = 1
	}
	if r.RefillTokens < 1 {
		r.RefillTokens = 1
	}
	if r.RefillInterval <= 0 {
		r.RefillInterval = time.Second
	}
	if minTTL := 5 * r.RefillInterval; r.TTL < minTTL {
		r.TTL = minTTL
	}
}
