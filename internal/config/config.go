package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv" // fills the Config struct from env tags
	"github.com/joho/godotenv"           // optional .env file for local runs
)

// Config holds all runtime configuration values.  Each group maps to a set
// of environment variables.  The struct is built once in main and handed to
// the components that need it; nothing reads the environment afterwards.
type Config struct {
	App       App
	DB        DB
	JWT       JWT
	Mail      Mail
	Frontend  Frontend
	Redis     Redis
	RateLimit RateLimit
	AMQP      AMQP
}

// App carries process level settings.
type App struct {
	Env        string `env:"APP_ENV" env-default:"local"`  // local | dev | prod | test
	Port       string `env:"APP_PORT" env-default:"8080"`  // HTTP port to listen on
	Version    string `env:"APP_VERSION" env-default:"1.0.0"`
	BcryptCost int    `env:"BCRYPT_COST" env-default:"10"` // bcrypt cost for password hashing
}

// DB holds the MySQL connection parameters.
type DB struct {
	User string `env:"DB_USER" env-default:"root"`
	Pass string `env:"DB_PASS"` // empty allowed
	Host string `env:"DB_HOST" env-default:"localhost"`
	Port string `env:"DB_PORT" env-default:"3306"`
	Name string `env:"DB_NAME" env-default:"finance_control"`
}

// JWT holds the secrets and lifetimes of both token kinds.  TTLs are seconds.
type JWT struct {
	Secret        string `env:"JWT_SECRET" env-required:"true"`
	TTL           int    `env:"JWT_TTL" env-default:"3600"`
	RefreshSecret string `env:"JWT_REFRESH_SECRET" env-required:"true"`
	RefreshTTL    int    `env:"JWT_REFRESH_TTL" env-default:"2592000"`
}

// AccessTTL returns the access token lifetime as a duration.
func (j JWT) AccessTTL() time.Duration { return time.Duration(j.TTL) * time.Second }

// RefreshLifetime returns the refresh token lifetime as a duration.
func (j JWT) RefreshLifetime() time.Duration { return time.Duration(j.RefreshTTL) * time.Second }

// Validate rejects secret and lifetime combinations the token service cannot
// work with.  The two secrets must differ so one cannot forge the other kind.
func (j JWT) Validate() error {
	if j.Secret == "" || j.RefreshSecret == "" {
		return errors.New("jwt secrets must not be empty")
	}
	if j.Secret == j.RefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if j.TTL <= 0 || j.RefreshTTL <= 0 {
		return errors.New("jwt ttls must be positive")
	}
	return nil
}

// Mail holds SMTP credentials.  An empty Host disables real delivery.
type Mail struct {
	Host     string `env:"MAIL_HOST"`
	Port     int    `env:"MAIL_PORT" env-default:"587"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	From     string `env:"MAIL_FROM" env-default:"no-reply@localhost"`
}

// Frontend holds the links rendered into mail templates.
type Frontend struct {
	URL         string `env:"FRONTEND_URL" env-default:"http://localhost/expegoo/"`
	ImagesURL   string `env:"FRONTEND_IMGS_URL" env-default:"http://localhost/expegoo/imgs/"`
	PasswordURL string `env:"FRONTEND_PASSWORD_URL" env-default:"http://localhost/expegoo/password/reset/?token="`
}

// Locals exposes the frontend links under the names the templates use.
func (f Frontend) Locals() map[string]any {
	return map[string]any{
		"frontend_url":      f.URL,
		"frontend_imgs":     f.ImagesURL,
		"frontend_password": f.PasswordURL,
	}
}

// AMQP configures the mail outbox.  An empty URL sends mail in-process.
type AMQP struct {
	URL       string `env:"RABBITMQ_URL"`
	MailQueue string `env:"MAIL_QUEUE" env-default:"mail.outbound"`
}

// Load reads an optional .env file, then fills and validates the Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.JWT.Validate(); err != nil {
		return nil, err
	}
	cfg.RateLimit.normalize()
	return &cfg, nil
}

// MustLoad is like Load but panics on failure.  It is meant for main.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
