package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	JWTSecret string `env:"JWT_SECRET, required"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	Auth   AuthConfig
	Gate   GateConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Notify NotifyConfig
}

type AuthConfig struct {
	TokenTTL               time.Duration `env:"AUTH_TOKEN_TTL,                 default=24h"`
	BcryptCost             int           `env:"AUTH_BCRYPT_COST,               default=10"`
	MinPasswordLength      int           `env:"AUTH_MIN_PASSWORD_LENGTH,       default=8"`
	VerificationTTL        time.Duration `env:"AUTH_VERIFICATION_TTL,          default=48h"`
	RevokeOnPasswordChange bool          `env:"AUTH_REVOKE_ON_PASSWORD_CHANGE, default=true"`
	CookieName             string        `env:"AUTH_COOKIE_NAME,               default=token"`
	CookieSecure           bool          `env:"AUTH_COOKIE_SECURE,             default=false"`

	BootstrapName     string `env:"BOOTSTRAP_ADMIN_NAME,     default=Administrator"`
	BootstrapEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL,    default=admin@crm.local"`
	BootstrapPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD, default=ChangeMe123!"`
}

type GateConfig struct {
	LoginPath      string   `env:"GATE_LOGIN_PATH,      default=/login"`
	LandingPath    string   `env:"GATE_LANDING_PATH,    default=/dashboard"`
	MemberPrefixes []string `env:"GATE_MEMBER_PREFIXES, default=/dashboard,/leads,/expenses,/projects,/site-visits,/profile"`
	AdminPrefixes  []string `env:"GATE_ADMIN_PREFIXES,  default=/admin,/users"`
}

type MongoConfig struct {
	URI              string        `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database         string        `env:"MONGO_DB,            default=crm_backoffice"`
	MaxPoolSize      uint64        `env:"MONGO_MAX_POOL_SIZE, default=50"`
	SessionRetention time.Duration `env:"SESSION_RETENTION,   default=168h"`
}

// RedisConfig points at the revocation cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type NotifyConfig struct {
	Workers       int    `env:"NOTIFY_WORKERS,         default=4"`
	VerifyBaseURL string `env:"NOTIFY_VERIFY_BASE_URL, default=http://localhost:8080/auth/verify"`
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through l, which lets tests supply a map.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	return &cfg, nil
}
