package app

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/campuspulse-backend/internal/data/db"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/http/middleware"
	"github.com/yungbote/campuspulse-backend/internal/observability"
	"github.com/yungbote/campuspulse-backend/internal/platform/envutil"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
	"github.com/yungbote/campuspulse-backend/internal/services"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type AnalysisConfig struct {
	Provider string
	Timeout  time.Duration

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

type Config struct {
	Port           string
	LogMode        string
	JWTSecretKey   string
	AccessTokenTTL time.Duration
	AllowedOrigins []string

	StoreBackend string
	SQL          db.Config
	Redis        RedisConfig
	SyncLockTTL  time.Duration

	Analysis AnalysisConfig

	Scale          pulse.Scale
	StudentKeySalt string
	SessionIdleTTL time.Duration
	Credentials    []services.Credential

	Otel observability.OtelConfig
}

// fileConfig is the optional CONFIG_FILE document. Anything set in the
// environment wins over it.
type fileConfig struct {
	Credentials    []services.Credential `yaml:"credentials"`
	Scale          *pulse.Scale          `yaml:"scale"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	Store          struct {
		Backend    string `yaml:"backend"`
		SQLitePath string `yaml:"sqlite_path"`
		KeyPrefix  string `yaml:"key_prefix"`
	} `yaml:"store"`
	Analysis struct {
		Provider       string `yaml:"provider"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Gemini         struct {
			Model   string `yaml:"model"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"gemini"`
		OpenAI struct {
			Model   string `yaml:"model"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"openai"`
	} `yaml:"analysis"`
}

func readConfigFile(path string) (fileConfig, error) {
	var fc fileConfig
	path = strings.TrimSpace(path)
	if path == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

func LoadConfig(log *logger.Logger) (Config, error) {
	fc, err := readConfigFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	scale := pulse.DefaultScale()
	if fc.Scale != nil {
		scale = *fc.Scale
	}
	scale.Step = envutil.Float("INTAKE_RATING_STEP", scale.Step)
	if err := scale.Check(); err != nil {
		return Config{}, err
	}

	origins := middleware.DefaultAllowedOrigins
	if len(fc.AllowedOrigins) > 0 {
		origins = fc.AllowedOrigins
	}
	if raw := envutil.String("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		origins = splitList(raw)
	}

	fileTimeout := 30 * time.Second
	if fc.Analysis.TimeoutSeconds > 0 {
		fileTimeout = time.Duration(fc.Analysis.TimeoutSeconds) * time.Second
	}

	cfg := Config{
		Port:           envutil.String("PORT", "8080"),
		LogMode:        envutil.String("LOG_MODE", "development"),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		AccessTokenTTL: envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),
		AllowedOrigins: origins,

		StoreBackend: strings.ToLower(envutil.String("STORE_BACKEND", orDefault(fc.Store.Backend, StoreSQLite))),
		SQL: db.Config{
			SQLitePath:       envutil.String("SQLITE_PATH", orDefault(fc.Store.SQLitePath, "campuspulse.db")),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "campuspulse"),
		},
		Redis: RedisConfig{
			Addr:      envutil.String("REDIS_ADDR", ""),
			Password:  envutil.String("REDIS_PASSWORD", ""),
			DB:        envutil.Int("REDIS_DB", 0),
			KeyPrefix: envutil.String("REDIS_KEY_PREFIX", orDefault(fc.Store.KeyPrefix, "campuspulse:")),
		},
		SyncLockTTL: envutil.Seconds("SYNC_LOCK_TTL_SECONDS", 30*time.Second),

		Analysis: AnalysisConfig{
			Provider:      strings.ToLower(envutil.String("ANALYSIS_PROVIDER", orDefault(fc.Analysis.Provider, ProviderGemini))),
			Timeout:       envutil.Seconds("ANALYSIS_TIMEOUT_SECONDS", fileTimeout),
			GeminiAPIKey:  envutil.String("GEMINI_API_KEY", ""),
			GeminiModel:   envutil.String("GEMINI_MODEL", fc.Analysis.Gemini.Model),
			GeminiBaseURL: envutil.String("GEMINI_BASE_URL", fc.Analysis.Gemini.BaseURL),
			OpenAIAPIKey:  envutil.String("OPENAI_API_KEY", ""),
			OpenAIModel:   envutil.String("OPENAI_MODEL", fc.Analysis.OpenAI.Model),
			OpenAIBaseURL: envutil.String("OPENAI_BASE_URL", fc.Analysis.OpenAI.BaseURL),
		},

		Scale:          scale,
		StudentKeySalt: envutil.String("STUDENT_KEY_SALT", ""),
		SessionIdleTTL: envutil.Seconds("SESSION_IDLE_TTL_SECONDS", services.DefaultSessionIdleTTL),
		Credentials:    fc.Credentials,

		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", observability.DefaultServiceName),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1),
		},
	}
	cfg.SQL.Driver = cfg.StoreBackend

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.StudentKeySalt == "" {
		log.Warn("STUDENT_KEY_SALT not set; student identities are unsalted hashes")
	}
	if len(cfg.Credentials) == 0 {
		log.Warn("no institutional credentials configured; campus endpoints are unreachable")
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecretKey == "" {
		return fmt.Errorf("missing JWT_SECRET_KEY")
	}
	switch c.StoreBackend {
	case StoreSQLite, StorePostgres, StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.Analysis.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported ANALYSIS_PROVIDER %q", c.Analysis.Provider)
	}
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envLogMode() string {
	return envutil.String("LOG_MODE", "development")
}
