package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/campuspulse-backend/internal/data/db"
	"github.com/yungbote/campuspulse-backend/internal/data/kv"
	"github.com/yungbote/campuspulse-backend/internal/platform/gemini"
	"github.com/yungbote/campuspulse-backend/internal/platform/llm"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
	"github.com/yungbote/campuspulse-backend/internal/platform/openai"
)

type Storage struct {
	Store  kv.Store
	Locker kv.Locker
	close  []func() error
}

func (s Storage) Close() error {
	var first error
	for i := len(s.close) - 1; i >= 0; i-- {
		if err := s.close[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newRedisClient(ctx context.Context, cfg RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// wireStorage opens the configured KV backend. A SQL or memory store still
// takes its locks in Redis when REDIS_ADDR is set, so several server
// processes can share one database.
func wireStorage(ctx context.Context, log *logger.Logger, cfg Config) (Storage, error) {
	log.Info("Wiring storage...", "backend", cfg.StoreBackend)
	var st Storage

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		c, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			return Storage{}, err
		}
		rdb = c
		st.close = append(st.close, rdb.Close)
		st.Locker = kv.NewRedisLocker(rdb, cfg.Redis.KeyPrefix, cfg.SyncLockTTL)
	} else {
		st.Locker = kv.NewLocalLocker()
	}

	switch cfg.StoreBackend {
	case StoreRedis:
		if rdb == nil {
			return Storage{}, fmt.Errorf("STORE_BACKEND=redis requires REDIS_ADDR")
		}
		st.Store = kv.NewRedisStore(rdb, cfg.Redis.KeyPrefix, log)
	case StoreSQLite, StorePostgres:
		sqlSvc, err := db.NewSQLService(log, cfg.SQL)
		if err != nil {
			_ = st.Close()
			return Storage{}, fmt.Errorf("init sql store: %w", err)
		}
		if err := sqlSvc.AutoMigrateAll(); err != nil {
			_ = st.Close()
			return Storage{}, fmt.Errorf("sql automigrate: %w", err)
		}
		if sqlDB, err := sqlSvc.DB().DB(); err == nil {
			st.close = append(st.close, sqlDB.Close)
		}
		st.Store = kv.NewGormStore(sqlSvc.DB(), log)
	case StoreMemory:
		log.Warn("memory store selected; entries are lost on restart")
		st.Store = kv.NewMemoryStore()
	default:
		_ = st.Close()
		return Storage{}, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}
	return st, nil
}

// wireGenerator returns nil when the selected provider has no API key. The
// classifier then always falls back and campus analysis reports a transport
// failure.
func wireGenerator(ctx context.Context, log *logger.Logger, cfg AnalysisConfig) (llm.Generator, error) {
	log.Info("Wiring analysis provider...", "provider", cfg.Provider)
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			log.Warn("GEMINI_API_KEY not set; analysis disabled")
			return nil, nil
		}
		c, err := gemini.NewClient(ctx, log, gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		return c, nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			log.Warn("OPENAI_API_KEY not set; analysis disabled")
			return nil, nil
		}
		c, err := openai.NewClient(log, openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported ANALYSIS_PROVIDER %q", cfg.Provider)
}
