package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kotoba/internal/config"
	"go.uber.org/zap"
)

// New builds the backend named by cfg.Backend. An unreachable redis server or an
// unopenable sqlite file disables caching (Noop) instead of failing startup.
func New(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Backend) {
	case "redis":
		r, err := NewRedis(ctx, RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			return Noop{}, nil
		}
		return r, nil
	case "sqlite":
		s, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Warn("sqlite cache unavailable, caching disabled", zap.String("path", cfg.SQLitePath), zap.Error(err))
			return Noop{}, nil
		}
		return s, nil
	case "memory", "":
		return NewMemory(cfg.MemorySize, cfg.TTL), nil
	case "none", "off":
		return Noop{}, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
