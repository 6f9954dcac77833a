package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bold-client-go/config"
	"bold-client-go/internal/archive"
	"bold-client-go/internal/cache"
	"bold-client-go/internal/fetcher"
)

// OpenCache picks the payload cache: PostgreSQL when DATABASE_URL is set,
// a file cache when CACHE_DIR is set, memory otherwise. A PostgreSQL
// connection failure falls back to memory.
func OpenCache(ctx context.Context, cfg *config.Config) cache.Cache {
	if cfg.DatabaseURL != "" {
		pg, err := cache.NewPostgresCache(ctx, cfg.DatabaseURL)
		if err == nil {
			slog.Info("[BOLD] using PostgreSQL cache")
			go cleanExpired(ctx, pg)
			return pg
		}
		slog.Warn("[BOLD] failed to connect to PostgreSQL, using memory cache", "error", err)
		return cache.NewMemoryCache()
	}

	if cfg.CacheDir != "" {
		fc, err := cache.NewFileCache(cfg.CacheDir)
		if err == nil {
			slog.Info("[BOLD] using file cache", "dir", cfg.CacheDir)
			return fc
		}
		slog.Warn("[BOLD] failed to open file cache, using memory cache", "error", err)
	}

	slog.Info("[BOLD] using memory cache")
	return cache.NewMemoryCache()
}

func cleanExpired(ctx context.Context, pg *cache.PostgresCache) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n, err := pg.CleanExpired(ctx); err != nil {
				slog.Warn("[BOLD] cache cleanup failed", "error", err)
			} else if n > 0 {
				slog.Info("[BOLD] expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// OpenArchiver builds the trace archiver for ARCHIVE_BACKEND. It returns
// nil, nil when archiving is disabled.
func OpenArchiver(ctx context.Context, cfg *config.Config) (*archive.Archiver, error) {
	var store archive.Store

	switch cfg.ArchiveBackend {
	case "":
		return nil, nil
	case "local":
		local, err := archive.NewLocalStore(cfg.ArchiveDir)
		if err != nil {
			return nil, err
		}
		store = local
	case "s3":
		s3Store, err := archive.NewS3StoreFromEnv(ctx, cfg.AWSRegion, cfg.S3Endpoint, cfg.ArchiveBucket, cfg.ArchivePrefix)
		if err != nil {
			return nil, err
		}
		store = s3Store
	case "minio":
		minioStore, err := archive.DialMinIO(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL, cfg.ArchiveBucket, cfg.ArchivePrefix)
		if err != nil {
			return nil, err
		}
		store = minioStore
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}

	slog.Info("[BOLD] trace archives enabled", "backend", cfg.ArchiveBackend)
	return archive.NewArchiver(store), nil
}

// NewClient builds the BOLD HTTP client from cfg
func NewClient(cfg *config.Config) *fetcher.Client {
	return fetcher.NewClient(
		fetcher.WithBaseURL(cfg.BaseURL),
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)
}
