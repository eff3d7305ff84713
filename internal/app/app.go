package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/promptfolio/api/internal/catalog"
	"github.com/promptfolio/api/internal/config"
	"github.com/promptfolio/api/internal/database"
	"github.com/promptfolio/api/internal/handler"
	"github.com/promptfolio/api/internal/linkpreview"
	"github.com/promptfolio/api/internal/ratelimit"
	"github.com/promptfolio/api/internal/server"
	"github.com/promptfolio/api/internal/shareid"
)

const limiterCleanupInterval = 10 * time.Minute

type App struct {
	Config      *config.Config
	DB          *database.DB
	Server      *server.Server
	Codec       *shareid.Codec
	Previews    *linkpreview.Cache
	RateLimiter *ratelimit.Limiter
}

func New(cfg *config.Config) (*App, error) {
	// The secret is required; without it no share link can be built.
	codec, err := shareid.New(cfg.Share.Secret)
	if err != nil {
		return nil, fmt.Errorf("share id codec: %w", err)
	}

	// Open database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	previews := linkpreview.NewCache(
		linkpreview.NewHTTPScraper(cfg.Preview.UserAgent, cfg.Preview.FetchTimeout),
		linkpreview.WithTTL(cfg.Preview.CacheTTL),
		linkpreview.WithTimeout(cfg.Preview.FetchTimeout),
		linkpreview.WithMaxEntries(cfg.Preview.MaxEntries),
	)

	h := handler.New(handler.Dependencies{
		Codec:     codec,
		Catalog:   catalog.NewRepository(db.DB),
		Previews:  previews,
		PublicURL: cfg.Server.PublicURL,
	})

	// Build rate limiter (nil if disabled)
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter([]ratelimit.Rule{
			{Method: "POST", Path: "/api/link-preview", Limit: cfg.RateLimit.Preview.Limit, Window: cfg.RateLimit.Preview.Window},
		})
	}

	router := server.NewRouter(h, limiter, cfg.Server.AllowedOrigins)

	// Build TLS options
	tlsOpts := server.TLSOptions{
		Mode:     cfg.Server.TLS.Mode,
		CertFile: cfg.Server.TLS.CertFile,
		KeyFile:  cfg.Server.TLS.KeyFile,
		Domain:   cfg.Server.TLS.Auto.Domain,
		Email:    cfg.Server.TLS.Auto.Email,
		CacheDir: cfg.Server.TLS.Auto.CacheDir,
	}
	if tlsOpts.Mode == "auto" {
		if err := os.MkdirAll(tlsOpts.CacheDir, 0700); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating TLS cache directory: %w", err)
		}
	}

	srv := server.New(cfg.Server.Host, cfg.Server.Port, router, tlsOpts)

	return &App{
		Config:      cfg,
		DB:          db,
		Server:      srv,
		Codec:       codec,
		Previews:    previews,
		RateLimiter: limiter,
	}, nil
}

// Start serves until ctx is cancelled and the server has drained.
func (a *App) Start(ctx context.Context) error {
	// Start rate limiter cleanup
	if a.RateLimiter != nil {
		go func() {
			ticker := time.NewTicker(limiterCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					a.RateLimiter.Cleanup()
				}
			}
		}()
	}

	slog.Info("starting promptfolio backend",
		"addr", a.Server.Addr(),
		"database", a.Config.Database.Path,
		"public_url", a.Config.Server.PublicURL,
		"tls", a.Server.TLSMode(),
		"preview_ttl", a.Config.Preview.CacheTTL,
		"rate_limit", a.RateLimiter != nil,
	)

	return a.Server.Run(ctx)
}

// Close releases resources held after the server has stopped.
func (a *App) Close() error {
	slog.Info("closing database", "cached_previews", a.Previews.Len())
	return a.DB.Close()
}
