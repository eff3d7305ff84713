package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

func Validate(cfg *Config) error {
	var errs []error

	// Server validation
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}
	if cfg.Server.PublicURL != "" {
		u, err := url.Parse(cfg.Server.PublicURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("server.public_url is not a valid URL: %w", err))
		} else if u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.public_url must be an absolute URL"))
		}
	}

	// Allowed origins validation
	for i, origin := range cfg.Server.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.allowed_origins[%d] %q is not a valid URL with scheme", i, origin))
		}
	}

	// TLS validation
	switch cfg.Server.TLS.Mode {
	case "", "off":
		// no additional validation needed
	case "auto":
		if cfg.Server.TLS.Auto.Domain == "" {
			errs = append(errs, fmt.Errorf("server.tls.auto.domain is required when tls mode is auto"))
		}
		if cfg.Server.TLS.Auto.CacheDir == "" {
			errs = append(errs, fmt.Errorf("server.tls.auto.cache_dir is required when tls mode is auto"))
		}
	case "manual":
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.cert_file is required when tls mode is manual"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.key_file is required when tls mode is manual"))
		}
	default:
		errs = append(errs, fmt.Errorf("server.tls.mode must be off, auto, or manual"))
	}

	// Database validation
	if cfg.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}

	// Log validation
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error"))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}

	// Share links cannot be built without the secret.
	if cfg.Share.Secret == "" {
		errs = append(errs, fmt.Errorf("share.secret is required (set PROMPTFOLIO_SHARE_SECRET)"))
	}

	// Preview validation
	if cfg.Preview.CacheTTL < time.Second {
		errs = append(errs, fmt.Errorf("preview.cache_ttl must be at least 1s"))
	}
	if cfg.Preview.FetchTimeout < 100*time.Millisecond || cfg.Preview.FetchTimeout > 30*time.Second {
		errs = append(errs, fmt.Errorf("preview.fetch_timeout must be between 100ms and 30s"))
	}
	if cfg.Preview.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("preview.max_entries must not be negative"))
	}

	// Rate limit validation (only when enabled)
	if cfg.RateLimit.Enabled {
		for _, ep := range []struct {
			name string
			cfg  RateLimitEndpoint
		}{
			{"rate_limit.preview", cfg.RateLimit.Preview},
		} {
			if ep.cfg.Limit < 1 {
				errs = append(errs, fmt.Errorf("%s.limit must be at least 1", ep.name))
			}
			if ep.cfg.Window < time.Second {
				errs = append(errs, fmt.Errorf("%s.window must be at least 1s", ep.name))
			}
		}
	}

	// Telemetry validation (only when enabled)
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Endpoint == "" {
			errs = append(errs, fmt.Errorf("telemetry.endpoint is required when telemetry is enabled"))
		}
		if cfg.Telemetry.Protocol != "http" && cfg.Telemetry.Protocol != "grpc" {
			errs = append(errs, fmt.Errorf("telemetry.protocol must be http or grpc"))
		}
		if cfg.Telemetry.ServiceName == "" {
			errs = append(errs, fmt.Errorf("telemetry.service_name is required when telemetry is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
