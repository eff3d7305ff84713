package config

import "time"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Share     ShareConfig     `koanf:"share"`
	Preview   PreviewConfig   `koanf:"preview"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Host           string    `koanf:"host"`
	Port           int       `koanf:"port"`
	PublicURL      string    `koanf:"public_url"`
	AllowedOrigins []string  `koanf:"allowed_origins"`
	TLS            TLSConfig `koanf:"tls"`
}

type TLSConfig struct {
	Mode     string        `koanf:"mode"`
	CertFile string        `koanf:"cert_file"`
	KeyFile  string        `koanf:"key_file"`
	Auto     TLSAutoConfig `koanf:"auto"`
}

type TLSAutoConfig struct {
	Domain   string `koanf:"domain"`
	Email    string `koanf:"email"`
	CacheDir string `koanf:"cache_dir"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ShareConfig holds the secret used to build share tokens. It has no default
// and must be supplied through PROMPTFOLIO_SHARE_SECRET or the config file.
type ShareConfig struct {
	Secret string `koanf:"secret"`
}

type PreviewConfig struct {
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	UserAgent    string        `koanf:"user_agent"`
	MaxEntries   int           `koanf:"max_entries"`
}

type RateLimitConfig struct {
	Enabled bool              `koanf:"enabled"`
	Preview RateLimitEndpoint `koanf:"preview"`
}

type RateLimitEndpoint struct {
	Limit  int           `koanf:"limit"`
	Window time.Duration `koanf:"window"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"`
	ServiceName string `koanf:"service_name"`
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			PublicURL:      "http://localhost:8080",
			AllowedOrigins: []string{},
			TLS: TLSConfig{
				Mode: "off",
				Auto: TLSAutoConfig{
					CacheDir: "./data/certs",
				},
			},
		},
		Database: DatabaseConfig{
			Path: "./data/promptfolio.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Preview: PreviewConfig{
			CacheTTL:     time.Hour,
			FetchTimeout: 3 * time.Second,
			UserAgent:    "PromptfolioBot/1.0 (+https://github.com/promptfolio/api; link preview)",
			MaxEntries:   0, // unbounded
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Preview: RateLimitEndpoint{Limit: 30, Window: time.Minute},
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Protocol:    "http",
			ServiceName: "promptfolio",
		},
	}
}
