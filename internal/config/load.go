package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "PROMPTFOLIO_"

func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	defaults := Defaults()
	if err := k.Load(defaultsProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// 2. Load from config file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file: %w", err)
			}
		}
	} else {
		// Try default config paths
		for _, path := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
					return nil, fmt.Errorf("loading config file: %w", err)
				}
				break
			}
		}
	}

	// 3. Load from environment variables (PROMPTFOLIO_ prefix)
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper(k.Keys())), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	// 4. Load from CLI flags
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// 6. Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// envKeyMapper maps PROMPTFOLIO_RATE_LIMIT_PREVIEW_LIMIT to
// rate_limit.preview.limit. Underscores are ambiguous, so names are matched
// against the known keys first; unknown names split on every underscore.
func envKeyMapper(known []string) func(string) string {
	index := make(map[string]string, len(known))
	for _, key := range known {
		index[strings.ReplaceAll(key, ".", "_")] = key
	}
	return func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if key, ok := index[name]; ok {
			return key
		}
		return strings.ReplaceAll(name, "_", ".")
	}
}

type defaultsProviderStruct struct {
	defaults *Config
}

func defaultsProvider(defaults *Config) *defaultsProviderStruct {
	return &defaultsProviderStruct{defaults: defaults}
}

func (d *defaultsProviderStruct) ReadBytes() ([]byte, error) {
	return nil, nil
}

func (d *defaultsProviderStruct) Read() (map[string]interface{}, error) {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host":            d.defaults.Server.Host,
			"port":            d.defaults.Server.Port,
			"public_url":      d.defaults.Server.PublicURL,
			"allowed_origins": d.defaults.Server.AllowedOrigins,
			"tls": map[string]interface{}{
				"mode":      d.defaults.Server.TLS.Mode,
				"cert_file": d.defaults.Server.TLS.CertFile,
				"key_file":  d.defaults.Server.TLS.KeyFile,
				"auto": map[string]interface{}{
					"domain":    d.defaults.Server.TLS.Auto.Domain,
					"email":     d.defaults.Server.TLS.Auto.Email,
					"cache_dir": d.defaults.Server.TLS.Auto.CacheDir,
				},
			},
		},
		"database": map[string]interface{}{
			"path": d.defaults.Database.Path,
		},
		"log": map[string]interface{}{
			"level":  d.defaults.Log.Level,
			"format": d.defaults.Log.Format,
		},
		"share": map[string]interface{}{
			"secret": d.defaults.Share.Secret,
		},
		"preview": map[string]interface{}{
			"cache_ttl":     d.defaults.Preview.CacheTTL.String(),
			"fetch_timeout": d.defaults.Preview.FetchTimeout.String(),
			"user_agent":    d.defaults.Preview.UserAgent,
			"max_entries":   d.defaults.Preview.MaxEntries,
		},
		"rate_limit": map[string]interface{}{
			"enabled": d.defaults.RateLimit.Enabled,
			"preview": map[string]interface{}{
				"limit":  d.defaults.RateLimit.Preview.Limit,
				"window": d.defaults.RateLimit.Preview.Window.String(),
			},
		},
		"telemetry": map[string]interface{}{
			"enabled":      d.defaults.Telemetry.Enabled,
			"endpoint":     d.defaults.Telemetry.Endpoint,
			"protocol":     d.defaults.Telemetry.Protocol,
			"service_name": d.defaults.Telemetry.ServiceName,
		},
	}, nil
}

func SetupFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("promptfolio", pflag.ContinueOnError)
	flags.String("config", "", "Path to config file")
	flags.String("server.host", "", "Server host")
	flags.Int("server.port", 0, "Server port")
	flags.String("server.public_url", "", "Public URL used in share links")
	flags.StringSlice("server.allowed_origins", nil, "Allowed CORS origins")
	flags.String("server.tls.mode", "", "TLS mode: off, auto, or manual")
	flags.String("server.tls.cert_file", "", "TLS certificate file (manual mode)")
	flags.String("server.tls.key_file", "", "TLS key file (manual mode)")
	flags.String("server.tls.auto.domain", "", "Domain for automatic TLS (auto mode)")
	flags.String("server.tls.auto.email", "", "Contact email for Let's Encrypt (auto mode)")
	flags.String("server.tls.auto.cache_dir", "", "Certificate cache directory (auto mode)")
	flags.String("database.path", "", "Database path")
	flags.String("log.level", "", "Log level: debug, info, warn, error")
	flags.String("log.format", "", "Log format: text or json")
	flags.Duration("preview.cache_ttl", 0, "How long link previews are cached")
	flags.Duration("preview.fetch_timeout", 0, "Timeout for a single link preview fetch")
	flags.Int("preview.max_entries", 0, "Maximum cached link previews (0 = unbounded)")
	flags.Bool("rate_limit.enabled", false, "Enable rate limiting")
	flags.Bool("telemetry.enabled", false, "Enable OpenTelemetry export")
	flags.String("telemetry.endpoint", "", "OTLP endpoint URL")
	flags.String("telemetry.protocol", "", "OTLP protocol: http or grpc")
	return flags
}
