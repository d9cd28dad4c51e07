package config

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the identity header sent with every plain HTTP request.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_3) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/56.0.2924.87 Safari/537.36"

// DefaultBrowserUserAgent is the network identity spoofed by the headless browser.
// It is not the same as DefaultUserAgent.
const DefaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/83.0.4103.53 Safari/537.36"

// MaxDownloadWorkers caps the download pool regardless of configuration.
const MaxDownloadWorkers = 8

// Credential holds the per-platform login material.
type Credential struct {
	Cookies string `mapstructure:"cookies"` // Netscape cookie file path
}

type Config struct {
	DownloadPath          string `mapstructure:"download_path"`
	Output                string `mapstructure:"output"`
	Language              string `mapstructure:"language"` // comma-separated codes or "all"
	Locale                string `mapstructure:"locale"`
	ProxyConnectionString string `mapstructure:"proxy_connection_string"`
	ClientTimeout         string `mapstructure:"client_timeout"` // Go duration string like "10s"
	UserAgent             string `mapstructure:"user_agent"`
	LogLevel              string `mapstructure:"log_level"`
	PayLimitPolicy        string `mapstructure:"pay_limit_policy"` // "skip" or "abort"

	Client struct {
		BrowserTLS bool `mapstructure:"browser_tls"`
	} `mapstructure:"client"`

	Retry struct {
		MaxRetries int    `mapstructure:"max_retries"`
		Backoff    string `mapstructure:"backoff"`
		MaxBackoff string `mapstructure:"max_backoff"`
	} `mapstructure:"retry"`

	Download struct {
		Workers int `mapstructure:"workers"`
	} `mapstructure:"download"`

	Browser struct {
		Headless        bool   `mapstructure:"headless"`
		UserAgent       string `mapstructure:"user_agent"`
		PageLoadTimeout string `mapstructure:"page_load_timeout"`
		BinPath         string `mapstructure:"bin_path"`
		PollInterval    string `mapstructure:"poll_interval"`
		MaxTicks        int    `mapstructure:"max_ticks"`
	} `mapstructure:"browser"`

	Cache struct {
		Provider      string `mapstructure:"provider"` // "memory", "redis" or empty to disable
		Size          int    `mapstructure:"size"`
		TTL           string `mapstructure:"ttl"`
		RedisAddress  string `mapstructure:"redis_address"`
		RedisPassword string `mapstructure:"redis_password"`
		RedisDB       int    `mapstructure:"redis_db"`
	} `mapstructure:"cache"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Address string `mapstructure:"address"`
		Port    int    `mapstructure:"port"`
		PushURL string `mapstructure:"push_url"`
	} `mapstructure:"metrics"`

	Sentry struct {
		DSN         string `mapstructure:"dsn"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"sentry"`

	WeTV struct {
		CKeyScript string `mapstructure:"ckey_script"`
	} `mapstructure:"wetv"`

	Credentials map[string]Credential `mapstructure:"credentials"`
}

var logger zerolog.Logger

func init() {
	// Console writer on stderr keeps stdout free for piping
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: false,
	}).With().Timestamp().Logger()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("download_path", "downloads")
	v.SetDefault("output", "")
	v.SetDefault("language", "")
	v.SetDefault("locale", "en")
	v.SetDefault("proxy_connection_string", "")
	v.SetDefault("client_timeout", "10s")
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("log_level", "info")
	v.SetDefault("pay_limit_policy", "skip")
	v.SetDefault("client.browser_tls", false)
	v.SetDefault("retry.max_retries", 5)
	v.SetDefault("retry.backoff", "5s")
	v.SetDefault("retry.max_backoff", "2m")
	v.SetDefault("download.workers", MaxDownloadWorkers)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", DefaultBrowserUserAgent)
	v.SetDefault("browser.page_load_timeout", "110s")
	v.SetDefault("browser.bin_path", "")
	v.SetDefault("browser.poll_interval", "1s")
	v.SetDefault("browser.max_ticks", 60)
	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.redis_address", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "localhost")
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.push_url", "")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("wetv.ckey_script", "")
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"download-path": "download_path",
	"output":        "output",
	"language":      "language",
	"locale":        "locale",
	"proxy":         "proxy_connection_string",
	"log-level":     "log_level",
	"headless":      "browser.headless",
}

// LoadConfig reads config.yaml (from "." or "./config", or the explicit path given
// through the "config" flag), then the APP_ prefixed environment, then any flag
// the user actually set. flags may be nil.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Add specific environment variable for log level
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	setDefaults(v)

	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Browser.UserAgent == "" {
		config.Browser.UserAgent = DefaultBrowserUserAgent
	}
	if config.Download.Workers <= 0 || config.Download.Workers > MaxDownloadWorkers {
		config.Download.Workers = MaxDownloadWorkers
	}

	return &config, nil
}

// Init applies the log level of cfg to the process logger.
func Init(cfg *Config) {
	level := zerolog.InfoLevel // default
	if cfg.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", cfg.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)

	logger.Debug().Str("level", level.String()).Msg("Logging configured")
}

// ParseDuration parses a Go duration string, falling back to def when the value
// is empty or invalid.
func ParseDuration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn().Err(err).Str("value", value).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return d
}

// CookieFile returns the configured cookie file for platform, if any.
func (c *Config) CookieFile(platform string) string {
	if c == nil || c.Credentials == nil {
		return ""
	}
	return c.Credentials[strings.ToLower(platform)].Cookies
}

func GetLogger() zerolog.Logger {
	return logger
}
