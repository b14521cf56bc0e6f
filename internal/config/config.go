// Package config loads inkforge's configuration from defaults, an optional
// YAML file, and environment variables, in that order of increasing priority.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Fetcher    Fetcher    `mapstructure:"fetcher"`
	Store      Store      `mapstructure:"store"`
	Translator Translator `mapstructure:"translator"`
	Crawl      Crawl      `mapstructure:"crawl"`
	Logging    Logging    `mapstructure:"logging"`
}

// Fetcher holds the HTTP/rendered fetch client configuration.
type Fetcher struct {
	DefaultTimeoutSeconds int    `mapstructure:"default-timeout-seconds"` // per-request timeout
	DefaultRetries        int    `mapstructure:"default-retries"`         // retry attempts after the first try
	MaxConnsPerHost       int    `mapstructure:"max-conns-per-host"`      // concurrent connections per host
	MaxIdleConnsPerHost   int    `mapstructure:"max-idle-conns-per-host"`
	UserAgent             string `mapstructure:"user-agent"`
	ChromeExecutablePath  string `mapstructure:"chrome-executable-path"` // empty uses chromedp's auto-discovery
	DebugScreenshotDir    string `mapstructure:"debug-screenshot-dir"`   // empty disables debug screenshots
}

// Store holds the content-addressable filesystem cache configuration.
type Store struct {
	Root                 string `mapstructure:"root"`
	MaxConcurrentImages   int    `mapstructure:"max-concurrent-images"`
}

// Translator holds the translation backend configuration.
type Translator struct {
	Backend        string `mapstructure:"backend"` // "paid" or "free"
	APIKey         string `mapstructure:"api-key"`
	APIEndpoint    string `mapstructure:"api-endpoint"`
	TargetLanguage string `mapstructure:"target-language"`
	MaxChunkChars  int    `mapstructure:"max-chunk-chars"`
}

// Crawl holds the discovery/crawl engine bounds.
type Crawl struct {
	DefaultMaxChapters int `mapstructure:"default-max-chapters"`
	HardMaxChapters    int `mapstructure:"hard-max-chapters"`
}

// Logging holds logger configuration.
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load loads the configuration from defaults, an optional YAML file, and
// environment variables (INKFORGE_-prefixed, with "." replaced by "_").
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".inkforge")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.SetEnvPrefix("inkforge")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration, loading it with defaults if necessary.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return cfg
	}
	return globalConfig
}

// Reset clears the cached global configuration. Used by tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("fetcher.default-timeout-seconds", 30)
	viper.SetDefault("fetcher.default-retries", 3)
	viper.SetDefault("fetcher.max-conns-per-host", 10)
	viper.SetDefault("fetcher.max-idle-conns-per-host", 5)
	viper.SetDefault("fetcher.user-agent", "inkforge/1.0 (+https://github.com/inkforge)")
	viper.SetDefault("fetcher.chrome-executable-path", "")
	viper.SetDefault("fetcher.debug-screenshot-dir", "")

	viper.SetDefault("store.root", "./data")
	viper.SetDefault("store.max-concurrent-images", 8)

	viper.SetDefault("translator.backend", "free")
	viper.SetDefault("translator.api-key", "")
	viper.SetDefault("translator.api-endpoint", "https://api-free.deepl.com/v2/translate")
	viper.SetDefault("translator.target-language", "en")
	viper.SetDefault("translator.max-chunk-chars", 5000)

	viper.SetDefault("crawl.default-max-chapters", 50)
	viper.SetDefault("crawl.hard-max-chapters", 200)

	viper.SetDefault("logging.level", "info")
}

func validate(cfg *Config) error {
	if cfg.Translator.Backend != "paid" && cfg.Translator.Backend != "free" {
		return fmt.Errorf("translator.backend must be \"paid\" or \"free\", got %q", cfg.Translator.Backend)
	}
	if cfg.Fetcher.DefaultTimeoutSeconds <= 0 {
		return fmt.Errorf("fetcher.default-timeout-seconds must be positive")
	}
	if cfg.Crawl.HardMaxChapters < cfg.Crawl.DefaultMaxChapters {
		return fmt.Errorf("crawl.hard-max-chapters must be >= crawl.default-max-chapters")
	}
	return nil
}

// Timeout returns the fetcher's default per-request timeout as a duration.
func (f Fetcher) Timeout() time.Duration {
	return time.Duration(f.DefaultTimeoutSeconds) * time.Second
}
