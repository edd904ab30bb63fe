package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Source   SourceConfig   `envPrefix:"SOURCE_"`
	Browser  BrowserConfig  `envPrefix:"BROWSER_"`
	Store    StoreConfig    `envPrefix:"STORE_"`
	Batch    BatchConfig    `envPrefix:"BATCH_"`
	Security SecurityConfig `envPrefix:"SECURITY_"`
	Logging  LoggingConfig  `envPrefix:"LOGGING_"`
	Metrics  MetricsConfig  `envPrefix:"METRICS_"`
}

type ServerConfig struct {
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port int    `env:"PORT" envDefault:"8080"`
}

// SourceConfig describes the horse-detail page of the racing authority
type SourceConfig struct {
	BaseURL      string `env:"BASE_URL" envDefault:"https://www.tjk.org/TR/YarisSever/Query/ConnectedPage/AtKosuBilgileri"`
	IDParam      string `env:"ID_PARAM" envDefault:"QueryParameter_AtId"`
	IncludeParam string `env:"INCLUDE_PARAM" envDefault:"QueryParameter_KosmazGoster"`
	Location     string `env:"LOCATION" envDefault:"Europe/Istanbul"`
}

type BrowserConfig struct {
	Headless          bool          `env:"HEADLESS" envDefault:"true"`
	ExecPath          string        `env:"EXEC_PATH"`
	UserAgent         string        `env:"USER_AGENT" envDefault:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"`
	NavigationTimeout time.Duration `env:"NAVIGATION_TIMEOUT" envDefault:"45s"`
	SettleDelay       time.Duration `env:"SETTLE_DELAY" envDefault:"2s"`
	ScrollDelay       time.Duration `env:"SCROLL_DELAY" envDefault:"500ms"`
	PedigreeTab       string        `env:"PEDIGREE_TAB" envDefault:"Pedigri"`
}

type StoreConfig struct {
	Driver string `env:"DRIVER" envDefault:"memory"`
	DSN    string `env:"DSN"`
	Debug  bool   `env:"DEBUG" envDefault:"false"`
}

// BatchConfig holds the courtesy pacing used when refreshing many horses
type BatchConfig struct {
	Delay       time.Duration `env:"DELAY" envDefault:"3s"`
	Concurrency int           `env:"CONCURRENCY" envDefault:"1"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `env:"REQUESTS_PER_SECOND" envDefault:"10"`
	Burst             int `env:"BURST" envDefault:"20"`
}

type LoggingConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	Format     string `env:"FORMAT" envDefault:"text"`
	Output     string `env:"OUTPUT" envDefault:"stdout"`
	EnableHTTP bool   `env:"ENABLE_HTTP" envDefault:"true"`
}

type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

// Address returns the server address
func (s ServerConfig) Address() string {
	if s.Host == "" {
		s.Host = "127.0.0.1"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadLocation returns the time zone that decides which race dates are in the future
func (s SourceConfig) LoadLocation() *time.Location {
	if s.Location == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Location)
	if err != nil {
		return time.Local
	}
	return loc
}

func GetEnvVars(debug bool) Config {
	// Load .env file if it exists (will not override existing environment variables)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Printf("Warning: Error loading .env file: %s\n", err)
		} else {
			fmt.Println("Loaded environment variables from .env file")
		}
	}

	var conf Config
	if err := env.Parse(&conf); err != nil {
		fmt.Printf("Error parsing configuration from environment: %s\n", err)
		os.Exit(1)
	}

	if err := validateConfig(&conf); err != nil {
		fmt.Printf("Configuration validation error: %s\n", err)
		fmt.Println("Please check your configuration and try again.")
		os.Exit(1)
	}

	if debug {
		fmt.Printf("Loaded configuration: %#v\n", conf)
	}

	return conf
}

// validateConfig validates the configuration
func validateConfig(conf *Config) error {
	var errors []string

	if conf.Server.Port < 1 || conf.Server.Port > 65535 {
		errors = append(errors, "server port must be between 1 and 65535")
	}

	if !strings.HasPrefix(conf.Source.BaseURL, "http://") && !strings.HasPrefix(conf.Source.BaseURL, "https://") {
		errors = append(errors, "source base URL must be an http(s) URL")
	}
	if strings.TrimSpace(conf.Source.IDParam) == "" {
		errors = append(errors, "source id parameter must not be empty")
	}
	if conf.Source.Location != "" {
		if _, err := time.LoadLocation(conf.Source.Location); err != nil {
			errors = append(errors, "source location must be a valid IANA time zone")
		}
	}

	if conf.Browser.NavigationTimeout <= 0 {
		errors = append(errors, "browser navigation timeout must be positive")
	}
	if conf.Browser.SettleDelay < 0 || conf.Browser.ScrollDelay < 0 {
		errors = append(errors, "browser delays must not be negative")
	}

	switch conf.Store.Driver {
	case "memory":
	case "postgres":
		if conf.Store.DSN == "" {
			errors = append(errors, "store DSN is required for the postgres driver")
		}
	default:
		errors = append(errors, "store driver must be one of: memory, postgres")
	}

	if conf.Batch.Concurrency < 1 {
		errors = append(errors, "batch concurrency must be at least 1")
	}
	if conf.Batch.Delay < 0 {
		errors = append(errors, "batch delay must not be negative")
	}

	if conf.Security.RateLimit.RequestsPerSecond < 1 {
		errors = append(errors, "rate limit requests per second must be at least 1")
	}
	if conf.Security.RateLimit.Burst < 1 {
		errors = append(errors, "rate limit burst must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[conf.Logging.Level] {
		errors = append(errors, "logging level must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validLogFormats[conf.Logging.Format] {
		errors = append(errors, "logging format must be one of: json, text")
	}

	if conf.Metrics.Enabled && !strings.HasPrefix(conf.Metrics.Path, "/") {
		errors = append(errors, "metrics path must start with /")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
