package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "DASH"

// Commentary providers
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Dataset    DatasetConfig    `yaml:"dataset" envconfig:"DATASET"`
	Commentary CommentaryConfig `yaml:"commentary" envconfig:"COMMENTARY"`
	Session    SessionConfig    `yaml:"session" envconfig:"SESSION"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"90s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RenderTimeout   time.Duration `yaml:"render_timeout" envconfig:"RENDER_TIMEOUT" default:"60s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/dashboard.log"`
}

// DatasetConfig describes where the transaction workbook comes from.
// URL wins over Path when both are set.
type DatasetConfig struct {
	URL         string        `yaml:"url" envconfig:"URL"`
	Path        string        `yaml:"path" envconfig:"PATH" default:"data/transactions.xlsx"`
	Sheet       string        `yaml:"sheet" envconfig:"SHEET"`
	LoadTimeout time.Duration `yaml:"load_timeout" envconfig:"LOAD_TIMEOUT" default:"60s"`
	MaxBytes    int64         `yaml:"max_bytes" envconfig:"MAX_BYTES" default:"104857600"`
}

// CommentaryConfig configures the external text-generation service
type CommentaryConfig struct {
	Provider            string        `yaml:"provider" envconfig:"PROVIDER" default:"groq"`
	APIKey              string        `yaml:"api_key" envconfig:"API_KEY"`
	Model               string        `yaml:"model" envconfig:"MODEL"`
	BaseURL             string        `yaml:"base_url" envconfig:"BASE_URL"`
	Timeout             time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
	Temperature         float32       `yaml:"temperature" envconfig:"TEMPERATURE" default:"0.5"`
	MaxTokens           int           `yaml:"max_tokens" envconfig:"MAX_TOKENS" default:"300"`
	FollowUpTemperature float32       `yaml:"follow_up_temperature" envconfig:"FOLLOW_UP_TEMPERATURE" default:"0.6"`
	FollowUpMaxTokens   int           `yaml:"follow_up_max_tokens" envconfig:"FOLLOW_UP_MAX_TOKENS" default:"400"`
	MaxQuestionLength   int           `yaml:"max_question_length" envconfig:"MAX_QUESTION_LENGTH" default:"500"`
}

// SessionConfig controls per-visitor dashboard state
type SessionConfig struct {
	CookieName    string        `yaml:"cookie_name" envconfig:"COOKIE_NAME" default:"dash_session"`
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL" default:"2h"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL" default:"5m"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
}

// TelemetryConfig selects OpenTelemetry exporters
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
	// RuntimeInterval is how often Go runtime gauges are sampled.
	RuntimeInterval time.Duration `yaml:"runtime_interval" envconfig:"RUNTIME_INTERVAL" default:"15s"`
}

// Load loads configuration from a .env file, environment variables and an
// optional YAML config file. Environment values take precedence.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs fills every field that the environment left at its default
// with the value from the config file.
func mergeConfigs(fileConfig, envConfig Config) Config {
	def := Default()

	pickInt := func(env, file, dflt int) int {
		if env == dflt && file != 0 {
			return file
		}
		return env
	}
	pickDur := func(env, file, dflt time.Duration) time.Duration {
		if env == dflt && file != 0 {
			return file
		}
		return env
	}
	pickStr := func(env, file, dflt string) string {
		if env == dflt && file != "" {
			return file
		}
		return env
	}

	envConfig.Server.Port = pickInt(envConfig.Server.Port, fileConfig.Server.Port, def.Server.Port)
	envConfig.Server.ReadTimeout = pickDur(envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout, def.Server.ReadTimeout)
	envConfig.Server.WriteTimeout = pickDur(envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout, def.Server.WriteTimeout)
	envConfig.Server.RenderTimeout = pickDur(envConfig.Server.RenderTimeout, fileConfig.Server.RenderTimeout, def.Server.RenderTimeout)

	if len(fileConfig.Security.AllowedOrigins) > 0 &&
		strings.Join(envConfig.Security.AllowedOrigins, ",") == strings.Join(def.Security.AllowedOrigins, ",") {
		envConfig.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}

	envConfig.Logging.Level = pickStr(envConfig.Logging.Level, fileConfig.Logging.Level, def.Logging.Level)
	envConfig.Logging.Output = pickStr(envConfig.Logging.Output, fileConfig.Logging.Output, def.Logging.Output)
	envConfig.Logging.FilePath = pickStr(envConfig.Logging.FilePath, fileConfig.Logging.FilePath, def.Logging.FilePath)

	envConfig.Dataset.URL = pickStr(envConfig.Dataset.URL, fileConfig.Dataset.URL, def.Dataset.URL)
	envConfig.Dataset.Path = pickStr(envConfig.Dataset.Path, fileConfig.Dataset.Path, def.Dataset.Path)
	envConfig.Dataset.Sheet = pickStr(envConfig.Dataset.Sheet, fileConfig.Dataset.Sheet, def.Dataset.Sheet)
	envConfig.Dataset.LoadTimeout = pickDur(envConfig.Dataset.LoadTimeout, fileConfig.Dataset.LoadTimeout, def.Dataset.LoadTimeout)

	envConfig.Commentary.Provider = pickStr(envConfig.Commentary.Provider, fileConfig.Commentary.Provider, def.Commentary.Provider)
	envConfig.Commentary.Model = pickStr(envConfig.Commentary.Model, fileConfig.Commentary.Model, def.Commentary.Model)
	envConfig.Commentary.BaseURL = pickStr(envConfig.Commentary.BaseURL, fileConfig.Commentary.BaseURL, def.Commentary.BaseURL)
	envConfig.Commentary.Timeout = pickDur(envConfig.Commentary.Timeout, fileConfig.Commentary.Timeout, def.Commentary.Timeout)

	envConfig.Session.CookieName = pickStr(envConfig.Session.CookieName, fileConfig.Session.CookieName, def.Session.CookieName)
	envConfig.Session.TTL = pickDur(envConfig.Session.TTL, fileConfig.Session.TTL, def.Session.TTL)

	envConfig.Telemetry.TraceExporter = pickStr(envConfig.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter, def.Telemetry.TraceExporter)
	envConfig.Telemetry.MetricExporter = pickStr(envConfig.Telemetry.MetricExporter, fileConfig.Telemetry.MetricExporter, def.Telemetry.MetricExporter)
	envConfig.Telemetry.RuntimeInterval = pickDur(envConfig.Telemetry.RuntimeInterval, fileConfig.Telemetry.RuntimeInterval, def.Telemetry.RuntimeInterval)

	// API keys never come from the file; they belong in the environment.
	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Dataset.URL == "" && c.Dataset.Path == "" {
		return fmt.Errorf("dataset url or path must be set")
	}

	if c.Dataset.LoadTimeout <= 0 {
		return fmt.Errorf("dataset load timeout must be positive")
	}

	if c.Commentary.Timeout <= 0 {
		return fmt.Errorf("commentary timeout must be positive")
	}

	c.Commentary.Provider = strings.ToLower(strings.TrimSpace(c.Commentary.Provider))
	switch c.Commentary.Provider {
	case ProviderGroq, ProviderGemini, ProviderNone:
	default:
		return fmt.Errorf("unsupported commentary provider: %q", c.Commentary.Provider)
	}

	// Always JSON
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "stderr", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/dashboard.log"
	}

	return nil
}

// CommentaryEnabled reports whether an external provider is configured
func (c *Config) CommentaryEnabled() bool {
	return c.Commentary.Provider != ProviderNone && c.Commentary.APIKey != ""
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RenderTimeout:   60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   25,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/dashboard.log",
		},
		Dataset: DatasetConfig{
			Path:        "data/transactions.xlsx",
			LoadTimeout: 60 * time.Second,
			MaxBytes:    100 << 20,
		},
		Commentary: CommentaryConfig{
			Provider:            ProviderGroq,
			Timeout:             30 * time.Second,
			Temperature:         0.5,
			MaxTokens:           300,
			FollowUpTemperature: 0.6,
			FollowUpMaxTokens:   400,
			MaxQuestionLength:   500,
		},
		Session: SessionConfig{
			CookieName:    "dash_session",
			TTL:           2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		Telemetry: TelemetryConfig{
			Environment:     "development",
			TraceExporter:   "none",
			MetricExporter:  "prometheus",
			SampleRatio:     1.0,
			RuntimeInterval: 15 * time.Second,
		},
	}
}
