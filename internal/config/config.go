package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. DASH_SERVER_PORT
const EnvPrefix = "DASH"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Sources   SourcesConfig   `yaml:"sources" envconfig:"SOURCES"`
	Features  FeaturesConfig  `yaml:"features" envconfig:"FEATURES"`
	Locale    LocaleConfig    `yaml:"locale" envconfig:"LOCALE"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Embed     EmbedConfig     `yaml:"embed" envconfig:"EMBED"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	FrameAncestors []string        `yaml:"frame_ancestors" envconfig:"FRAME_ANCESTORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir         string `yaml:"data_dir" envconfig:"DATA_DIR"`
	BundledWorkbook string `yaml:"bundled_workbook" envconfig:"BUNDLED_WORKBOOK"`
	LocationsFile   string `yaml:"locations_file" envconfig:"LOCATIONS_FILE"`
	RulesFile       string `yaml:"rules_file" envconfig:"RULES_FILE"`
}

// SourcesConfig locates the remote spreadsheet. Tabs maps a dataset key to a
// known tab id; datasets without one are discovered among CandidateTabs.
type SourcesConfig struct {
	DocumentID           string            `yaml:"document_id" envconfig:"DOCUMENT_ID"`
	APIKey               string            `yaml:"api_key" envconfig:"API_KEY"`
	CredentialsFile      string            `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	Tabs                 map[string]string `yaml:"tabs" envconfig:"TABS"`
	SheetNames           map[string]string `yaml:"sheet_names" envconfig:"SHEET_NAMES"`
	CandidateTabs        []string          `yaml:"candidate_tabs" envconfig:"CANDIDATE_TABS"`
	DiscoveryConcurrency int               `yaml:"discovery_concurrency" envconfig:"DISCOVERY_CONCURRENCY"`
	FetchTimeout         time.Duration     `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT"`
	ExportBaseURL        string            `yaml:"export_base_url" envconfig:"EXPORT_BASE_URL"`
	SheetsEndpoint       string            `yaml:"sheets_endpoint" envconfig:"SHEETS_ENDPOINT"`
}

// UsesSheetsAPI reports whether authenticated Sheets API access is configured
func (s SourcesConfig) UsesSheetsAPI() bool {
	return s.APIKey != "" || s.CredentialsFile != ""
}

// FeaturesConfig holds the feature toggles passed into the load pipeline
type FeaturesConfig struct {
	RemoteFetch     bool `yaml:"remote_fetch" envconfig:"REMOTE_FETCH"`
	BundledFallback bool `yaml:"bundled_fallback" envconfig:"BUNDLED_FALLBACK"`
	Discovery       bool `yaml:"discovery" envconfig:"DISCOVERY"`
	// PersistRemote writes remotely fetched datasets to the data directory so
	// the local tier serves them on the next cycle
	PersistRemote bool `yaml:"persist_remote" envconfig:"PERSIST_REMOTE"`
}

// LocaleConfig controls number and currency formatting
type LocaleConfig struct {
	Language       string `yaml:"language" envconfig:"LANGUAGE"`
	CurrencySymbol string `yaml:"currency_symbol" envconfig:"CURRENCY_SYMBOL"`
	SymbolPosition string `yaml:"symbol_position" envconfig:"SYMBOL_POSITION"`
}

// CacheConfig bounds the chart config memo
type CacheConfig struct {
	MemoSize int `yaml:"memo_size" envconfig:"MEMO_SIZE"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
	MaxMessageSize  int64         `yaml:"max_message_size" envconfig:"MAX_MESSAGE_SIZE"`
}

// EmbedConfig controls the embed height reporter
type EmbedConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval" envconfig:"FRAME_INTERVAL"`
}

// Load builds the configuration in layers: Default, then the YAML file, then
// environment variables (a .env file is read first when present). Only
// variables that are set override earlier layers.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML onto cfg; keys absent from the file keep their value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
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

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Sources.DiscoveryConcurrency < 1 {
		return fmt.Errorf("discovery concurrency must be at least 1, got %d", c.Sources.DiscoveryConcurrency)
	}

	if c.Sources.FetchTimeout <= 0 {
		return fmt.Errorf("source fetch timeout must be positive")
	}

	if _, err := language.Parse(c.Locale.Language); err != nil {
		return fmt.Errorf("invalid locale language %q: %w", c.Locale.Language, err)
	}

	switch c.Locale.SymbolPosition {
	case "prefix", "suffix":
	default:
		return fmt.Errorf("invalid currency symbol position %q", c.Locale.SymbolPosition)
	}

	if c.Embed.FrameInterval <= 0 {
		return fmt.Errorf("embed frame interval must be positive")
	}

	if c.Cache.MemoSize < 0 {
		return fmt.Errorf("memo size cannot be negative")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

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

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			FrameAncestors: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Telemetry: TelemetryConfig{
			MetricExporter: "prometheus",
			TraceExporter:  "none",
			SampleRatio:    1.0,
			Environment:    "development",
		},
		Paths: PathsConfig{
			DataDir:         "data",
			BundledWorkbook: "data/startup-data.xlsx",
			LocationsFile:   "data/locations.json",
		},
		Sources: SourcesConfig{
			Tabs:                 map[string]string{"primary": "0"},
			DiscoveryConcurrency: 4,
			FetchTimeout:         10 * time.Second,
			ExportBaseURL:        "https://docs.google.com/spreadsheets/d",
		},
		Features: FeaturesConfig{
			RemoteFetch:     true,
			BundledFallback: true,
			Discovery:       true,
		},
		Locale: LocaleConfig{
			Language:       "en",
			CurrencySymbol: "€",
			SymbolPosition: "prefix",
		},
		Cache: CacheConfig{
			MemoSize: 256,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageSize:  4096,
		},
		Embed: EmbedConfig{
			FrameInterval: 16 * time.Millisecond,
		},
	}
}
