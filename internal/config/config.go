package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration. Values come from an
// optional YAML file overridden by HPD_-prefixed environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
	Fetch     FetchConfig     `yaml:"fetch" envconfig:"FETCH"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// DataConfig locates the source workbook and sets the default selection
// the dashboard opens with.
type DataConfig struct {
	WorkbookPath    string   `yaml:"workbook_path" envconfig:"WORKBOOK_PATH" default:"data/house-price-to-residence-based-earnings.xlsx"`
	PriceSheet      string   `yaml:"price_sheet" envconfig:"PRICE_SHEET" default:"1a"`
	IncomeSheet     string   `yaml:"income_sheet" envconfig:"INCOME_SHEET" default:"1b"`
	DefaultRegions  []string `yaml:"default_regions" envconfig:"DEFAULT_REGIONS" default:"London"`
	DefaultYearFrom int      `yaml:"default_year_from" envconfig:"DEFAULT_YEAR_FROM" default:"2002"`
	DefaultYearTo   int      `yaml:"default_year_to" envconfig:"DEFAULT_YEAR_TO" default:"2024"`
	ExportDir       string   `yaml:"export_dir" envconfig:"EXPORT_DIR" default:"exports"`
}

// WebSocketConfig contains live-view socket configuration.
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
	WriteWait       time.Duration `yaml:"write_wait" envconfig:"WRITE_WAIT" default:"10s"`
}

// SheetsConfig configures the optional Google Sheets summary upload. The
// uploader is disabled unless both the spreadsheet ID and a credentials
// file are set.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	SheetRange      string `yaml:"sheet_range" envconfig:"SHEET_RANGE" default:"Summary!A1"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
}

// FetchConfig configures the workbook fetcher.
type FetchConfig struct {
	PageURL string        `yaml:"page_url" envconfig:"PAGE_URL" default:"https://www.ons.gov.uk/peoplepopulationandcommunity/housing/datasets/housepriceexistingdwellingstoresidencebasedearningsratio"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"2m"`
	OutDir  string        `yaml:"out_dir" envconfig:"OUT_DIR" default:"data"`
}

// Load loads configuration from an optional YAML file and the
// environment. Environment variables take precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("HPD", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Data.WorkbookPath == "" {
		return fmt.Errorf("workbook path must be set")
	}
	if c.Data.PriceSheet == "" || c.Data.IncomeSheet == "" {
		return fmt.Errorf("both sheet names must be set")
	}
	if c.Data.DefaultYearFrom > c.Data.DefaultYearTo {
		return fmt.Errorf("default year range is inverted: %d > %d", c.Data.DefaultYearFrom, c.Data.DefaultYearTo)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}

func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the built-in defaults, matching the struct tags.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Data: DataConfig{
			WorkbookPath:    "data/house-price-to-residence-based-earnings.xlsx",
			PriceSheet:      "1a",
			IncomeSheet:     "1b",
			DefaultRegions:  []string{"London"},
			DefaultYearFrom: 2002,
			DefaultYearTo:   2024,
			ExportDir:       "exports",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
			WriteWait:       10 * time.Second,
		},
		Sheets: SheetsConfig{
			SheetRange: "Summary!A1",
		},
		Fetch: FetchConfig{
			PageURL: "https://www.ons.gov.uk/peoplepopulationandcommunity/housing/datasets/housepriceexistingdwellingstoresidencebasedearningsratio",
			Timeout: 2 * time.Minute,
			OutDir:  "data",
		},
	}
}
