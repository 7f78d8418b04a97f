package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Trading struct {
		Symbols          []string      `yaml:"symbols"`
		Intervals        []string      `yaml:"intervals"`
		InitialBalance   float64       `yaml:"initial_balance"`
		PositionFraction float64       `yaml:"position_fraction"`
		ConfidenceFloor  float64       `yaml:"confidence_floor"`
		WindowSize       int           `yaml:"window_size"`
		IngestInterval   time.Duration `yaml:"ingest_interval"`
		RetrainInterval  time.Duration `yaml:"retrain_interval"`
		AutoCloseATR     float64       `yaml:"auto_close_atr"`
	} `yaml:"trading"`
	Feed struct {
		Mode           string        `yaml:"mode"` // "rest" or "stream"
		RestURL        string        `yaml:"rest_url"`
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Model struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
		CacheTTL   time.Duration `yaml:"cache_ttl"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"model"`
	Ledger struct {
		Backend string `yaml:"backend"` // "kafka" or "clickhouse"
	} `yaml:"ledger"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Trading.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("INTERVALS"); v != "" {
		c.Trading.Intervals = strings.Split(v, ",")
	}
	if v := os.Getenv("INITIAL_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Trading.InitialBalance = f
		}
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Model.ServiceURL = v
	}
	if v := os.Getenv("LEDGER_BACKEND"); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Trading.InitialBalance == 0 {
		c.Trading.InitialBalance = 10000
	}
	if c.Trading.PositionFraction == 0 {
		c.Trading.PositionFraction = 0.10
	}
	if c.Trading.ConfidenceFloor == 0 {
		c.Trading.ConfidenceFloor = 0.6
	}
	if c.Trading.WindowSize == 0 {
		c.Trading.WindowSize = 200
	}
	if c.Trading.IngestInterval == 0 {
		c.Trading.IngestInterval = 60 * time.Second
	}
	if c.Trading.RetrainInterval == 0 {
		c.Trading.RetrainInterval = 24 * time.Hour
	}
	if c.Trading.AutoCloseATR == 0 {
		c.Trading.AutoCloseATR = 2
	}
	if c.Feed.Mode == "" {
		c.Feed.Mode = "rest"
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = "clickhouse"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate checks if the configuration is valid. A malformed configuration
// is the only condition that propagates as a startup failure; everything in
// steady state degrades instead.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols cannot be empty")
	}
	if len(c.Trading.Intervals) == 0 {
		return fmt.Errorf("trading.intervals cannot be empty")
	}
	if c.Trading.InitialBalance <= 0 {
		return fmt.Errorf("trading.initial_balance must be > 0")
	}
	if c.Trading.PositionFraction <= 0 || c.Trading.PositionFraction > 1 {
		return fmt.Errorf("trading.position_fraction must be in (0,1], got %v", c.Trading.PositionFraction)
	}
	if c.Trading.ConfidenceFloor < 0 || c.Trading.ConfidenceFloor > 1 {
		return fmt.Errorf("trading.confidence_floor must be in [0,1], got %v", c.Trading.ConfidenceFloor)
	}
	if c.Trading.IngestInterval <= 0 {
		return fmt.Errorf("trading.ingest_interval must be > 0")
	}
	if c.Feed.Mode != "rest" && c.Feed.Mode != "stream" {
		return fmt.Errorf("feed.mode must be 'rest' or 'stream', got '%s'", c.Feed.Mode)
	}
	if c.Feed.RestURL == "" {
		return fmt.Errorf("feed.rest_url is required")
	}
	if c.Ledger.Backend != "kafka" && c.Ledger.Backend != "clickhouse" {
		return fmt.Errorf("ledger.backend must be 'kafka' or 'clickhouse', got '%s'", c.Ledger.Backend)
	}
	return nil
}
