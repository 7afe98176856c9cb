package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	LogConfig logger.LogConfig `json:"log_config"`
	Auth      AuthConfig       `json:"auth"`
	Provider  ProviderConfig   `json:"provider"`
	Database  DatabaseConfig   `json:"database"`
	Retention RetentionConfig  `json:"retention"`
	Export    ExportConfig     `json:"export"`
}

type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	AccessKeyHash string `json:"access_key_hash"`
	JWTTTLHours   int    `json:"jwt_ttl_hours"`
}

type ProviderConfig struct {
	APIKey             string  `json:"api_key"`
	BaseURL            string  `json:"base_url"`
	ServiceCode        string  `json:"service_code"`
	MaxPrice           float64 `json:"max_price"`
	Country            int     `json:"country"`
	RateIntervalMillis int64   `json:"rate_interval_millis"`
	PollIntervalMillis int64   `json:"poll_interval_millis"`
	TimeoutSeconds     int64   `json:"verification_timeout_seconds"`
	MaxAttempts        int     `json:"max_attempts"`
	HTTPTimeoutSeconds int64   `json:"http_timeout_seconds"`
	BalanceCacheTTL    int64   `json:"balance_cache_ttl_seconds"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type RetentionConfig struct {
	TerminalKeepMinutes int64 `json:"terminal_keep_minutes"`
	EventKeepDays       int64 `json:"event_keep_days"`
}

type ExportConfig struct {
	Type string      `json:"type"`
	Dir  string      `json:"dir"`
	S3   S3Config    `json:"s3"`
	Cron string      `json:"cron"`
	Data interface{} `json:"-"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	UseSSL    bool   `json:"use_ssl"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	if cfg.Auth.AccessKeyHash == "" {
		return nil, fmt.Errorf("auth.access_key_hash is required")
	}
	if cfg.Auth.JWTTTLHours == 0 {
		cfg.Auth.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if err := validateProvider(&cfg.Provider); err != nil {
		return nil, err
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Retention.TerminalKeepMinutes == 0 {
		cfg.Retention.TerminalKeepMinutes = 60
	}
	if cfg.Retention.EventKeepDays == 0 {
		cfg.Retention.EventKeepDays = 30
	}
	if cfg.Export.Type == "" {
		cfg.Export.Type = "local"
	}
	switch cfg.Export.Type {
	case "local":
		if cfg.Export.Dir == "" {
			return nil, fmt.Errorf("export.dir is required for local export")
		}
	case "s3":
		s3 := cfg.Export.S3
		if s3.Endpoint == "" || s3.Bucket == "" || s3.SecretID == "" || s3.SecretKey == "" {
			return nil, fmt.Errorf("export.s3 endpoint/bucket/secret_id/secret_key are required for s3 export")
		}
		if cfg.Export.S3.Region == "" {
			cfg.Export.S3.Region = "us-east-1"
		}
	default:
		return nil, fmt.Errorf("export.type must be local or s3")
	}
	return &cfg, nil
}

func validateProvider(p *ProviderConfig) error {
	if p.APIKey == "" {
		return fmt.Errorf("provider.api_key is required")
	}
	if p.BaseURL == "" {
		p.BaseURL = "https://daisysms.com/stubs/handler_api.php"
	}
	if p.ServiceCode == "" {
		p.ServiceCode = "ds"
	}
	if p.MaxPrice == 0 {
		p.MaxPrice = 0.50
	}
	if p.RateIntervalMillis == 0 {
		p.RateIntervalMillis = 3000
	}
	if p.PollIntervalMillis == 0 {
		p.PollIntervalMillis = 3000
	}
	if p.TimeoutSeconds == 0 {
		p.TimeoutSeconds = 180
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 40
	}
	if p.HTTPTimeoutSeconds == 0 {
		p.HTTPTimeoutSeconds = 30
	}
	if p.BalanceCacheTTL == 0 {
		p.BalanceCacheTTL = 60
	}
	return nil
}
