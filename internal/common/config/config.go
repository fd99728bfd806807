// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Scoring       ScoringConfig      `mapstructure:"scoring"`
	Pipeline      PipelineConfig     `mapstructure:"pipeline"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds settings for the inbound trigger endpoint.
type ServerConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	CronSecret    string `mapstructure:"cron_secret"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	AuditIndex string   `mapstructure:"audit_index"`
	Enabled    bool     `mapstructure:"enabled"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ScoringConfig holds settings for the external scoring service.
type ScoringConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
	EvaluationType string `mapstructure:"evaluation_type"`
	BundleType     string `mapstructure:"bundle_type"`
}

// PipelineConfig bounds each cron invocation. The caller is expected to
// trigger runs on a cadence well below StaleAfter.
type PipelineConfig struct {
	HarvestBatchSize int `mapstructure:"harvest_batch_size"`
	SubmitBatchSize  int `mapstructure:"submit_batch_size"`
	StaleAfterHours  int `mapstructure:"stale_after_hours"`
	PollDelayMs      int `mapstructure:"poll_delay_ms"`
	UploadDelayMs    int `mapstructure:"upload_delay_ms"`
	SubmitDelayMs    int `mapstructure:"submit_delay_ms"`
}

func (p PipelineConfig) StaleAfter() time.Duration {
	return time.Duration(p.StaleAfterHours) * time.Hour
}

func (p PipelineConfig) PollDelay() time.Duration {
	return time.Duration(p.PollDelayMs) * time.Millisecond
}

func (p PipelineConfig) UploadDelay() time.Duration {
	return time.Duration(p.UploadDelayMs) * time.Millisecond
}

func (p PipelineConfig) SubmitDelay() time.Duration {
	return time.Duration(p.SubmitDelayMs) * time.Millisecond
}

// NotificationConfig holds settings for score-published notifications.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		OpsEmail  string `mapstructure:"ops_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
