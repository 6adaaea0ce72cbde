package config

import (
	"fmt"
	"time"

	"github.com/turtacn/sentra/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Vault        VaultConfig        `mapstructure:"vault"`
	Oracle       OracleConfig       `mapstructure:"oracle"`
	Observer     ObserverConfig     `mapstructure:"observer"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"`
	Notification NotificationConfig `mapstructure:"notification"`
	Log          LogConfig          `mapstructure:"log"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	AdminJWTKey  string `mapstructure:"admin_jwt_key"`
}

// DatabaseConfig selects the historian store. Driver "sqlite" is used for
// development and tests, "postgres" for production.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"` // sqlite file path; ":memory:" for tests
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConns        int    `mapstructure:"max_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"` // in minutes
}

func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig backs the escalation cooldown store and cycle leases. When no
// address is configured the service falls back to in-process stores.
type RedisConfig struct {
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

func (c *RedisConfig) Enabled() bool {
	return c.Address != ""
}

// KafkaConfig controls event mirroring to a broker. Empty broker list
// disables mirroring.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	EventTopic   string        `mapstructure:"event_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

func (c *KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type VaultConfig struct {
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	MountPath string `mapstructure:"mount_path"`
}

func (c *VaultConfig) Enabled() bool {
	return c.Address != ""
}

// OracleConfig configures the reasoning oracle gateway.
type OracleConfig struct {
	Provider       string        `mapstructure:"provider"` // "openai" or "" for fallback-only
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxCalls       int           `mapstructure:"max_calls"` // per cycle
	MaxPromptChars int           `mapstructure:"max_prompt_chars"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// ObserverConfig selects the metrics source feeding the observer.
type ObserverConfig struct {
	// Source is "simulated" (development and demos) or "warehouse".
	Source string `mapstructure:"source"`

	// Scenario selects the synthetic situation for the simulated source.
	Scenario string `mapstructure:"scenario"`

	// WarehouseDSN is the Postgres connection string for the warehouse
	// source.
	WarehouseDSN string `mapstructure:"warehouse_dsn"`
}

// PipelineConfig tunes the detection cycle.
type PipelineConfig struct {
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	AlertThreshold      float64       `mapstructure:"alert_threshold"`
	CooldownWindow      time.Duration `mapstructure:"cooldown_window"`
	ApprovalTTL         time.Duration `mapstructure:"approval_ttl"`
	MetaLearnInterval   time.Duration `mapstructure:"meta_learn_interval"`
	PoliciesFile        string        `mapstructure:"policies_file"`
	MonitoredTables     []string      `mapstructure:"monitored_tables"`
}

type NotificationConfig struct {
	SlackWebhookURL string   `mapstructure:"slack_webhook_url"`
	Channels        []string `mapstructure:"channels"` // "console", "slack"
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for the sqlite driver")
	}
	if c.Oracle.MaxCalls <= 0 {
		c.Oracle.MaxCalls = constants.OracleMaxCallsPerCycle
	}
	if c.Oracle.MaxPromptChars <= 0 {
		c.Oracle.MaxPromptChars = constants.OracleMaxPromptChars
	}
	if c.Oracle.Timeout <= 0 {
		c.Oracle.Timeout = constants.OracleCallTimeout
	}
	if c.Oracle.CacheTTL <= 0 {
		c.Oracle.CacheTTL = constants.OracleCacheTTL
	}
	if c.Oracle.Model == "" {
		c.Oracle.Model = constants.OracleDefaultModel
	}
	switch c.Observer.Source {
	case "", "simulated":
		c.Observer.Source = "simulated"
	case "warehouse":
		if c.Observer.WarehouseDSN == "" {
			return fmt.Errorf("observer.warehouse_dsn is required for the warehouse source")
		}
	default:
		return fmt.Errorf("unsupported observer source: %q", c.Observer.Source)
	}
	if c.Pipeline.ConfidenceThreshold < 0 || c.Pipeline.ConfidenceThreshold > 100 {
		return fmt.Errorf("confidence_threshold must be within [0,100]")
	}
	if c.Pipeline.ConfidenceThreshold == 0 {
		c.Pipeline.ConfidenceThreshold = constants.DefaultConfidenceThreshold
	}
	if c.Pipeline.AlertThreshold == 0 {
		c.Pipeline.AlertThreshold = constants.DefaultAlertThreshold
	}
	if c.Pipeline.CooldownWindow <= 0 {
		c.Pipeline.CooldownWindow = constants.DefaultCooldownWindow
	}
	if c.Pipeline.ApprovalTTL <= 0 {
		c.Pipeline.ApprovalTTL = constants.DefaultApprovalTTL
	}
	if c.Pipeline.MetaLearnInterval <= 0 {
		c.Pipeline.MetaLearnInterval = constants.DefaultMetaLearnInterval
	}
	return nil
}
