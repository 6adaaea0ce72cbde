package config

import (
	"context"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(log logger.Logger) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", constants.DefaultServicePort)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "sentra.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("oracle.model", constants.OracleDefaultModel)
	v.SetDefault("oracle.max_calls", constants.OracleMaxCallsPerCycle)
	v.SetDefault("oracle.max_prompt_chars", constants.OracleMaxPromptChars)
	v.SetDefault("oracle.timeout", constants.OracleCallTimeout)
	v.SetDefault("oracle.cache_ttl", constants.OracleCacheTTL)
	v.SetDefault("observer.source", "simulated")
	v.SetDefault("observer.scenario", "null_spike")
	v.SetDefault("pipeline.confidence_threshold", constants.DefaultConfidenceThreshold)
	v.SetDefault("pipeline.alert_threshold", constants.DefaultAlertThreshold)
	v.SetDefault("pipeline.cooldown_window", constants.DefaultCooldownWindow)
	v.SetDefault("pipeline.approval_ttl", constants.DefaultApprovalTTL)
	v.SetDefault("pipeline.meta_learn_interval", constants.DefaultMetaLearnInterval)
	v.SetDefault("pipeline.monitored_tables", []string{"orders", "users", "inventory"})
	v.SetDefault("notification.channels", []string{"console"})
	v.SetDefault("kafka.event_topic", "sentra.events")
	v.SetDefault("log.level", "info")
	v.SetDefault("tracing.service_name", "sentra")

	// Load from config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/sentra/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	} else if log != nil {
		log.Info(context.Background(), "Loaded configuration file", logger.String("path", v.ConfigFileUsed()))
	}

	// Load from environment variables
	v.SetEnvPrefix("SENTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrServerError("failed to unmarshal config").WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
