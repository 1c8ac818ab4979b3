package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. BRIDGE_ENDPOINT.
const EnvPrefix = "BRIDGE"

// Load layers an optional YAML file and BRIDGE_* environment variables over
// DefaultConfig. An empty path searches for bridge.yaml in the working directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Debug("no bridge.yaml found, using defaults and environment")
	} else {
		slog.Debug("loaded config file", slog.String("path", v.ConfigFileUsed()))
	}

	if v.IsSet("endpoint") {
		cfg.Endpoint = v.GetString("endpoint")
	}
	if v.IsSet("token") {
		cfg.Token = v.GetString("token")
	}
	if v.IsSet("user_agent") {
		cfg.UserAgent = v.GetString("user_agent")
	}
	if v.IsSet("delivery_timeout") {
		cfg.DeliveryTimeout = v.GetDuration("delivery_timeout")
	}
	if v.IsSet("status_timeout") {
		cfg.StatusTimeout = v.GetDuration("status_timeout")
	}
	if v.IsSet("max_attempts") {
		cfg.MaxAttempts = v.GetInt("max_attempts")
	}
	if v.IsSet("retry_backoff") {
		cfg.RetryBackoff = v.GetDuration("retry_backoff")
	}
	if v.IsSet("heartbeat_interval") {
		cfg.HeartbeatInterval = v.GetDuration("heartbeat_interval")
	}
	if v.IsSet("heartbeat_delay") {
		cfg.HeartbeatDelay = v.GetDuration("heartbeat_delay")
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if v.IsSet("queue_size") {
		cfg.QueueSize = v.GetInt("queue_size")
	}
	if v.IsSet("backup_dir") {
		cfg.BackupDir = v.GetString("backup_dir")
	}
	if v.IsSet("archive_dir") {
		cfg.ArchiveDir = v.GetString("archive_dir")
	}
	if v.IsSet("quarantine_dir") {
		cfg.QuarantineDir = v.GetString("quarantine_dir")
	}
	if v.IsSet("delete_on_success") {
		cfg.DeleteOnSuccess = v.GetBool("delete_on_success")
	}
	if v.IsSet("notify_success") {
		cfg.NotifySuccess = v.GetBool("notify_success")
	}
	if v.IsSet("accepted_extensions") {
		cfg.AcceptedExtensions = v.GetStringSlice("accepted_extensions")
	}
	if v.IsSet("vocabulary_file") {
		cfg.VocabularyFile = v.GetString("vocabulary_file")
	}
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("log_format") {
		cfg.LogFormat = strings.ToLower(v.GetString("log_format"))
	}
	if v.IsSet("metrics_addr") {
		cfg.MetricsAddr = v.GetString("metrics_addr")
	}
	if v.IsSet("output_file") {
		cfg.OutputFile = v.GetString("output_file")
	}
	if v.IsSet("output_format") {
		cfg.OutputFormat = strings.ToLower(v.GetString("output_format"))
	}

	return cfg, nil
}

var keys = []string{
	"endpoint",
	"token",
	"user_agent",
	"delivery_timeout",
	"status_timeout",
	"max_attempts",
	"retry_backoff",
	"heartbeat_interval",
	"heartbeat_delay",
	"workers",
	"queue_size",
	"backup_dir",
	"archive_dir",
	"quarantine_dir",
	"delete_on_success",
	"notify_success",
	"accepted_extensions",
	"vocabulary_file",
	"log_level",
	"log_format",
	"metrics_addr",
	"output_file",
	"output_format",
}
