package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/opsengine")
	}

	// Environment variable settings
	v.SetEnvPrefix("OPSENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "opsengine")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "opsengine")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")

	// Telemetry defaults
	v.SetDefault("telemetry.buffer_capacity", 100)
	v.SetDefault("telemetry.queue_size", 1000)
	v.SetDefault("telemetry.drain_interval", "1s")
	v.SetDefault("telemetry.batch_size", 256)
	v.SetDefault("telemetry.scrape.interval", "10s")
	v.SetDefault("telemetry.scrape.timeout", "5s")

	// Detector defaults
	v.SetDefault("detector.ensemble_size", 3)
	v.SetDefault("detector.anomaly_threshold", 0.7)
	v.SetDefault("detector.min_samples", 10)
	v.SetDefault("detector.window_size", 50)

	// Forecaster defaults
	v.SetDefault("forecaster.horizon", 15)
	v.SetDefault("forecaster.interval", "30s")
	v.SetDefault("forecaster.step_duration", "1m")
	v.SetDefault("forecaster.min_advanced_points", 20)
	v.SetDefault("forecaster.min_points", 10)

	// Health defaults
	v.SetDefault("health.interval", "30s")

	// Alerting defaults
	v.SetDefault("alerting.dedup_window", "15m")
	v.SetDefault("alerting.sweep_interval", "10s")
	v.SetDefault("alerting.correlation_score", 0.85)
	v.SetDefault("alerting.max_active_alerts", 1000)

	// Incident defaults
	v.SetDefault("incident.max_plan_length", 3)

	// Resolution defaults
	v.SetDefault("resolution.enabled", true)
	v.SetDefault("resolution.confidence_threshold", 0.7)
	v.SetDefault("resolution.max_concurrent", 5)
	v.SetDefault("resolution.action_timeout", "30s")
	v.SetDefault("resolution.settle_delay", "2s")
	v.SetDefault("resolution.workflow_retention", "1h")
	v.SetDefault("resolution.circuit_breaker.max_failures", 5)
	v.SetDefault("resolution.circuit_breaker.timeout", "30s")

	// Scaling defaults
	v.SetDefault("scaling.interval", "60s")
	v.SetDefault("scaling.cooldown", "5m")
	v.SetDefault("scaling.confidence_floor", 0.6)
	v.SetDefault("scaling.target_cpu", 0.7)
	v.SetDefault("scaling.target_memory", 0.8)
	v.SetDefault("scaling.min_instances", 1)
	v.SetDefault("scaling.max_instances", 20)

	// Notification defaults
	v.SetDefault("notifications.chat_enabled", true)
	v.SetDefault("notifications.pager_enabled", true)

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.max_body_bytes", 1<<20)
	v.SetDefault("api.default_limit", 50)
	v.SetDefault("api.max_limit", 500)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	// Events defaults
	v.SetDefault("events.buffer_size", 256)
}
