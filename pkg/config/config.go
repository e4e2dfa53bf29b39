package config

import (
	"fmt"
	"time"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Detector      DetectorConfig      `mapstructure:"detector"`
	Forecaster    ForecasterConfig    `mapstructure:"forecaster"`
	Health        HealthConfig        `mapstructure:"health"`
	Alerting      AlertingConfig      `mapstructure:"alerting"`
	Incident      IncidentConfig      `mapstructure:"incident"`
	Resolution    ResolutionConfig    `mapstructure:"resolution"`
	Scaling       ScalingConfig       `mapstructure:"scaling"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	API           APIConfig           `mapstructure:"api"`
	WebSocket     WebSocketConfig     `mapstructure:"websocket"`
	Prometheus    PrometheusConfig    `mapstructure:"prometheus"`
	Events        EventsConfig        `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	MaxConnections   int           `mapstructure:"max_connections"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	MigrationTimeout time.Duration `mapstructure:"migration_timeout"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

type TelemetryConfig struct {
	BufferCapacity int           `mapstructure:"buffer_capacity"`
	QueueSize      int           `mapstructure:"queue_size"`
	DrainInterval  time.Duration `mapstructure:"drain_interval"`
	BatchSize      int           `mapstructure:"batch_size"`
	Scrape         ScrapeConfig  `mapstructure:"scrape"`
}

// ScrapeConfig enables pull-based collection for services that expose a
// metrics endpoint instead of pushing telemetry.
type ScrapeConfig struct {
	Interval time.Duration     `mapstructure:"interval"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	Targets  map[string]string `mapstructure:"targets"` // service name -> endpoint base URL
}

type DetectorConfig struct {
	EnsembleSize     int     `mapstructure:"ensemble_size"`
	AnomalyThreshold float64 `mapstructure:"anomaly_threshold"`
	MinSamples       int     `mapstructure:"min_samples"`
	WindowSize       int     `mapstructure:"window_size"`
}

type ForecasterConfig struct {
	Horizon           int           `mapstructure:"horizon"`
	Interval          time.Duration `mapstructure:"interval"`
	StepDuration      time.Duration `mapstructure:"step_duration"`
	MinAdvancedPoints int           `mapstructure:"min_advanced_points"`
	MinPoints         int           `mapstructure:"min_points"`
}

type HealthConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type AlertingConfig struct {
	DedupWindow      time.Duration `mapstructure:"dedup_window"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	CorrelationScore float64       `mapstructure:"correlation_score"`
	MaxActiveAlerts  int           `mapstructure:"max_active_alerts"`
}

type IncidentConfig struct {
	MaxPlanLength int `mapstructure:"max_plan_length"`
}

type ResolutionConfig struct {
	Enabled             bool                 `mapstructure:"enabled"`
	ConfidenceThreshold float64              `mapstructure:"confidence_threshold"`
	MaxConcurrent       int                  `mapstructure:"max_concurrent"`
	ActionTimeout       time.Duration        `mapstructure:"action_timeout"`
	SettleDelay         time.Duration        `mapstructure:"settle_delay"`
	WorkflowRetention   time.Duration        `mapstructure:"workflow_retention"`
	CircuitBreaker      CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ScalingConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	Cooldown        time.Duration `mapstructure:"cooldown"`
	ConfidenceFloor float64       `mapstructure:"confidence_floor"`
	TargetCPU       float64       `mapstructure:"target_cpu"`
	TargetMemory    float64       `mapstructure:"target_memory"`
	MinInstances    int           `mapstructure:"min_instances"`
	MaxInstances    int           `mapstructure:"max_instances"`
}

type NotificationsConfig struct {
	ChatEnabled  bool `mapstructure:"chat_enabled"`
	PagerEnabled bool `mapstructure:"pager_enabled"`
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    int           `mapstructure:"rate_limit"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
