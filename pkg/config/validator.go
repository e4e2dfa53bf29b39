package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database validation (only when the archive is enabled)
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	// Telemetry validation
	if c.Telemetry.BufferCapacity <= 0 {
		errs = append(errs, errors.New("telemetry.buffer_capacity must be positive"))
	}
	if c.Telemetry.QueueSize <= 0 {
		errs = append(errs, errors.New("telemetry.queue_size must be positive"))
	}
	if c.Telemetry.DrainInterval <= 0 {
		errs = append(errs, errors.New("telemetry.drain_interval must be positive"))
	}

	// Detector validation
	if c.Detector.EnsembleSize <= 0 {
		errs = append(errs, errors.New("detector.ensemble_size must be positive"))
	}
	if c.Detector.AnomalyThreshold <= 0 || c.Detector.AnomalyThreshold > 1 {
		errs = append(errs, errors.New("detector.anomaly_threshold must be in (0, 1]"))
	}
	if c.Detector.MinSamples <= 0 {
		errs = append(errs, errors.New("detector.min_samples must be positive"))
	}

	// Forecaster validation
	if c.Forecaster.Horizon <= 0 {
		errs = append(errs, errors.New("forecaster.horizon must be positive"))
	}
	if c.Forecaster.MinPoints <= 0 || c.Forecaster.MinAdvancedPoints <= c.Forecaster.MinPoints {
		errs = append(errs, errors.New("forecaster.min_advanced_points must be greater than min_points"))
	}

	// Alerting validation
	if c.Alerting.DedupWindow <= 0 {
		errs = append(errs, errors.New("alerting.dedup_window must be positive"))
	}
	if c.Alerting.CorrelationScore <= 0 || c.Alerting.CorrelationScore > 1 {
		errs = append(errs, errors.New("alerting.correlation_score must be in (0, 1]"))
	}

	// Resolution validation
	if c.Resolution.ConfidenceThreshold <= 0 || c.Resolution.ConfidenceThreshold > 1 {
		errs = append(errs, errors.New("resolution.confidence_threshold must be in (0, 1]"))
	}
	if c.Resolution.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("resolution.max_concurrent must be positive"))
	}
	if c.Resolution.ActionTimeout <= 0 {
		errs = append(errs, errors.New("resolution.action_timeout must be positive"))
	}

	// Scaling validation
	if c.Scaling.MinInstances <= 0 {
		errs = append(errs, errors.New("scaling.min_instances must be positive"))
	}
	if c.Scaling.MaxInstances < c.Scaling.MinInstances {
		errs = append(errs, errors.New("scaling.max_instances must be >= min_instances"))
	}
	if c.Scaling.Cooldown <= 0 {
		errs = append(errs, errors.New("scaling.cooldown must be positive"))
	}
	if c.Scaling.ConfidenceFloor < 0 || c.Scaling.ConfidenceFloor > 1 {
		errs = append(errs, errors.New("scaling.confidence_floor must be in [0, 1]"))
	}
	if c.Scaling.TargetCPU <= 0 || c.Scaling.TargetCPU > 1 {
		errs = append(errs, errors.New("scaling.target_cpu must be in (0, 1]"))
	}
	if c.Scaling.TargetMemory <= 0 || c.Scaling.TargetMemory > 1 {
		errs = append(errs, errors.New("scaling.target_memory must be in (0, 1]"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
