package collector

import (
	"context"
	"errors"

	"github.com/autonomiq/opsengine/pkg/models"
)

var (
	ErrCollectionFailed = errors.New("metric collection failed")
	ErrTimeout          = errors.New("collection timeout")
	ErrServiceNotFound  = errors.New("service not found")
	ErrInvalidResponse  = errors.New("invalid response from data source")
)

// Collector fetches a metrics snapshot for one service from an external
// source. Used for services that cannot push telemetry themselves.
type Collector interface {
	// Collect fetches the current metrics for a service
	Collect(ctx context.Context, serviceName string) (*models.MetricsSnapshot, error)

	// HealthCheck verifies the collector can reach its data source
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the collector
	Close() error
}
