package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/pkg/models"
)

type HTTPCollector struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

type HTTPCollectorConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPCollector(cfg HTTPCollectorConfig) *HTTPCollector {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPCollector{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: cfg.Endpoint,
		timeout:  timeout,
	}
}

// scrapeResponse matches the expected response from a metrics endpoint
type scrapeResponse struct {
	ServiceName string             `json:"service_name"`
	Timestamp   string             `json:"timestamp"`
	Metrics     map[string]float64 `json:"metrics"`
}

func (c *HTTPCollector) Collect(ctx context.Context, serviceName string) (*models.MetricsSnapshot, error) {
	url := fmt.Sprintf("%s/%s", c.endpoint, serviceName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrCollectionFailed, err)
	}

	req.Header.Set("Accept", "application/json")

	logger.WithService(serviceName).Debugf("Collecting metrics from %s", url)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrServiceNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrCollectionFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrCollectionFailed, err)
	}

	var scraped scrapeResponse
	if err := json.Unmarshal(body, &scraped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(scraped.Metrics) == 0 {
		return nil, fmt.Errorf("%w: no metrics in response", ErrInvalidResponse)
	}

	snapshot := c.convertResponse(serviceName, &scraped)

	logger.WithService(serviceName).Debugf("Collected %d metrics", len(snapshot.Values))

	return snapshot, nil
}

func (c *HTTPCollector) convertResponse(serviceName string, resp *scrapeResponse) *models.MetricsSnapshot {
	timestamp := time.Now()
	if resp.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, resp.Timestamp); err == nil {
			timestamp = parsed
		}
	}

	snapshot := models.NewMetricsSnapshot(serviceName)
	snapshot.Timestamp = timestamp
	for metric, value := range resp.Metrics {
		snapshot.Set(metric, value)
	}
	return snapshot
}

func (c *HTTPCollector) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", c.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *HTTPCollector) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
