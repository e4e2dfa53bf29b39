package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/internal/logger"
)

type Config struct {
	Port      int
	TargetURL string        // telemetry ingest endpoint of the engine API
	Interval  time.Duration // how often to emit one snapshot per service
}

// Simulator generates synthetic service telemetry and pushes it to the
// engine's ingest endpoint. A small control API allows creating services,
// switching load patterns, and injecting faults while the engine runs.
type Simulator struct {
	config     Config
	services   map[string]*ServiceSim
	mu         sync.RWMutex
	httpServer *http.Server
	httpClient *http.Client
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func New(cfg Config) *Simulator {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	if cfg.TargetURL == "" {
		cfg.TargetURL = "http://localhost:8080/api/v1/telemetry"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}

	return &Simulator{
		config:   cfg,
		services: make(map[string]*ServiceSim),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Simulator) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", cors(s.healthHandler))
	mux.HandleFunc("/services", cors(s.listServicesHandler))
	mux.HandleFunc("/services/", cors(s.serviceHandler))
	mux.HandleFunc("/spike", cors(s.spikeHandler))
	mux.HandleFunc("/memoryleak", cors(s.memoryLeakHandler))
	mux.HandleFunc("/errorburst", cors(s.errorBurstHandler))
	mux.HandleFunc("/pattern", cors(s.patternHandler))

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Simulator listening on %s, pushing to %s", addr, s.config.TargetURL)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.pump(ctx)

	return nil
}

func (s *Simulator) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// pump emits one snapshot per service per interval.
func (s *Simulator) pump(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.emit(ctx)
		}
	}
}

type telemetryBatch struct {
	ServiceName string             `json:"service_name"`
	Timestamp   time.Time          `json:"timestamp"`
	Metrics     map[string]float64 `json:"metrics"`
}

func (s *Simulator) emit(ctx context.Context) {
	s.mu.RLock()
	batch := make([]telemetryBatch, 0, len(s.services))
	for name, sim := range s.services {
		batch = append(batch, telemetryBatch{
			ServiceName: name,
			Timestamp:   time.Now(),
			Metrics:     sim.Snapshot(),
		})
	}
	s.mu.RUnlock()

	if len(batch) == 0 {
		return
	}

	body, err := json.Marshal(batch)
	if err != nil {
		logger.Errorf("Failed to marshal telemetry batch: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.TargetURL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Warnf("Telemetry push failed: %v", err)
		return
	}
	resp.Body.Close()
}

func (s *Simulator) GetOrCreateService(name string) *ServiceSim {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sim, exists := s.services[name]; exists {
		return sim
	}

	sim := NewServiceSim(name, ServiceSimConfig{})
	s.services[name] = sim

	logger.Infof("Created simulated service: %s", name)
	return sim
}

func (s *Simulator) GetService(name string) (*ServiceSim, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sim, exists := s.services[name]
	return sim, exists
}

// HTTP Handlers

func (s *Simulator) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "telemetry-simulator",
	})
}

func (s *Simulator) listServicesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	services := make([]map[string]interface{}, 0, len(s.services))
	for name, sim := range s.services {
		services = append(services, map[string]interface{}{
			"name":    name,
			"pattern": sim.GetPattern(),
		})
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"services": services,
		"count":    len(services),
	})
}

func (s *Simulator) serviceHandler(w http.ResponseWriter, r *http.Request) {
	// Extract service name from path: /services/{name}
	name := r.URL.Path[len("/services/"):]
	if name == "" {
		http.Error(w, "service name required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getServiceHandler(w, r, name)
	case http.MethodPost:
		s.createServiceHandler(w, r, name)
	case http.MethodDelete:
		s.deleteServiceHandler(w, r, name)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Simulator) getServiceHandler(w http.ResponseWriter, r *http.Request, name string) {
	sim, exists := s.GetService(name)
	if !exists {
		http.Error(w, "service not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sim.Status())
}

type CreateServiceRequest struct {
	BaseCPU          float64 `json:"base_cpu"`
	BaseMemory       float64 `json:"base_memory"`
	BaseErrorRate    float64 `json:"base_error_rate"`
	BaseResponseTime float64 `json:"base_response_time"`
	BaseThroughput   float64 `json:"base_throughput"`
	Variance         float64 `json:"variance"`
}

func (s *Simulator) createServiceHandler(w http.ResponseWriter, r *http.Request, name string) {
	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	sim := NewServiceSim(name, ServiceSimConfig{
		BaseCPU:          req.BaseCPU,
		BaseMemory:       req.BaseMemory,
		BaseErrorRate:    req.BaseErrorRate,
		BaseResponseTime: req.BaseResponseTime,
		BaseThroughput:   req.BaseThroughput,
		Variance:         req.Variance,
	})
	s.services[name] = sim
	s.mu.Unlock()

	logger.Infof("Created service %s", name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sim.Status())
}

func (s *Simulator) deleteServiceHandler(w http.ResponseWriter, r *http.Request, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.services[name]; !exists {
		http.Error(w, "service not found", http.StatusNotFound)
		return
	}

	delete(s.services, name)
	logger.Infof("Deleted service %s", name)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "service deleted"})
}

type SpikeRequest struct {
	Service   string  `json:"service"`
	CPUTarget float64 `json:"cpu_target"`
	Duration  string  `json:"duration"`
	RampUp    string  `json:"ramp_up"`
}

func (s *Simulator) spikeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SpikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sim := s.GetOrCreateService(req.Service)

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		duration = 5 * time.Minute
	}

	rampUp, err := time.ParseDuration(req.RampUp)
	if err != nil {
		rampUp = 30 * time.Second
	}

	sim.InjectSpike(req.CPUTarget, duration, rampUp)

	logger.Infof("Injected CPU spike on %s: target=%.2f, duration=%s",
		req.Service, req.CPUTarget, duration)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    "spike injected",
		"service":    req.Service,
		"cpu_target": req.CPUTarget,
		"duration":   duration.String(),
		"ramp_up":    rampUp.String(),
	})
}

type MemoryLeakRequest struct {
	Service      string  `json:"service"`
	MemoryTarget float64 `json:"memory_target"`
	Duration     string  `json:"duration"`
}

func (s *Simulator) memoryLeakHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MemoryLeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sim := s.GetOrCreateService(req.Service)

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		duration = 30 * time.Minute
	}

	sim.InjectMemoryLeak(req.MemoryTarget, duration)

	logger.Infof("Injected memory leak on %s: target=%.2f over %s",
		req.Service, req.MemoryTarget, duration)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":       "memory leak injected",
		"service":       req.Service,
		"memory_target": req.MemoryTarget,
		"duration":      duration.String(),
	})
}

type ErrorBurstRequest struct {
	Service   string  `json:"service"`
	ErrorRate float64 `json:"error_rate"`
	Duration  string  `json:"duration"`
}

func (s *Simulator) errorBurstHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ErrorBurstRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sim := s.GetOrCreateService(req.Service)

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		duration = 2 * time.Minute
	}

	sim.InjectErrorBurst(req.ErrorRate, duration)

	logger.Infof("Injected error burst on %s: rate=%.2f for %s",
		req.Service, req.ErrorRate, duration)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    "error burst injected",
		"service":    req.Service,
		"error_rate": req.ErrorRate,
		"duration":   duration.String(),
	})
}

type PatternRequest struct {
	Service string `json:"service"`
	Pattern string `json:"pattern"` // "steady", "daily", "weekly", "random", "gradual_rise"
}

func (s *Simulator) patternHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sim := s.GetOrCreateService(req.Service)
	sim.SetPattern(ParsePattern(req.Pattern))

	logger.Infof("Set pattern %s on service %s", req.Pattern, req.Service)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "pattern set",
		"service": req.Service,
		"pattern": req.Pattern,
	})
}
