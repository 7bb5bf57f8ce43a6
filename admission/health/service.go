// Package health exposes the admission gateway health endpoint: dependency
// checks, counter backend state and process statistics.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ProveniaLabs/lib-admission/admission/counter"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Status represents the health status
type Status string

const (
	StatusUp   Status = "UP"
	StatusDown Status = "DOWN"
)

// Check represents a health check result
type Check struct {
	Status  Status         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// Response represents the health check response
type Response struct {
	Status      Status            `json:"status"`
	ServiceName string            `json:"-"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Hostname    string            `json:"hostname"`
	Timestamp   string            `json:"timestamp"`
	Checks      map[string]*Check `json:"checks"`
	System      *SystemInfo       `json:"system"`
}

// SystemInfo contains system information
type SystemInfo struct {
	Uptime       float64 `json:"uptime"`
	MemoryUsage  float64 `json:"memory_usage"`
	CPUCount     int     `json:"cpu_count"`
	GoroutineNum int     `json:"goroutine_num"`
}

// Checker interface for health checks
type Checker interface {
	Check(ctx context.Context) error
}

// DetailedChecker lets a checker attach details to a passing check.
type DetailedChecker interface {
	Checker
	Details() map[string]any
}

// Service manages health checks
type Service struct {
	serviceName string
	version     string
	environment string
	hostname    string
	checkers    map[string]Checker
	mu          sync.RWMutex
	startTime   time.Time
}

// NewService creates a new health service
func NewService(serviceName, version, environment, hostname string) *Service {
	return &Service{
		serviceName: serviceName,
		version:     version,
		environment: environment,
		hostname:    hostname,
		checkers:    make(map[string]Checker),
		startTime:   time.Now(),
	}
}

// RegisterChecker registers a health checker
func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
}

// Handler returns a fiber handler for health checks
func (s *Service) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.Context()
		response := s.performHealthCheck(ctx)

		statusCode := fiber.StatusOK
		if response.Status == StatusDown {
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(response)
	}
}

func (s *Service) performHealthCheck(ctx context.Context) *Response {
	s.mu.RLock()
	defer s.mu.RUnlock()

	response := &Response{
		Status:      StatusUp,
		ServiceName: s.serviceName,
		Version:     s.version,
		Environment: s.environment,
		Hostname:    s.hostname,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Checks:      make(map[string]*Check),
		System:      s.getSystemInfo(),
	}

	for name, checker := range s.checkers {
		check := &Check{
			Status:  StatusUp,
			Details: make(map[string]any),
		}

		if err := checker.Check(ctx); err != nil {
			check.Status = StatusDown
			check.Details["error"] = err.Error()
			response.Status = StatusDown
		} else if detailed, ok := checker.(DetailedChecker); ok {
			for key, value := range detailed.Details() {
				check.Details[key] = value
			}
		}

		response.Checks[name] = check
	}

	return response
}

func (s *Service) getSystemInfo() *SystemInfo {
	var memStats runtime.MemStats

	runtime.ReadMemStats(&memStats)

	return &SystemInfo{
		Uptime:       time.Since(s.startTime).Seconds(),
		MemoryUsage:  float64(memStats.Alloc) / 1024 / 1024, // MB
		CPUCount:     runtime.NumCPU(),
		GoroutineNum: runtime.NumGoroutine(),
	}
}

// MongoChecker checks MongoDB health
type MongoChecker struct {
	client *mongo.Client
}

// NewMongoChecker creates a new MongoDB health checker
func NewMongoChecker(client *mongo.Client) *MongoChecker {
	return &MongoChecker{client: client}
}

// Check performs the health check
func (c *MongoChecker) Check(ctx context.Context) error {
	if c.client == nil {
		return errors.New("mongo client is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return nil
}

// RedisChecker checks Redis health
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a new Redis health checker
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// Check performs the health check
func (c *RedisChecker) Check(ctx context.Context) error {
	if c.client == nil {
		return errors.New("redis client is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// CounterChecker reports the resilient counter backend state. A degraded
// backend keeps admitting from the local fallback, so it never fails the
// check; the state and timestamps appear in the check details instead.
type CounterChecker struct {
	backend *counter.ResilientBackend
}

// NewCounterChecker creates a checker over the resilient counter backend.
func NewCounterChecker(backend *counter.ResilientBackend) *CounterChecker {
	return &CounterChecker{backend: backend}
}

// Check performs the health check
func (c *CounterChecker) Check(context.Context) error {
	if c.backend == nil {
		return errors.New("counter backend is nil")
	}

	return nil
}

// Details exposes the backend state and the last success and failure times.
func (c *CounterChecker) Details() map[string]any {
	if c.backend == nil {
		return nil
	}

	snapshot := c.backend.Health()
	details := map[string]any{
		"state": string(snapshot.State),
	}

	if !snapshot.LastSuccess.IsZero() {
		details["last_success"] = snapshot.LastSuccess.UTC().Format(time.RFC3339)
	}

	if !snapshot.LastFailure.IsZero() {
		details["last_failure"] = snapshot.LastFailure.UTC().Format(time.RFC3339)
	}

	return details
}

// CustomChecker allows custom health checks
type CustomChecker struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCustomChecker creates a new custom health checker
func NewCustomChecker(name string, fn func(ctx context.Context) error) *CustomChecker {
	return &CustomChecker{
		name: name,
		fn:   fn,
	}
}

// Check performs the health check
func (c *CustomChecker) Check(ctx context.Context) error {
	if c.fn == nil {
		return errors.New("custom check function is nil")
	}

	return c.fn(ctx)
}

// MarshalJSON custom JSON marshalling for Response
func (r *Response) MarshalJSON() ([]byte, error) {
	type Alias Response

	return json.Marshal(&struct {
		*Alias
		Service string `json:"service"`
	}{
		Alias:   (*Alias)(r),
		Service: fmt.Sprintf("%s:%s", r.ServiceName, r.Version),
	})
}
