package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type AuthEvent string

const (
	EventSignup        AuthEvent = "signup"
	EventLogin         AuthEvent = "login"
	EventLoginFailed   AuthEvent = "login_failed"
	EventLogout        AuthEvent = "logout"
	EventGuardRejected AuthEvent = "guard_rejected"
)

type Metrics struct {
	mu              sync.RWMutex
	RequestCount    int64               `json:"request_count"`
	RequestDuration time.Duration       `json:"avg_request_duration_ns"`
	ActiveRequests  int64               `json:"active_requests"`
	ErrorCount      int64               `json:"error_count"`
	StatusCodes     map[int]int64       `json:"status_codes"`
	Endpoints       map[string]int64    `json:"endpoint_calls"`
	AuthEvents      map[AuthEvent]int64 `json:"auth_events"`
	StartTime       time.Time           `json:"start_time"`
	LastRequest     time.Time           `json:"last_request"`
	totalDuration   time.Duration
}

type HealthCheckFunc func(ctx context.Context) error

type HealthCheck struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]HealthCheckFunc
}

var globalMetrics = newMetrics()

func newMetrics() *Metrics {
	return &Metrics{
		StatusCodes: make(map[int]int64),
		Endpoints:   make(map[string]int64),
		AuthEvents:  make(map[AuthEvent]int64),
		StartTime:   time.Now(),
	}
}

// Reset clears all counters. Tests use it to isolate assertions.
func Reset() {
	fresh := newMetrics()

	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.RequestCount = 0
	globalMetrics.RequestDuration = 0
	globalMetrics.ActiveRequests = 0
	globalMetrics.ErrorCount = 0
	globalMetrics.StatusCodes = fresh.StatusCodes
	globalMetrics.Endpoints = fresh.Endpoints
	globalMetrics.AuthEvents = fresh.AuthEvents
	globalMetrics.StartTime = fresh.StartTime
	globalMetrics.LastRequest = time.Time{}
	globalMetrics.totalDuration = 0
}

func RecordAuthEvent(event AuthEvent) {
	globalMetrics.mu.Lock()
	globalMetrics.AuthEvents[event]++
	globalMetrics.mu.Unlock()
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		globalMetrics.mu.Lock()
		globalMetrics.ActiveRequests++
		globalMetrics.mu.Unlock()

		// deferred so the counters settle even if a panic unwinds past here
		defer func() {
			statusCode := c.Writer.Status()
			recovered := recover()
			if recovered != nil {
				statusCode = http.StatusInternalServerError
			}
			recordRequest(c.Request.Method+" "+c.FullPath(), statusCode, time.Since(start))
			if recovered != nil {
				panic(recovered)
			}
		}()

		c.Next()
	}
}

func recordRequest(endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.RequestCount++
	globalMetrics.ActiveRequests--
	globalMetrics.totalDuration += duration
	globalMetrics.RequestDuration = globalMetrics.totalDuration / time.Duration(globalMetrics.RequestCount)
	globalMetrics.LastRequest = time.Now()
	if statusCode >= 500 {
		globalMetrics.ErrorCount++
	}
	globalMetrics.StatusCodes[statusCode]++
	globalMetrics.Endpoints[endpoint]++
}

func GetMetrics() *Metrics {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	metrics := &Metrics{
		RequestCount:    globalMetrics.RequestCount,
		RequestDuration: globalMetrics.RequestDuration,
		ActiveRequests:  globalMetrics.ActiveRequests,
		ErrorCount:      globalMetrics.ErrorCount,
		StatusCodes:     make(map[int]int64, len(globalMetrics.StatusCodes)),
		Endpoints:       make(map[string]int64, len(globalMetrics.Endpoints)),
		AuthEvents:      make(map[AuthEvent]int64, len(globalMetrics.AuthEvents)),
		StartTime:       globalMetrics.StartTime,
		LastRequest:     globalMetrics.LastRequest,
	}
	for k, v := range globalMetrics.StatusCodes {
		metrics.StatusCodes[k] = v
	}
	for k, v := range globalMetrics.Endpoints {
		metrics.Endpoints[k] = v
	}
	for k, v := range globalMetrics.AuthEvents {
		metrics.AuthEvents[k] = v
	}
	return metrics
}

type SystemMetrics struct {
	Uptime         string `json:"uptime"`
	GoroutineCount int    `json:"goroutine_count"`
	HeapAllocMB    uint64 `json:"heap_alloc_mb"`
	NumGC          uint32 `json:"num_gc"`
	GoVersion      string `json:"go_version"`
}

func GetSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Uptime:         time.Since(globalMetrics.StartTime).String(),
		GoroutineCount: runtime.NumGoroutine(),
		HeapAllocMB:    m.HeapAlloc / 1024 / 1024,
		NumGC:          m.NumGC,
		GoVersion:      runtime.Version(),
	}
}

func MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"application": GetMetrics(),
			"system":      GetSystemMetrics(),
			"timestamp":   time.Now(),
		})
	}
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[string]HealthCheckFunc)}
}

func (h *HealthChecker) Register(name string, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Run executes every registered check with its own timeout.
func (h *HealthChecker) Run(ctx context.Context) map[string]HealthCheck {
	h.mu.RLock()
	defer h.mu.RUnlock()

	results := make(map[string]HealthCheck, len(h.checks))
	for name, check := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		result := HealthCheck{Name: name, Status: "healthy", LastRun: time.Now()}
		if err := check(checkCtx); err != nil {
			result.Status = "unhealthy"
			result.Message = err.Error()
		}
		cancel()
		results[name] = result
	}
	return results
}

func (h *HealthChecker) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := h.Run(c.Request.Context())

		status := "healthy"
		code := http.StatusOK
		for _, check := range checks {
			if check.Status != "healthy" {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
				break
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"service":   "taskify-backend",
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		})
	}
}

func (h *HealthChecker) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, check := range h.Run(c.Request.Context()) {
			if check.Status != "healthy" {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"reason": check.Name + " not ready",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ready": true})
	}
}
