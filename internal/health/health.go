package health

import (
	"context"
	"time"
)

// Pinger is anything that can report reachability: a pgx pool, a *sql.DB
// wrapper, a Redis client adapter
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthChecker struct {
	db    Pinger
	cache Pinger
}

type HealthStatus struct {
	Status  string          `json:"status"`
	Storage ComponentHealth `json:"storage"`
	Cache   ComponentHealth `json:"cache"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

// NewHealthChecker checks db (nil for in-memory storage) and an optional cache.
// The cache never makes the service unhealthy.
func NewHealthChecker(db Pinger, cache Pinger) *HealthChecker {
	return &HealthChecker{db: db, cache: cache}
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	storage := check(h.db, "memory")
	cache := check(h.cache, "disabled")

	status := "healthy"
	if storage.Status == "unhealthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:  status,
		Storage: storage,
		Cache:   cache,
	}
}

func check(p Pinger, absent string) ComponentHealth {
	if p == nil {
		return ComponentHealth{Status: absent}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}
