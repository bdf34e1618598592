package health

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is satisfied by the postgres store; the memory store has no pinger
type Pinger interface {
	Ping(ctx context.Context) error
}

// CachePinger is satisfied by *cache.Cache
type CachePinger interface {
	IsHealthy(ctx context.Context) bool
}

type HealthChecker struct {
	db     Pinger
	cache  CachePinger
	driver string
}

type HealthStatus struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
	Cache    string         `json:"cache"`
	Host     *HostHealth    `json:"host,omitempty"`
}

type DatabaseHealth struct {
	Driver       string `json:"driver"`
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type HostHealth struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	MemoryAvailableMB uint64  `json:"memory_available_mb"`
}

func NewHealthChecker(driver string, db Pinger, cache CachePinger) *HealthChecker {
	return &HealthChecker{db: db, cache: cache, driver: driver}
}

// CheckBasic reports database reachability. The cache is informational: the
// service runs without it.
func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	cache := "disabled"
	if h.cache != nil {
		cache = "unavailable"
		if h.cache.IsHealthy(ctx) {
			cache = "healthy"
		}
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
		Cache:    cache,
	}
}

// CheckDetailed adds host memory figures to the basic check
func (h *HealthChecker) CheckDetailed(ctx context.Context) HealthStatus {
	status := h.CheckBasic(ctx)
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.Host = &HostHealth{
			MemoryUsedPercent: vm.UsedPercent,
			MemoryAvailableMB: vm.Available / 1024 / 1024,
		}
	}
	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DatabaseHealth {
	if h.db == nil {
		return DatabaseHealth{Driver: h.driver, Status: "healthy"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{
			Driver:       h.driver,
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return DatabaseHealth{
		Driver:       h.driver,
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}
