package health

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is anything that answers a ping, e.g. *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheProbe reports whether the folder cache backend is reachable
type CacheProbe interface {
	IsHealthy(ctx context.Context) bool
}

// DiskLimit is the usage above which the storage volume is reported unhealthy
const DiskLimit = 95.0

type HealthChecker struct {
	db          Pinger
	cache       CacheProbe
	storageRoot string
}

type HealthStatus struct {
	Status            string          `json:"status"`
	Database          ComponentHealth `json:"database"`
	Cache             ComponentHealth `json:"cache"`
	Storage           StorageHealth   `json:"storage"`
	MemoryUsedPercent float64         `json:"memory_used_percent"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type StorageHealth struct {
	Status      string  `json:"status"`
	Path        string  `json:"path,omitempty"`
	UsedPercent float64 `json:"used_percent"`
	FreeBytes   uint64  `json:"free_bytes"`
}

// NewHealthChecker takes optional collaborators; nil ones are reported as
// "disabled" and never fail readiness. storageRoot is the local folder tree
// root, empty when documents are not stored on this host.
func NewHealthChecker(db Pinger, cache CacheProbe, storageRoot string) *HealthChecker {
	return &HealthChecker{db: db, cache: cache, storageRoot: storageRoot}
}

func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	s := HealthStatus{
		Database: h.checkDatabase(ctx),
		Cache:    h.checkCache(ctx),
		Storage:  h.checkStorage(ctx),
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.MemoryUsedPercent = vm.UsedPercent
	}

	// A cache outage only costs a folder lookup, so it degrades instead of failing
	s.Status = "healthy"
	switch {
	case s.Database.Status == "unhealthy" || s.Storage.Status == "unhealthy":
		s.Status = "unhealthy"
	case s.Cache.Status == "unhealthy":
		s.Status = "degraded"
	}
	return s
}

func (h *HealthChecker) checkDatabase(ctx context.Context) ComponentHealth {
	if h.db == nil {
		return ComponentHealth{Status: "disabled"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{Status: "unhealthy", ResponseTime: responseTime}
	}
	return ComponentHealth{Status: "healthy", ResponseTime: responseTime}
}

func (h *HealthChecker) checkCache(ctx context.Context) ComponentHealth {
	if h.cache == nil {
		return ComponentHealth{Status: "disabled"}
	}
	start := time.Now()
	ok := h.cache.IsHealthy(ctx)
	responseTime := time.Since(start).Milliseconds()

	if !ok {
		return ComponentHealth{Status: "unhealthy", ResponseTime: responseTime}
	}
	return ComponentHealth{Status: "healthy", ResponseTime: responseTime}
}

func (h *HealthChecker) checkStorage(ctx context.Context) StorageHealth {
	if h.storageRoot == "" {
		return StorageHealth{Status: "disabled"}
	}
	usage, err := disk.UsageWithContext(ctx, h.storageRoot)
	if err != nil {
		return StorageHealth{Status: "unhealthy", Path: h.storageRoot}
	}

	status := "healthy"
	if usage.UsedPercent > DiskLimit {
		status = "unhealthy"
	}
	return StorageHealth{
		Status:      status,
		Path:        h.storageRoot,
		UsedPercent: usage.UsedPercent,
		FreeBytes:   usage.Free,
	}
}
