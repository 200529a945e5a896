package models

import "time"

// SystemMetrics is a JSON snapshot of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	ScheduleConflicts        map[string]uint64 `json:"schedule_conflicts"`
	RoomSearches             uint64            `json:"room_searches"`
	ExportsFinished          uint64            `json:"exports_finished"`
	ExportsFailed            uint64            `json:"exports_failed"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}
