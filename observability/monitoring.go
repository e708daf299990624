package observability

import (
	"sync"
	"time"
)

// MonitoringStats is the latest snapshot shown on the debug page.
type MonitoringStats struct {
	ActiveUsers        int            `json:"active_users"`
	ConnectedEndpoints int            `json:"connected_endpoints"`
	PairingGroups      int            `json:"pairing_groups"`
	QueueDepths        map[string]int `json:"queue_depths"`
	CPUPercent         float64        `json:"cpu_percent"`
	RSSMb              uint64         `json:"rss_mb"`
	SampledAt          time.Time      `json:"sampled_at"`
}

// MonitoringManager keeps the last telemetry sample for readers that are not Prometheus.
type MonitoringManager struct {
	mu          sync.RWMutex
	latestStats MonitoringStats
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{latestStats: MonitoringStats{QueueDepths: make(map[string]int)}}
}

func (mm *MonitoringManager) Update(stats MonitoringStats) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats = stats
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	stats := mm.latestStats
	stats.QueueDepths = make(map[string]int, len(mm.latestStats.QueueDepths))
	for interest, depth := range mm.latestStats.QueueDepths {
		stats.QueueDepths[interest] = depth
	}
	return stats
}

// AsMap flattens the snapshot for the HTML inspector.
func (s MonitoringStats) AsMap() map[string]any {
	return map[string]any{
		"Active users":        s.ActiveUsers,
		"Connected endpoints": s.ConnectedEndpoints,
		"Pairing groups":      s.PairingGroups,
		"Waiting by interest": s.QueueDepths,
		"CPU %":               s.CPUPercent,
		"RSS (MB)":            s.RSSMb,
		"Sampled at":          s.SampledAt.Format(time.TimeOnly),
	}
}
