package workers

import (
	"context"
	"log/slog"
	"os"
	"random-chat/contract"
	"random-chat/observability"
	"random-chat/repositories"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker samples the server process and the pairing state at a
// fixed interval, and publishes the figures to Prometheus and the debug page.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	users          repositories.IUserRepository
	queue          repositories.IQueueRepository
	bus            contract.IBus
	metrics        *observability.Metrics
	monitoring     *observability.MonitoringManager
	metricInterval time.Duration
	proc           *process.Process
	interests      map[string]struct{}
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	users repositories.IUserRepository,
	queue repositories.IQueueRepository,
	bus contract.IBus,
	metrics *observability.Metrics,
	monitoring *observability.MonitoringManager,
	metricInterval time.Duration,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		users:          users,
		queue:          queue,
		bus:            bus,
		metrics:        metrics,
		monitoring:     monitoring,
		metricInterval: metricInterval,
		interests:      make(map[string]struct{}),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	w.proc = proc

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			w.Sample(ctx)
		}
	}
}

// Sample takes one measurement. A failing source is logged and left out of the
// snapshot, the other figures are still published.
func (w *HealthMonitoringWorker) Sample(ctx context.Context) observability.MonitoringStats {
	stats := observability.MonitoringStats{
		ConnectedEndpoints: w.bus.Endpoints(),
		PairingGroups:      w.bus.Groups(),
		QueueDepths:        map[string]int{},
		SampledAt:          time.Now().UTC(),
	}

	if users, err := w.users.ActiveUsers(ctx); err != nil {
		w.log.Error("Unable to count active users", "error", err)
	} else {
		stats.ActiveUsers = len(users)
	}

	if depths, err := w.queue.Depths(ctx); err != nil {
		w.log.Error("Unable to read queue depths", "error", err)
	} else {
		stats.QueueDepths = depths
	}

	if w.proc != nil {
		if cpu, err := w.proc.CPUPercent(); err != nil {
			w.log.Debug("Error while finding process cpu usage", "error", err)
		} else {
			stats.CPUPercent = cpu
		}
		if mem, err := w.proc.MemoryInfo(); err != nil {
			w.log.Debug("Error while finding process memory usage", "error", err)
		} else {
			stats.RSSMb = mem.RSS / 1024 / 1024
			w.metrics.ProcessRSSBytes.Set(float64(mem.RSS))
		}
	}

	w.publish(stats)
	return stats
}

func (w *HealthMonitoringWorker) publish(stats observability.MonitoringStats) {
	w.metrics.ActiveUsers.Set(float64(stats.ActiveUsers))
	w.metrics.ConnectedEndpoints.Set(float64(stats.ConnectedEndpoints))
	w.metrics.PairingGroups.Set(float64(stats.PairingGroups))
	w.metrics.ProcessCPUPercent.Set(stats.CPUPercent)

	// Interests that emptied since the previous sample are removed from the gauge.
	for interest := range w.interests {
		if _, ok := stats.QueueDepths[interest]; !ok {
			w.metrics.QueueDepth.DeleteLabelValues(interest)
			delete(w.interests, interest)
		}
	}
	for interest, depth := range stats.QueueDepths {
		w.metrics.QueueDepth.WithLabelValues(interest).Set(float64(depth))
		w.interests[interest] = struct{}{}
	}

	w.monitoring.Update(stats)
	w.log.Debug("Health sample",
		"users", stats.ActiveUsers,
		"endpoints", stats.ConnectedEndpoints,
		"groups", stats.PairingGroups,
		"cpu", stats.CPUPercent,
	)
}
