package workers

import (
	"chat-relay/contract"
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*HeartbeatWorker)(nil)

// HeartbeatWorker periodically logs process health (CPU, RSS) together with
// the relay counters, so a stalled pipeline is visible without a debugger.
type HeartbeatWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, monitor *observability.Monitor, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, monitor: monitor, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting relay heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			stats := w.monitor.Snapshot()
			w.log.Info("Relay heartbeat",
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"messages_posted", stats.MessagesPosted,
				"deliveries", stats.Deliveries,
				"deliveries_dropped", stats.DeliveriesDropped,
				"provider_calls", stats.ProviderCalls,
				"history_replays", stats.HistoryReplays)
		}
	}
}

// selfStats retrieves memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
