package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type PruneTask struct {
	Task
	monitor   MonitorInterface
	retention time.Duration
}

func NewPruneTask(monitor MonitorInterface, retention time.Duration) *PruneTask {
	return &PruneTask{
		Task:      NewTask(TaskTypePrune),
		monitor:   monitor,
		retention: retention,
	}
}

func (t *PruneTask) Execute(ctx context.Context) error {
	removed, err := t.monitor.Prune(ctx, t.retention)
	if err != nil {
		return fmt.Errorf("failed to prune articles: %w", err)
	}

	if removed > 0 {
		slog.Info("Pruned old articles", "removed", removed, "retention", t.retention.String())
	} else {
		slog.Debug("No articles to prune", "retention", t.retention.String())
	}

	return nil
}
