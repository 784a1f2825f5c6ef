package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type ScanTask struct {
	Task
	monitor   MonitorInterface
	hoursBack int
	changed   int
}

func NewScanTask(monitor MonitorInterface, hoursBack int) *ScanTask {
	return &ScanTask{
		Task:      NewTask(TaskTypeScan),
		monitor:   monitor,
		hoursBack: hoursBack,
	}
}

func (t *ScanTask) Execute(ctx context.Context) error {
	result, err := t.monitor.Scan(ctx, t.hoursBack)
	if err != nil {
		return fmt.Errorf("failed to scan feeds: %w", err)
	}

	t.changed = result.Stored + result.Updated

	for _, itemErr := range result.Errors {
		slog.Debug("Scan item failed", "kind", string(itemErr.Kind), "item", itemErr.Item, "error", itemErr.Message)
	}

	slog.Info("Scan task completed",
		"stored", result.Stored,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", t.GetDuration().String())

	return nil
}

// FollowUp returns the content extraction for the articles this scan
// stored, or nil when nothing changed.
func (t *ScanTask) FollowUp() TaskInterface {
	if t.changed == 0 {
		return nil
	}
	return NewExtractContentTask(t.monitor, t.hoursBack)
}
