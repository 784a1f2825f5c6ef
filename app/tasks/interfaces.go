package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/media-monitor/app/monitor"
	"github.com/lysyi3m/media-monitor/app/report"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to run scans, pruning and reports in the background.
// Example usage:
//
//	scheduler, err := NewScheduler(engine, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewScanTask(engine, 24))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// MonitorInterface is the part of monitor.Engine the tasks drive
type MonitorInterface interface {
	Scan(ctx context.Context, hoursBack int) (monitor.ScanResult, error)
	ExtractContent(ctx context.Context, hoursBack int) (monitor.ExtractResult, error)
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
	WeeklyReport(ctx context.Context) (report.Report, error)
}

var _ MonitorInterface = (*monitor.Engine)(nil)
