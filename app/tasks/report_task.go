package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lysyi3m/media-monitor/app/report"
)

type ReportTask struct {
	Task
	monitor MonitorInterface
	dir     string
}

func NewReportTask(monitor MonitorInterface, dir string) *ReportTask {
	return &ReportTask{
		Task:    NewTask(TaskTypeReport),
		monitor: monitor,
		dir:     dir,
	}
}

func (t *ReportTask) Execute(ctx context.Context) error {
	r, err := t.monitor.WeeklyReport(ctx)
	if err != nil {
		return fmt.Errorf("failed to compile report: %w", err)
	}

	path, err := WriteReport(t.dir, r)
	if err != nil {
		return err
	}

	slog.Info("Weekly report written",
		"path", path,
		"week", r.Week,
		"trends", r.Statistics.TrendingTopics,
		"experts", r.Statistics.Experts,
		"suggestions", r.Statistics.Suggestions)

	return nil
}

// WriteReport stores r as indented JSON under dir and returns the file path.
// An existing report for the same week is replaced.
func WriteReport(dir string, r report.Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(dir, r.FileName())
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}
