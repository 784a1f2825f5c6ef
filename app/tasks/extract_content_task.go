package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// ExtractContentTask fetches the full text of recently stored articles
// that only carry their feed summary, so quotes in the article body reach
// the expert index.
type ExtractContentTask struct {
	Task
	monitor   MonitorInterface
	hoursBack int
}

func NewExtractContentTask(monitor MonitorInterface, hoursBack int) *ExtractContentTask {
	return &ExtractContentTask{
		Task:      NewTask(TaskTypeExtractContent),
		monitor:   monitor,
		hoursBack: hoursBack,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.monitor.ExtractContent(ctx, t.hoursBack)
	if err != nil {
		return fmt.Errorf("failed to extract article content: %w", err)
	}

	for _, itemErr := range result.Errors {
		slog.Debug("Content extraction failed", "kind", string(itemErr.Kind), "item", itemErr.Item, "error", itemErr.Message)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"success", result.Extracted,
		"errors", result.Failed,
		"quotes", result.Quotes)

	return nil
}
