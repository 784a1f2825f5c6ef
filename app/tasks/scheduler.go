package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/media-monitor/app/metrics"
	"github.com/lysyi3m/media-monitor/app/monitor"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Schedule holds the cron expressions of the recurring tasks. Empty
// expressions disable the task.
type Schedule struct {
	Scan   string
	Prune  string
	Report string
}

type SchedulerOptions struct {
	WorkerCount int
	ScanHours   int
	Retention   time.Duration
	ReportDir   string
	Schedule    Schedule
	TaskTimeout time.Duration // 5 minutes when zero
	RetryDelay  time.Duration // base of the exponential retry delay, 1s when zero
	ScanOnStart bool
}

type Scheduler struct {
	monitor     MonitorInterface
	cron        *cron.Cron
	opts        SchedulerOptions
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewScheduler registers the recurring tasks. Invalid cron expressions are
// reported here, before anything runs.
func NewScheduler(m MonitorInterface, opts SchedulerOptions) (*Scheduler, error) {
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 5 * time.Minute
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		monitor:     m,
		cron:        cron.New(cron.WithParser(cronParser)),
		opts:        opts,
		workerCount: max(opts.WorkerCount, 1),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}

	jobs := []struct {
		name string
		spec string
		task func() TaskInterface
	}{
		{"scan", opts.Schedule.Scan, func() TaskInterface { return NewScanTask(m, opts.ScanHours) }},
		{"prune", opts.Schedule.Prune, func() TaskInterface { return NewPruneTask(m, opts.Retention) }},
		{"report", opts.Schedule.Report, func() TaskInterface { return NewReportTask(m, opts.ReportDir) }},
	}

	for _, job := range jobs {
		if job.spec == "" {
			slog.Debug("Task schedule disabled", "task", job.name)
			continue
		}

		newTask := job.task
		if _, err := s.cron.AddFunc(job.spec, func() { s.enqueue(newTask()) }); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to parse %s schedule %q: %w", job.name, job.spec, err)
		}
		slog.Debug("Task scheduled", "task", job.name, "schedule", job.spec)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.opts.ScanOnStart {
		s.enqueue(NewScanTask(s.monitor, s.opts.ScanHours))
	}

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if s.ctx.Err() != nil {
		return s.ctx.Err()
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueue(task TaskInterface) {
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "id", task.GetID(), "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.opts.TaskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	metrics.RecordTask(string(task.GetType()), err == nil, task.GetDuration().Seconds())

	if err == nil {
		slog.Debug("Task completed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration().String())
		if scan, ok := task.(*ScanTask); ok {
			if next := scan.FollowUp(); next != nil {
				s.enqueue(next)
			}
		}
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if errors.Is(err, monitor.ErrInvalidConfig) || errors.Is(err, monitor.ErrInvalidArgument) {
		slog.Error("Task failed permanently", "type", string(task.GetType()), "id", task.GetID(), "error", err)
		return
	}

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := min(s.opts.RetryDelay*time.Duration(1<<uint(task.GetRetryCount()-1)), 30*time.Second)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
