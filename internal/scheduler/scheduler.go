package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/kentsubra71/keystone/pkg/config"

	"github.com/charmbracelet/log"
)

const defaultRunTimeout = 5 * time.Minute

// Task is one periodic job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs each task on its own ticker until stopped.
type Scheduler struct {
	tasks      []Task
	runTimeout time.Duration
	logger     *log.Logger
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func New(logger *log.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks:      tasks,
		runTimeout: defaultRunTimeout,
		logger:     logger.WithPrefix("Scheduler"),
		stopChan:   make(chan struct{}),
	}
}

// Start launches one loop per task. Each loop runs immediately, then on every tick.
func (s *Scheduler) Start(ctx context.Context) {
	for _, task := range s.tasks {
		if task.Interval <= 0 || task.Run == nil {
			s.logger.Warn("task disabled", "task", task.Name)
			continue
		}
		s.logger.Info("starting task", "task", task.Name, "interval", task.Interval)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(ctx, task)

			ticker := time.NewTicker(task.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					s.run(ctx, task)
				case <-s.stopChan:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

func (s *Scheduler) run(ctx context.Context, task Task) {
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", "task", task.Name, "panic", r)
		}
	}()

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		s.logger.Error("task failed", "task", task.Name, "err", err)
		return
	}
	s.logger.Debug("task finished", "task", task.Name, "took", time.Since(start))
}

// Stop ends all loops and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// JobTasks maps the pipeline jobs onto their configured intervals.
func JobTasks(jobs *Jobs, cfg config.SchedulerConfig) []Task {
	return []Task{
		{Name: "sheet", Interval: cfg.SheetInterval, Run: func(ctx context.Context) error {
			_, err := jobs.SyncSheet(ctx)
			return err
		}},
		{Name: "gmail", Interval: cfg.GmailInterval, Run: func(ctx context.Context) error {
			_, err := jobs.SyncMail(ctx)
			return err
		}},
		{Name: "nudges", Interval: cfg.NudgeInterval, Run: func(ctx context.Context) error {
			_, err := jobs.GenerateNudges(ctx)
			return err
		}},
		{Name: "brief", Interval: cfg.BriefInterval, Run: func(ctx context.Context) error {
			_, err := jobs.GenerateBrief(ctx)
			return err
		}},
	}
}
