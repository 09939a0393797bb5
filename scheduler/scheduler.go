package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"vrscout/config"
	"vrscout/pipeline"
	"vrscout/storage"
)

// Scheduler runs the pipeline on a cron or fixed interval and polls
// the SQLite command queue so operators can drive the daemon without
// restarting it.
type Scheduler struct {
	cfg    *config.Config
	pipe   *pipeline.Pipeline
	store  *storage.SQLiteStore
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
}

func New(cfg *config.Config, pipe *pipeline.Pipeline, store *storage.SQLiteStore) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		pipe:   pipe,
		store:  store,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	switch {
	case s.cfg.Scheduler.Cron != "":
		log.Printf("scheduler: cron %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.pipe.RunAll(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	case s.cfg.Scheduler.Interval > 0:
		log.Printf("scheduler: interval %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.pipe.RunAll(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	default:
		log.Println("scheduler: no schedule configured, daemon responds to commands only")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.store.GetPendingCommands()
			if err != nil {
				log.Printf("scheduler: get commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("scheduler: command %s", cmd.Command)
				if err := s.pipe.HandleCommand(ctx, &cmd); err != nil {
					log.Printf("scheduler: command %s: %v", cmd.Command, err)
				}
				if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("scheduler: mark processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
