package deadlines

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Service schedules the reminder sweep on a cron spec.
type Service struct {
	sweeper *Sweeper
	cron    *cron.Cron
	spec    string
	log     zerolog.Logger
}

func NewService(sweeper *Sweeper, spec string, log zerolog.Logger) *Service {
	return &Service{
		sweeper: sweeper,
		cron:    cron.New(),
		spec:    spec,
		log:     log,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Service) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.sweeper.Sweep(ctx); err != nil {
			s.log.Error().Err(err).Msg("scheduled deadline sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule deadline sweep %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("deadline sweep scheduled")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Service) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}
