package service

import (
	"context"
	"time"

	"github.com/examguard/examguard/config"
	"github.com/examguard/examguard/internal/repository"
	"github.com/rs/zerolog/log"
)

// ExpirySweeper periodically scans live attempts and pushes the ones whose
// time ran out through the guarded Expire transition. It shares the version
// check with every other writer, so a sweep racing an admin override resolves
// to exactly one applied transition. A failed cycle is logged and retried on
// the next tick, never fatal.
type ExpirySweeper struct {
	attemptRepo repository.AttemptRepository
	timer       TimerService
	lifecycle   AttemptLifecycleService
	interval    time.Duration
	clock       func() time.Time
	stop        chan struct{}
	done        chan struct{}
}

func NewExpirySweeper(
	attemptRepo repository.AttemptRepository,
	timer TimerService,
	lifecycle AttemptLifecycleService,
	cfg *config.Config,
) *ExpirySweeper {
	return &ExpirySweeper{
		attemptRepo: attemptRepo,
		timer:       timer,
		lifecycle:   lifecycle,
		interval:    time.Duration(cfg.Proctoring.SweepIntervalSeconds) * time.Second,
		clock:       time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *ExpirySweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *ExpirySweeper) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Info().Dur("interval", s.interval).Msg("Expiry sweeper started")
	for {
		select {
		case <-ticker.C:
			expired, err := s.SweepOnce(s.clock())
			if err != nil {
				log.Error().Err(err).Msg("Expiry sweep failed, will retry next pass")
				continue
			}
			if expired > 0 {
				log.Info().Int("expired", expired).Msg("Expiry sweep applied transitions")
			}
		case <-ctx.Done():
			log.Info().Msg("Expiry sweeper stopping")
			return
		case <-s.stop:
			log.Info().Msg("Expiry sweeper stopping")
			return
		}
	}
}

// SweepOnce evaluates every live attempt against the clock and expires the
// ones that are out of time. Per-attempt failures are logged and skipped so
// one bad row cannot stall the rest of the pass.
func (s *ExpirySweeper) SweepOnce(now time.Time) (int, error) {
	attempts, err := s.attemptRepo.ListActiveWithExam()
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range attempts {
		attempt := &attempts[i]
		should, reason := s.timer.ShouldExpire(attempt, &attempt.Exam, now)
		if !should {
			continue
		}
		if _, err := s.lifecycle.Expire(attempt.ID, reason, now); err != nil {
			log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Failed to expire attempt, skipping")
			continue
		}
		expired++
	}
	return expired, nil
}
