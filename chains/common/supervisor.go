package common

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	ilerrors "github.com/iLayer-io/iLayer-bot/errors"
	"github.com/iLayer-io/iLayer-bot/metrics"
)

// DefaultBackoff is the pause between two runs of a supervised service.
const DefaultBackoff = 6 * time.Second

// Service is a long-running unit of work. Run returns when ctx is cancelled or
// when the service fails; it is called again after a backoff.
type Service interface {
	Name() string
	Run(ctx context.Context) error
}

// Supervisor restarts a service forever with a fixed backoff. Errors are
// logged and counted, never propagated.
type Supervisor struct {
	chain   string
	backoff time.Duration
	logger  zerolog.Logger
}

// NewSupervisor creates a supervisor for services of one chain.
func NewSupervisor(chain string, backoff time.Duration, logger zerolog.Logger) *Supervisor {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Supervisor{
		chain:   chain,
		backoff: backoff,
		logger:  logger.With().Str("component", "supervisor").Str("chain", chain).Logger(),
	}
}

// Run calls svc.Run until ctx is done and returns ctx.Err().
func (s *Supervisor) Run(ctx context.Context, svc Service) error {
	log := s.logger.With().Str("service", svc.Name()).Logger()
	log.Info().Dur("backoff", s.backoff).Msg("service supervised")

	for attempt := 1; ; attempt++ {
		err := svc.Run(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("service stopped")
			return ctx.Err()
		}

		if err != nil {
			cerr := ilerrors.WrapChainError(err, ilerrors.ErrCodeInternal, s.chain, svc.Name()+" run failed")
			log.Error().
				Err(cerr).
				Int("attempt", attempt).
				Str("code", string(cerr.Code)).
				Str("severity", string(ilerrors.GetSeverity(cerr))).
				Bool("retryable", ilerrors.IsRetryable(cerr)).
				Msg("service failed, restarting after backoff")
			metrics.ServiceRestarts.WithLabelValues(s.chain, svc.Name()).Inc()
		} else {
			log.Debug().Int("attempt", attempt).Msg("service returned, restarting after backoff")
		}

		timer := time.NewTimer(s.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("service stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}
