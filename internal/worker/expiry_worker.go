package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// ExpiryBatchSize caps how many due attempts one poll handles.
	ExpiryBatchSize = 100
)

// AttemptExpirer finalizes overdue attempts. Implemented by the attempt
// service.
type AttemptExpirer interface {
	ForceExpire(ctx context.Context, attemptID uuid.UUID) error
	SweepExpired(ctx context.Context) (int, error)
}

// DeadlineIndex is the scheduled-deadline lookup the worker polls.
// Implemented by the Redis attempt cache.
type DeadlineIndex interface {
	DueAttempts(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error)
	RemoveDeadline(ctx context.Context, attemptID uuid.UUID) error
}

// ExpiryWorker enforces the wall-clock deadline server-side. A fast loop
// polls the Redis deadline index; a slow loop sweeps the database for
// IN_PROGRESS attempts whose index entry was lost.
type ExpiryWorker struct {
	expirer       AttemptExpirer
	index         DeadlineIndex
	pollInterval  time.Duration
	sweepInterval time.Duration
	log           zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(
	expirer AttemptExpirer,
	index DeadlineIndex,
	pollInterval time.Duration,
	sweepInterval time.Duration,
	log zerolog.Logger,
) *ExpiryWorker {
	return &ExpiryWorker{
		expirer:       expirer,
		index:         index,
		pollInterval:  pollInterval,
		sweepInterval: sweepInterval,
		log:           log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start runs the worker until ctx is cancelled. A final poll drains due
// attempts before returning.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().
		Dur("poll_interval", w.pollInterval).
		Dur("sweep_interval", w.sweepInterval).
		Msg("ExpiryWorker started")

	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()
	sweep := time.NewTicker(w.sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Draining due attempts...")
			w.pollOnce(context.Background())
			return

		case <-poll.C:
			w.pollOnce(ctx)

		case <-sweep.C:
			n, err := w.expirer.SweepExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("Database sweep failed")
				continue
			}
			if n > 0 {
				w.log.Info().Int("expired", n).Msg("Database sweep finalized attempts")
			}
		}
	}
}

// pollOnce expires every attempt whose scheduled deadline has passed.
func (w *ExpiryWorker) pollOnce(ctx context.Context) {
	due, err := w.index.DueAttempts(ctx, time.Now(), ExpiryBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("Deadline index poll failed")
		return
	}

	for _, attemptID := range due {
		if err := w.expirer.ForceExpire(ctx, attemptID); err != nil {
			// Leave the index entry; the next poll or the sweep retries.
			w.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Force expire failed")
			continue
		}
		if err := w.index.RemoveDeadline(ctx, attemptID); err != nil {
			w.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to remove deadline entry")
		}
	}
}
