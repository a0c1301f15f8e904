package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/go-co-op/gocron/v2"
)

const referralBatch = 50

// ReferralProcessor drains the referral outbox.
type ReferralProcessor interface {
	ProcessPending(ctx context.Context, batch int) (int, error)
}

// ReferralWorker runs the referral outbox on a gocron schedule.
type ReferralWorker struct {
	referrals ReferralProcessor
	interval  time.Duration
	log       slog.Logger
}

func NewReferralWorker(referrals ReferralProcessor, interval time.Duration, log slog.Logger) *ReferralWorker {
	return &ReferralWorker{referrals: referrals, interval: interval, log: log}
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (w *ReferralWorker) Run(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create referral scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			n, err := w.referrals.ProcessPending(ctx, referralBatch)
			if err != nil {
				w.log.Errorf("[Scheduler] referral batch failed after %d: %v", n, err)
				return
			}
			if n > 0 {
				w.log.Infof("✅ [Scheduler] processed %d referral(s)", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule referral job: %w", err)
	}

	sched.Start()
	w.log.Infof("[Scheduler] referral worker every %s", w.interval)

	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		w.log.Warnf("[Scheduler] shutdown: %v", err)
	}
	return nil
}
