// workers/user_sync_worker.go
package workers

import (
	"context"
	"time"

	"tournament-wallet/services"

	"github.com/decred/slog"
)

// ChangeFeed lists identities changed after a point in time.
type ChangeFeed interface {
	FetchChanges(ctx context.Context, since time.Time) ([]services.IdentityUpdate, error)
}

// IdentityApplier writes identity changes onto local profiles.
type IdentityApplier interface {
	ApplyIdentityUpdates(ctx context.Context, updates []services.IdentityUpdate) (int64, error)
}

// ProfileSyncWorker copies email and photo changes from the identity provider
// onto existing profiles.
type ProfileSyncWorker struct {
	feed     ChangeFeed
	users    IdentityApplier
	interval time.Duration
	log      slog.Logger

	lastSync time.Time
}

func NewProfileSyncWorker(feed ChangeFeed, users IdentityApplier, interval time.Duration, log slog.Logger) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		feed:     feed,
		users:    users,
		interval: interval,
		log:      log,
		lastSync: time.Now().UTC().Add(-24 * time.Hour),
	}
}

// Run polls until ctx is cancelled.
func (w *ProfileSyncWorker) Run(ctx context.Context) error {
	w.log.Infof("🔁 [SYNC] profile sync every %s", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("⏹️ [SYNC] profile sync stopped")
			return nil
		case <-ticker.C:
			if err := w.SyncOnce(ctx); err != nil {
				w.log.Warnf("❌ [SYNC] batch failed: %v", err)
			}
		}
	}
}

// SyncOnce pulls one window of changes. The window only advances on success,
// so a failed batch is retried on the next tick.
func (w *ProfileSyncWorker) SyncOnce(ctx context.Context) error {
	pollTime := time.Now().UTC()
	updates, err := w.feed.FetchChanges(ctx, w.lastSync)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		w.lastSync = pollTime
		return nil
	}
	changed, err := w.users.ApplyIdentityUpdates(ctx, updates)
	if err != nil {
		return err
	}
	w.lastSync = pollTime
	w.log.Infof("📥 [SYNC] %d identity change(s), %d profile(s) updated", len(updates), changed)
	return nil
}
