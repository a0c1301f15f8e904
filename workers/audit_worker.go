package workers

import (
	"context"
	"time"

	"tournament-wallet/services"

	"github.com/decred/slog"
)

// Auditor compares balances against the ledger.
type Auditor interface {
	Audit(ctx context.Context) ([]services.AuditMismatch, error)
}

// AuditWorker periodically checks that every user's balances equal the signed
// sum of their transactions and logs any drift.
type AuditWorker struct {
	ledger   Auditor
	interval time.Duration
	log      slog.Logger
}

func NewAuditWorker(ledger Auditor, interval time.Duration, log slog.Logger) *AuditWorker {
	return &AuditWorker{ledger: ledger, interval: interval, log: log}
}

func (w *AuditWorker) Run(ctx context.Context) error {
	w.log.Infof("🔎 [AUDIT] ledger audit every %s", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("⏹️ [AUDIT] ledger audit stopped")
			return nil
		case <-ticker.C:
			w.AuditOnce(ctx)
		}
	}
}

// AuditOnce runs one pass and returns the number of mismatched users.
func (w *AuditWorker) AuditOnce(ctx context.Context) int {
	mismatches, err := w.ledger.Audit(ctx)
	if err != nil {
		w.log.Errorf("❌ [AUDIT] %v", err)
		return 0
	}
	for _, m := range mismatches {
		w.log.Errorf("🚨 [AUDIT] user %s: balances %s, ledger sum %s", m.UserID, m.Balance, m.LedgerSum)
	}
	if len(mismatches) == 0 {
		w.log.Debug("✅ [AUDIT] ledger consistent")
	}
	return len(mismatches)
}
