package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/dberezin/bank-core/internal/repository"
)

// Reconciler periodically verifies that every account balance equals the net
// sum of its completed ledger entries. Discrepancies are logged for manual
// follow-up, never auto-corrected.
type Reconciler struct {
	store repository.Store
	log   *logrus.Logger
	cron  *cron.Cron
}

// NewReconciler creates a reconciler that has not been scheduled yet.
func NewReconciler(store repository.Store, log *logrus.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// Start schedules the nightly reconciliation run.
func (r *Reconciler) Start() error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc("@daily", r.Run); err != nil {
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule, waiting for a run in flight.
func (r *Reconciler) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// Run executes one reconciliation pass.
func (r *Reconciler) Run() {
	drifts, err := r.store.ReconcileBalances()
	if err != nil {
		r.log.Errorf("Reconciliation failed: %v", err)
		return
	}
	if len(drifts) == 0 {
		r.log.Info("Reconciliation clean: all balances match their ledgers")
		return
	}
	for _, d := range drifts {
		r.log.WithFields(logrus.Fields{
			"account_id":     d.AccountID,
			"account_number": d.AccountNumber,
			"balance":        d.Balance.String(),
			"ledger_total":   d.LedgerTotal.String(),
		}).Warn("Balance does not match ledger")
	}
}
