package service

import (
	"context"
	"log/slog"

	"pollbooth/internal/repository"
)

// ReconcileReport summarizes one reconcile pass.
type ReconcileReport struct {
	Drifts   []repository.CounterDrift
	Repaired int
}

// ReconcileService audits cached option counters against stored votes.
type ReconcileService struct {
	votes  *repository.VoteRepository
	repair bool
	logger *slog.Logger
}

// NewReconcileService builds the auditor. With repair set, drifted counters
// are rewritten from the Vote rows; otherwise drift is only logged.
func NewReconcileService(votes *repository.VoteRepository, repair bool, logger *slog.Logger) *ReconcileService {
	return &ReconcileService{votes: votes, repair: repair, logger: resolveLogger(logger)}
}

func (s *ReconcileService) Reconcile(ctx context.Context) (ReconcileReport, error) {
	drifts, err := s.votes.CounterDrifts(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}

	report := ReconcileReport{Drifts: drifts}
	for _, drift := range drifts {
		s.logger.Warn("vote counter drift",
			"event", "reconcile_counter_drift",
			"module", "service/reconcile",
			"poll_id", drift.PollID,
			"option_id", drift.OptionID,
			"cached", drift.Cached,
			"actual", drift.Actual,
		)
		if !s.repair {
			continue
		}
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}
		if err := s.votes.RepairCounter(ctx, drift.OptionID); err != nil {
			return report, err
		}
		report.Repaired++
	}

	s.logger.Debug("reconcile finished",
		"event", "reconcile_finished",
		"module", "service/reconcile",
		"drifts", len(drifts),
		"repaired", report.Repaired,
	)
	return report, nil
}
