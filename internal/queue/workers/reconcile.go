package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/washgeo/internal/assignment"
	"github.com/nikhilbhutani/washgeo/internal/queue"
)

type Reconciler interface {
	Reconcile(ctx context.Context, mode assignment.ReconcileMode) (*assignment.ReconcileReport, error)
}

type ReconcileWorker struct {
	engine      Reconciler
	defaultMode assignment.ReconcileMode
}

func NewReconcileWorker(engine Reconciler, defaultMode assignment.ReconcileMode) *ReconcileWorker {
	return &ReconcileWorker{engine: engine, defaultMode: defaultMode}
}

func (w *ReconcileWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	mode := w.defaultMode
	if payload.Mode != "" {
		m, err := assignment.ParseReconcileMode(payload.Mode)
		if err != nil {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		mode = m
	}

	report, err := w.engine.Reconcile(ctx, mode)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	for _, f := range report.Findings {
		slog.Info("reconcile finding",
			"user_id", f.UserID, "role", f.Role, "out_of_scope", f.OutOfScope, "action", f.Action)
	}
	return nil
}
