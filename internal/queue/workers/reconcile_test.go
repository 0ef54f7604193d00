package workers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/washgeo/internal/assignment"
	"github.com/nikhilbhutani/washgeo/internal/queue"
	"github.com/nikhilbhutani/washgeo/internal/queue/workers"
)

type recordingReconciler struct {
	modes []assignment.ReconcileMode
	err   error
}

func (r *recordingReconciler) Reconcile(_ context.Context, mode assignment.ReconcileMode) (*assignment.ReconcileReport, error) {
	r.modes = append(r.modes, mode)
	if r.err != nil {
		return nil, r.err
	}
	return &assignment.ReconcileReport{Mode: mode}, nil
}

func task(t *testing.T, mode string) *asynq.Task {
	t.Helper()
	tk, err := queue.NewReconcileTask(mode)
	if err != nil {
		t.Fatal(err)
	}
	return tk
}

func TestReconcileWorkerModes(t *testing.T) {
	rec := &recordingReconciler{}
	w := workers.NewReconcileWorker(rec, assignment.ReconcileModeReport)
	ctx := context.Background()

	if err := w.ProcessTask(ctx, task(t, "")); err != nil {
		t.Fatal(err)
	}
	if err := w.ProcessTask(ctx, task(t, "prune")); err != nil {
		t.Fatal(err)
	}

	want := []assignment.ReconcileMode{assignment.ReconcileModeReport, assignment.ReconcileModePrune}
	if len(rec.modes) != 2 || rec.modes[0] != want[0] || rec.modes[1] != want[1] {
		t.Errorf("modes = %v, want %v", rec.modes, want)
	}
}

func TestReconcileWorkerBadPayloadSkipsRetry(t *testing.T) {
	w := workers.NewReconcileWorker(&recordingReconciler{}, assignment.ReconcileModeReport)
	ctx := context.Background()

	err := w.ProcessTask(ctx, asynq.NewTask(queue.TypeAssignmentReconcile, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("malformed payload: got %v, want SkipRetry", err)
	}

	err = w.ProcessTask(ctx, task(t, "purge"))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("unknown mode: got %v, want SkipRetry", err)
	}
}

func TestReconcileWorkerPropagatesFailure(t *testing.T) {
	boom := errors.New("store down")
	w := workers.NewReconcileWorker(&recordingReconciler{err: boom}, assignment.ReconcileModePrune)

	err := w.ProcessTask(context.Background(), task(t, ""))
	if !errors.Is(err, boom) || errors.Is(err, asynq.SkipRetry) {
		t.Errorf("got %v, want retryable wrap of %v", err, boom)
	}
}
