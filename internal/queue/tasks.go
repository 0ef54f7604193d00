package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeAssignmentReconcile = "assignment:reconcile"
)

type ReconcilePayload struct {
	Mode string `json:"mode"` // empty means the worker's configured mode
}

// reconcileUniqueTTL collapses bursts of assignment changes into one run.
const reconcileUniqueTTL = time.Minute

func NewReconcileTask(mode string) (*asynq.Task, error) {
	data, err := json.Marshal(ReconcilePayload{Mode: mode})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeAssignmentReconcile, data,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	), nil
}
