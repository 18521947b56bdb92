package persistence

import (
	"context"
	"strconv"

	"codeberg.org/docflow/server/internal/logger"
	"codeberg.org/docflow/server/internal/workers"
)

// runs the policy on the storage pool so connection goroutines never wait on the store
type Dispatcher struct {
	policy *Policy
	pool   *workers.Pool
}

// creates a new dispatcher
func NewDispatcher(policy *Policy, pool *workers.Pool) *Dispatcher {
	return &Dispatcher{policy: policy, pool: pool}
}

// queues the edit; edits to one document are applied in submission order
func (d *Dispatcher) Submit(edit Edit) error {
	return d.pool.Submit(strconv.FormatInt(edit.DocumentID, 10), func(ctx context.Context) {
		result, err := d.policy.ApplyEdit(ctx, edit)
		if err != nil {
			logger.ErrorErr(err, "failed to persist document update",
				"document_id", edit.DocumentID,
				"user_id", edit.UserID,
				"action", result.Action,
			)
			return
		}

		logger.Debug("document update persisted",
			"document_id", edit.DocumentID,
			"user_id", edit.UserID,
			"action", result.Action,
			"history_recorded", result.HistoryRecorded,
		)
	})
}
