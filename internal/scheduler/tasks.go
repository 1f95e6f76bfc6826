package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskLifecycleRefresh = "lifecycle.refresh"

// LifecycleRefreshPayload pins the evaluation time of a refresh run so that
// retries of the same task re-evaluate against the same now.
type LifecycleRefreshPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewLifecycleRefreshTask(payload LifecycleRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLifecycleRefresh, data), nil
}

func ParseLifecycleRefreshPayload(task *asynq.Task) (LifecycleRefreshPayload, error) {
	var payload LifecycleRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LifecycleRefreshPayload{}, err
	}
	return payload, nil
}
