package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity is the task type for the ledger integrity check.
	TaskGLIntegrity = "ledger:gl_integrity"
)

// GLIntegrityPayload describes an integrity run. Trigger names who asked
// for it ("cron", "cli" or an operator name) and only feeds the logs.
type GLIntegrityPayload struct {
	Trigger string `json:"trigger"`
}

// NewGLIntegrityTask constructs an Asynq task.
func NewGLIntegrityTask(payload GLIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
