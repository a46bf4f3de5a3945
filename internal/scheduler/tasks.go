package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskLeadTaskDue = "leads.task_due"

// LeadTaskDuePayload identifies the pending-app follow-up that falls due.
// DueAt lets the worker drop reminders made stale by a later transition.
type LeadTaskDuePayload struct {
	LeadID string    `json:"leadId"`
	DueAt  time.Time `json:"dueAt"`
}

func NewLeadTaskDueTask(payload LeadTaskDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadTaskDue, data), nil
}

func ParseLeadTaskDuePayload(task *asynq.Task) (LeadTaskDuePayload, error) {
	var payload LeadTaskDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadTaskDuePayload{}, err
	}
	return payload, nil
}

// leadTaskDueID deduplicates reminders for the same lead and due date.
func leadTaskDueID(payload LeadTaskDuePayload) string {
	return TaskLeadTaskDue + ":" + payload.LeadID + ":" + payload.DueAt.UTC().Format(time.RFC3339)
}
