package email

import "context"

// Sender delivers pipeline notices to the processing inbox.
type Sender interface {
	SendTaskDueEmail(ctx context.Context, toEmail string, notice TaskDueNotice) error
	SendConditionStatusEmail(ctx context.Context, toEmail string, notice ConditionStatusNotice) error
}

// TaskDueNotice describes a pending application whose follow-up is due.
type TaskDueNotice struct {
	LeadID       string
	BorrowerName string
	DueDate      string
}

// ConditionStatusNotice describes an underwriting condition status change.
type ConditionStatusNotice struct {
	LeadID    string
	Title     string
	OldStatus string
	NewStatus string
}

type NoopSender struct{}

func (NoopSender) SendTaskDueEmail(ctx context.Context, toEmail string, notice TaskDueNotice) error {
	return nil
}

func (NoopSender) SendConditionStatusEmail(ctx context.Context, toEmail string, notice ConditionStatusNotice) error {
	return nil
}
