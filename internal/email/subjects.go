package email

const (
	subjectTaskDueFmt         = "Application follow-up due: %s"
	subjectConditionStatusFmt = "Condition %s: %s"
)
