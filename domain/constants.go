package domain

const (
	// Search execution statuses
	ExecutionRunning   = "running"
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"

	// Processing run statuses
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"

	// Message Types
	MsgTypeProcessSession = "process_session"

	// Duplicate detection
	DuplicateTypeURLMatch = "url_match"
	URLMatchSimilarity    = 1.0

	SearchEngineGoogle = "google"
	UntitledResult     = "Untitled"

	NoNewResultsMessage = "No new results to process"
)
