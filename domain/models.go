package domain

import "fmt"

// ProcessMessage asks the worker to run the result pipeline for a session.
type ProcessMessage struct {
	Type      string `json:"type"` // "process_session"
	SessionID int    `json:"session_id"`
	UserID    int    `json:"user_id"`
	RunID     string `json:"run_id"`
}

// Caller is the authenticated user on whose behalf an operation runs.
// A nil *Caller means the request is unauthenticated.
type Caller struct {
	UserID int
}

type ProcessSummary struct {
	Processed       int    `json:"processed"`
	DuplicatesFound int    `json:"duplicatesFound"`
	Message         string `json:"message"`
}

func NewProcessSummary(processed, duplicates int) ProcessSummary {
	if processed == 0 && duplicates == 0 {
		return ProcessSummary{Message: NoNewResultsMessage}
	}
	return ProcessSummary{
		Processed:       processed,
		DuplicatesFound: duplicates,
		Message:         fmt.Sprintf("Processed %d results with %d potential duplicates identified", processed, duplicates),
	}
}

// SearchHit is one organic result returned by a search provider.
type SearchHit struct {
	Title   string
	Link    string
	Snippet string
	Raw     []byte
}

type SearchResponse struct {
	Hits []SearchHit
	Body []byte
}

type ExecutionReport struct {
	ExecutionID int    `json:"executionId"`
	QueryID     int    `json:"queryId"`
	Status      string `json:"status"`
	ResultCount int    `json:"resultCount"`
	Error       string `json:"error,omitempty"`
}
