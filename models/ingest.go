package models

import "time"

// Outcome classifies a single delivery attempt.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeRetryableFailure Outcome = "retryable_failure"
	OutcomeFatalFailure     Outcome = "fatal_failure"
)

// FileState is a step in the lifecycle of one inbound file.
type FileState string

const (
	StateReceived    FileState = "received"
	StateBackedUp    FileState = "backed_up"
	StateParsing     FileState = "parsing"
	StateDelivering  FileState = "delivering"
	StateRetrying    FileState = "retrying"
	StateSucceeded   FileState = "succeeded"
	StateFailed      FileState = "failed"
	StateIgnored     FileState = "ignored"
	StateInterrupted FileState = "interrupted"
)

// Terminal reports whether no further transitions follow s.
func (s FileState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateIgnored, StateInterrupted:
		return true
	default:
		return false
	}
}

// Sender identifies who uploaded a file.
type Sender struct {
	Address  string
	Username string
}

// ConsumerStats is the optional statistics block returned by the consumer.
type ConsumerStats struct {
	Processed int `json:"processed"`
	Sold      int `json:"sold"`
}

// DeliveryResult is the classified result of one transmission.
type DeliveryResult struct {
	Outcome    Outcome
	Detail     string
	StatusCode int
	ErrorType  string
	Stats      *ConsumerStats
	Duration   time.Duration
}

// IngestionAttempt is one delivery attempt for a file.
type IngestionAttempt struct {
	File       string
	Number     int
	Outcome    Outcome
	Detail     string
	StatusCode int
	Duration   time.Duration
}

// FileResult summarizes the lifecycle of one file.
type FileResult struct {
	JobID          string
	File           string
	Sender         Sender
	State          FileState
	Transitions    []FileState
	Attempts       []IngestionAttempt
	TotalRows      int
	Accepted       int
	Skipped        int
	BackupPath     string
	Disposition    string
	DispositionErr error
	StartTime      time.Time
	EndTime        time.Time
}
