package models

import "time"

// Status values carried by StatusUpdate.
const (
	StatusSuccess  = "SUCCESS"
	StatusRetrying = "RETRYING"
	StatusFailed   = "FAILED"
)

// Message types understood by the consumer endpoint.
const (
	MessageTypeStatus    = "STATUS_UPDATE"
	MessageTypeHeartbeat = "HEARTBEAT"
)

// Payload is the JSON document posted for one file.
type Payload struct {
	Vehicles []VehicleRecord `json:"vehicles"`
	Meta     PayloadMeta     `json:"meta"`
}

// PayloadMeta describes the batch the vehicles came from.
type PayloadMeta struct {
	TotalRows      int          `json:"total_rows"`
	SkippedCount   int          `json:"skipped_count"`
	SkippedDetails []SkippedRow `json:"skipped_details"`
	Filename       string       `json:"filename"`
	RetryAttempt   int          `json:"retry_attempt"`
}

// NewPayload builds the delivery document for a parsed file.
func NewPayload(filename string, result ParseResult) *Payload {
	vehicles := result.Vehicles
	if vehicles == nil {
		vehicles = []VehicleRecord{}
	}
	skipped := result.Skipped
	if skipped == nil {
		skipped = []SkippedRow{}
	}
	return &Payload{
		Vehicles: vehicles,
		Meta: PayloadMeta{
			TotalRows:      result.TotalRows,
			SkippedCount:   len(skipped),
			SkippedDetails: skipped,
			Filename:       filename,
		},
	}
}

// ConsumerResponse is the body returned by the consumer on HTTP 200.
type ConsumerResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Message string         `json:"message,omitempty"`
	Stats   *ConsumerStats `json:"stats,omitempty"`
}

// StatusUpdate is the side-channel notification about a file.
type StatusUpdate struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Heartbeat is the periodic liveness signal.
type Heartbeat struct {
	Type string `json:"type"`
}
