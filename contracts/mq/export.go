package mq

import "time"

const (
	RoutingExportRequested = "export.requested"
	RoutingExportCompleted = "export.completed"
	RoutingExportFailed    = "export.failed"
)

// ExportRequestedPayload asks a running service to export and send.
type ExportRequestedPayload struct {
	Mode  string `json:"mode"` // test / full
	Limit int    `json:"limit,omitempty"`
}

type ExportCompletedPayload struct {
	RunID       string    `json:"run_id"`
	Trigger     string    `json:"trigger"` // schedule / test / manual / mq
	Forms       int       `json:"forms"`
	Submissions int       `json:"submissions"`
	Files       []string  `json:"files"`
	Recipients  []string  `json:"recipients"`
	Delivered   bool      `json:"delivered"`
	FinishedAt  time.Time `json:"finished_at"`
}

type ExportFailedPayload struct {
	RunID    string    `json:"run_id"`
	Trigger  string    `json:"trigger"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
