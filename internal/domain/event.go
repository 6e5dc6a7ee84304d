package domain

import "time"

// SubmittedReport is published after the server has accepted a report.
type SubmittedReport struct {
	RequestID   string        `json:"request_id"`
	ReportID    string        `json:"report_id,omitempty"`
	Payload     ReportPayload `json:"payload"`
	SubmittedAt time.Time     `json:"submitted_at"`
}
