package entity

import "time"

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	ReportStatusOpen   ReportStatus = "open"
	ReportStatusClosed ReportStatus = "closed"
)

// Report is a buyer complaint against an order, chat or business. It is
// opened by the buyer and closed only by an admin, with an optional closing
// reason. Notes are appended over time and never edited.
type Report struct {
	ID          string       `json:"id"`
	OrderID     string       `json:"order_id,omitempty"`
	ChatID      string       `json:"chat_id,omitempty"`
	BusinessID  string       `json:"business_id,omitempty"`
	Status      ReportStatus `json:"status"`
	OpenReason  string       `json:"open_reason"`
	Description string       `json:"description"`
	CloseReason string       `json:"close_reason,omitempty"`
	Notes       []ReportNote `json:"notes,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ClosedAt    *time.Time   `json:"closed_at,omitempty"`
}

// ReportNote is one free-text annotation on a report.
type ReportNote struct {
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
