package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReportCompletedEvent is the message payload published to RabbitMQ when a credit
// pull completes, so the loan's assigned officer can be notified.
type ReportCompletedEvent struct {
	LoanID     uuid.UUID  `json:"loan_id"`
	BorrowerID uuid.UUID  `json:"borrower_id"`
	ReportID   uuid.UUID  `json:"report_id"`
	OfficerID  *uuid.UUID `json:"officer_id,omitempty"`
	MidScore   *int       `json:"mid_score,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
