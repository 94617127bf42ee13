/**
 * @description
 * This file defines the pull-log domain models. A CreditPullLog row is the durable,
 * append-only audit record of a single credit-pull attempt, written in `initiated`
 * state before any external provider call is made.
 *
 * @notes
 * - The consent snapshot is captured at request time and is immutable afterward;
 *   no update statement in the store touches those columns.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PullType distinguishes hard and soft credit inquiries.
type PullType string

const (
	PullTypeHard PullType = "hard"
	PullTypeSoft PullType = "soft"
)

// PullPurpose is the business reason for a credit pull.
type PullPurpose string

const (
	PurposePreapproval  PullPurpose = "preapproval"
	PurposeUnderwriting PullPurpose = "underwriting"
	PurposeReissue      PullPurpose = "reissue"
	PurposeMonitoring   PullPurpose = "monitoring"
)

// PullLogStatus is the lifecycle state of a pull attempt.
type PullLogStatus string

const (
	PullLogStatusInitiated PullLogStatus = "initiated"
	PullLogStatusCompleted PullLogStatus = "completed"
	PullLogStatusFailed    PullLogStatus = "failed"
)

// BorrowerConsent is the consent snapshot taken before the external call starts.
// A revocation racing with an in-flight pull does not retroactively invalidate the
// already-initiated attempt.
type BorrowerConsent struct {
	Obtained    bool      `json:"obtained"`
	ConsentDate time.Time `json:"consent_date"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
}

// CreditPullLog is one row per pull attempt, independent of success.
// This struct maps to the `credit_pull_logs` table.
type CreditPullLog struct {
	ID                  uuid.UUID       `json:"id"`
	LoanID              uuid.UUID       `json:"loan_id"`
	BorrowerID          uuid.UUID       `json:"borrower_id"`
	RequestedBy         uuid.UUID       `json:"requested_by"`
	CreditReportID      *uuid.UUID      `json:"credit_report_id,omitempty"`
	PullType            PullType        `json:"pull_type"`
	Purpose             PullPurpose     `json:"purpose"`
	Status              PullLogStatus   `json:"status"`
	XactusTransactionID *string         `json:"xactus_transaction_id,omitempty"`
	Cost                *int64          `json:"cost,omitempty"`
	ErrorMessage        *string         `json:"error_message,omitempty"`
	Consent             BorrowerConsent `json:"borrower_consent"`
	NotificationSent    bool            `json:"notification_sent"`
	NotifiedAt          *time.Time      `json:"notified_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// PullRequest is the DTO for incoming credit pull API requests.
type PullRequest struct {
	BorrowerID  uuid.UUID      `json:"borrower_id"`
	SSN         string         `json:"ssn"`
	DateOfBirth string         `json:"date_of_birth"`
	Address     string         `json:"address"`
	PullType    PullType       `json:"pull_type"`
	Purpose     PullPurpose    `json:"purpose"`
	Consent     ConsentPayload `json:"borrower_consent"`
}

// ConsentPayload is the consent block of an incoming pull request.
type ConsentPayload struct {
	Obtained    bool       `json:"obtained"`
	ConsentDate *time.Time `json:"consent_date,omitempty"`
}

// RequestMeta carries per-request metadata captured into the consent snapshot.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// PullLogListOptions controls filtering for pull-log queries.
type PullLogListOptions struct {
	LoanID     *uuid.UUID
	BorrowerID *uuid.UUID
	Status     PullLogStatus
	Limit      int
}
