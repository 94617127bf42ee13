/**
 * @description
 * This file defines the core domain models for the credit-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external provider
 *   payloads ensures clear separation of concerns and type safety.
 * - The raw provider payload is never stored in the clear: it lives only in the
 *   `EncryptedData`/`EncryptionIV` pair, which is excluded from default reads.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReportType identifies the kind of credit pull a report was produced by.
type ReportType string

const (
	ReportTypeTriMerge     ReportType = "tri_merge"
	ReportTypeSingleBureau ReportType = "single_bureau"
	ReportTypeSoftPull     ReportType = "soft_pull"
)

// ReportStatus is the lifecycle state of a credit report.
// Transitions are strictly forward: pending -> completed|failed, completed -> expired.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusFailed    ReportStatus = "failed"
	ReportStatusExpired   ReportStatus = "expired"
)

// Bureau is one of the three major US credit bureaus.
type Bureau string

const (
	BureauEquifax    Bureau = "equifax"
	BureauExperian   Bureau = "experian"
	BureauTransUnion Bureau = "transunion"
)

// DefaultRetentionDays is the FCRA-driven default retention window (~2 years).
const DefaultRetentionDays = 730

// BureauScore is one bureau's score within a report.
type BureauScore struct {
	Bureau  Bureau   `json:"bureau"`
	Score   int      `json:"score"`
	Model   string   `json:"model,omitempty"`
	Factors []string `json:"factors,omitempty"`
}

// Tradeline is a single credit account line reported by the bureaus.
type Tradeline struct {
	CreditorName   string     `json:"creditor_name"`
	AccountType    string     `json:"account_type"`
	Balance        int64      `json:"balance"`
	CreditLimit    *int64     `json:"credit_limit,omitempty"`
	MonthlyPayment *int64     `json:"monthly_payment,omitempty"`
	PaymentStatus  string     `json:"payment_status"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
}

// PublicRecord is a bankruptcy, lien, or judgment entry.
type PublicRecord struct {
	RecordType string     `json:"record_type"`
	Amount     *int64     `json:"amount,omitempty"`
	FiledAt    *time.Time `json:"filed_at,omitempty"`
	Status     string     `json:"status,omitempty"`
}

// Inquiry is a prior credit inquiry reported by the bureaus.
type Inquiry struct {
	CreditorName string     `json:"creditor_name"`
	InquiryType  string     `json:"inquiry_type,omitempty"`
	InquiredAt   *time.Time `json:"inquired_at,omitempty"`
}

// ReportSummary holds aggregate counts and amounts across the report.
type ReportSummary struct {
	TotalTradelines    int   `json:"total_tradelines"`
	OpenTradelines     int   `json:"open_tradelines"`
	TotalBalance       int64 `json:"total_balance"`
	TotalMonthlyDebt   int64 `json:"total_monthly_debt"`
	DelinquentAccounts int   `json:"delinquent_accounts"`
	PublicRecordCount  int   `json:"public_record_count"`
	InquiryCount       int   `json:"inquiry_count"`
}

// CreditReport is the central record for one completed or attempted tri-merge pull.
// This struct maps to the `credit_reports` table.
type CreditReport struct {
	ID                  uuid.UUID      `json:"id"`
	LoanID              uuid.UUID      `json:"loan_id"`
	BorrowerID          uuid.UUID      `json:"borrower_id"`
	RequestedBy         uuid.UUID      `json:"requested_by"`
	ExternalReportID    *string        `json:"external_report_id,omitempty"`
	ReportType          ReportType     `json:"report_type"`
	Status              ReportStatus   `json:"status"`
	Scores              []BureauScore  `json:"scores"`
	MidScore            *int           `json:"mid_score,omitempty"`
	Tradelines          []Tradeline    `json:"tradelines,omitempty"`
	PublicRecords       []PublicRecord `json:"public_records,omitempty"`
	Inquiries           []Inquiry      `json:"inquiries,omitempty"`
	Summary             *ReportSummary `json:"summary,omitempty"`
	EncryptedData       []byte         `json:"-"`
	EncryptionIV        []byte         `json:"-"`
	RawDataStored       bool           `json:"raw_data_stored"`
	ErrorMessage        *string        `json:"error_message,omitempty"`
	RetentionPeriodDays int            `json:"retention_period_days"`
	ExpiresAt           time.Time      `json:"expires_at"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// Loan is a simplified view of a loan, containing only the data the
// credit-service needs for resolution and authorization.
type Loan struct {
	ID                uuid.UUID  `json:"id"`
	LoanNumber        string     `json:"loan_number"`
	AssignedOfficerID *uuid.UUID `json:"assigned_officer_id,omitempty"`
	Status            string     `json:"status"`
}

// Borrower is a simplified view of a borrower. PII fields are forwarded to the
// credit provider and never persisted by this service.
type Borrower struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	SSN         string     `json:"-"`
	DateOfBirth string     `json:"-"`
	Address     string     `json:"-"`
}

// User represents an authenticated caller, as resolved from JWT claims.
type User struct {
	ID    uuid.UUID `json:"id"`
	Roles []string  `json:"roles"`
}

// HasRole reports whether the user carries the given role claim.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ReportView is the API-facing projection of a credit report. RawData is only
// populated for privileged callers that explicitly opted in.
type ReportView struct {
	Report  *CreditReport `json:"report"`
	RawData any           `json:"raw_data,omitempty"`
}
