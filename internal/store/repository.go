/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the credit-service. By defining an interface,
 * we decouple the application's business logic from the specific database
 * implementation (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harborlend/credit-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
//
// Default report reads never project the encrypted_data/encryption_iv columns;
// the pair is only reachable through FindReportRawData.
type Repository interface {
	// Loan and borrower resolution
	FindLoanByID(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	FindBorrowerByID(ctx context.Context, borrowerID uuid.UUID) (*domain.Borrower, error)

	// Pull-log methods. CreatePullLog writes the `initiated` row (including the
	// immutable consent snapshot) and must complete before any provider call.
	CreatePullLog(ctx context.Context, pullLog *domain.CreditPullLog) error
	MarkPullLogFailed(ctx context.Context, logID uuid.UUID, errorMessage string) error
	MarkPullLogNotified(ctx context.Context, logID uuid.UUID, notifiedAt time.Time) error
	FindPullLogByID(ctx context.Context, logID uuid.UUID) (*domain.CreditPullLog, error)
	ListPullLogs(ctx context.Context, opts domain.PullLogListOptions) ([]domain.CreditPullLog, error)

	// CompletePull persists the report and transitions the pull log to `completed`
	// with the report reference and provider transaction id in one transaction, so
	// a crash cannot orphan a completed log without its report.
	CompletePull(ctx context.Context, report *domain.CreditReport, logID uuid.UUID, transactionID string, cost *int64) error

	// Report reads
	FindReportByID(ctx context.Context, reportID uuid.UUID) (*domain.CreditReport, error)
	FindReportsByLoanID(ctx context.Context, loanID uuid.UUID) ([]domain.CreditReport, error)
	FindReportRawData(ctx context.Context, reportID uuid.UUID) (ciphertext, iv []byte, err error)

	// PurgeExpiredReports transitions every report with expires_at < now and a
	// non-expired status to `expired`, clearing the redacted fields in the same
	// statement. The status guard makes concurrent purges safe: each row is
	// redacted and counted at most once.
	PurgeExpiredReports(ctx context.Context, now time.Time) (int64, error)
}
