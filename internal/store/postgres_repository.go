/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to credit reports, pull logs, loans, and borrowers.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 *
 * @notes
 * - Structured report sections (scores, tradelines, public records, inquiries,
 *   summary) are stored as JSONB and marshalled at this boundary.
 * - Default report projections exclude encrypted_data and encryption_iv; the pair
 *   is only selected by FindReportRawData.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harborlend/credit-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrLoanNotFound     = errors.New("loan not found")
	ErrBorrowerNotFound = errors.New("borrower not found")
	ErrReportNotFound   = errors.New("credit report not found")
	ErrPullLogNotFound  = errors.New("credit pull log not found")
)

// reportColumns is the default projection for credit_reports. The encrypted
// payload pair is deliberately absent.
const reportColumns = `
	id, loan_id, borrower_id, requested_by, external_report_id, report_type, status,
	scores, mid_score, tradelines, public_records, inquiries, summary,
	raw_data_stored, error_message, retention_period_days, expires_at,
	created_at, updated_at
`

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindLoanByID retrieves a loan from the database by its ID.
func (r *PostgresRepository) FindLoanByID(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	var loan domain.Loan
	query := `SELECT id, loan_number, assigned_officer_id, status FROM loans WHERE id = $1`
	err := r.db.QueryRow(ctx, query, loanID).Scan(&loan.ID, &loan.LoanNumber, &loan.AssignedOfficerID, &loan.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// FindBorrowerByID retrieves a borrower from the database by their ID.
func (r *PostgresRepository) FindBorrowerByID(ctx context.Context, borrowerID uuid.UUID) (*domain.Borrower, error) {
	var borrower domain.Borrower
	query := `SELECT id, user_id, first_name, last_name FROM borrowers WHERE id = $1`
	err := r.db.QueryRow(ctx, query, borrowerID).Scan(&borrower.ID, &borrower.UserID, &borrower.FirstName, &borrower.LastName)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBorrowerNotFound
		}
		return nil, err
	}
	return &borrower, nil
}

// CreatePullLog inserts a pull log in `initiated` state, including the immutable
// consent snapshot. No later update statement touches the consent columns.
func (r *PostgresRepository) CreatePullLog(ctx context.Context, pullLog *domain.CreditPullLog) error {
	query := `
		INSERT INTO credit_pull_logs (
			id, loan_id, borrower_id, requested_by, pull_type, purpose, status,
			consent_obtained, consent_date, consent_ip_address, consent_user_agent,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		pullLog.ID,
		pullLog.LoanID,
		pullLog.BorrowerID,
		pullLog.RequestedBy,
		pullLog.PullType,
		pullLog.Purpose,
		pullLog.Status,
		pullLog.Consent.Obtained,
		pullLog.Consent.ConsentDate,
		nullableString(pullLog.Consent.IPAddress),
		nullableString(pullLog.Consent.UserAgent),
	).Scan(&pullLog.CreatedAt, &pullLog.UpdatedAt)
}

// MarkPullLogFailed transitions an initiated pull log to `failed` with the error
// message. The status guard prevents rewriting a log that already reached a
// terminal state.
func (r *PostgresRepository) MarkPullLogFailed(ctx context.Context, logID uuid.UUID, errorMessage string) error {
	query := `
		UPDATE credit_pull_logs
		SET status = 'failed', error_message = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'
	`
	result, err := r.db.Exec(ctx, query, logID, errorMessage)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPullLogNotFound
	}
	return nil
}

// MarkPullLogNotified records that the best-effort completion notification was sent.
func (r *PostgresRepository) MarkPullLogNotified(ctx context.Context, logID uuid.UUID, notifiedAt time.Time) error {
	query := `
		UPDATE credit_pull_logs
		SET notification_sent = TRUE, notified_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, logID, notifiedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPullLogNotFound
	}
	return nil
}

// FindPullLogByID retrieves a single pull log.
func (r *PostgresRepository) FindPullLogByID(ctx context.Context, logID uuid.UUID) (*domain.CreditPullLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM credit_pull_logs WHERE id = $1`, pullLogColumns)
	row := r.db.QueryRow(ctx, query, logID)
	pullLog, err := scanPullLog(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPullLogNotFound
		}
		return nil, err
	}
	return pullLog, nil
}

const pullLogColumns = `
	id, loan_id, borrower_id, requested_by, credit_report_id, pull_type, purpose,
	status, xactus_transaction_id, cost, error_message,
	consent_obtained, consent_date, consent_ip_address, consent_user_agent,
	notification_sent, notified_at, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPullLog(row rowScanner) (*domain.CreditPullLog, error) {
	var pullLog domain.CreditPullLog
	var ip, ua *string
	err := row.Scan(
		&pullLog.ID,
		&pullLog.LoanID,
		&pullLog.BorrowerID,
		&pullLog.RequestedBy,
		&pullLog.CreditReportID,
		&pullLog.PullType,
		&pullLog.Purpose,
		&pullLog.Status,
		&pullLog.XactusTransactionID,
		&pullLog.Cost,
		&pullLog.ErrorMessage,
		&pullLog.Consent.Obtained,
		&pullLog.Consent.ConsentDate,
		&ip,
		&ua,
		&pullLog.NotificationSent,
		&pullLog.NotifiedAt,
		&pullLog.CreatedAt,
		&pullLog.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ip != nil {
		pullLog.Consent.IPAddress = *ip
	}
	if ua != nil {
		pullLog.Consent.UserAgent = *ua
	}
	return &pullLog, nil
}

// ListPullLogs returns pull logs matching the given filters, newest first.
func (r *PostgresRepository) ListPullLogs(ctx context.Context, opts domain.PullLogListOptions) ([]domain.CreditPullLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM credit_pull_logs WHERE 1=1`, pullLogColumns)
	args := []any{}
	argN := 1
	if opts.LoanID != nil {
		query += fmt.Sprintf(" AND loan_id = $%d", argN)
		args = append(args, *opts.LoanID)
		argN++
	}
	if opts.BorrowerID != nil {
		query += fmt.Sprintf(" AND borrower_id = $%d", argN)
		args = append(args, *opts.BorrowerID)
		argN++
	}
	if opts.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, opts.Status)
		argN++
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argN)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.CreditPullLog
	for rows.Next() {
		pullLog, err := scanPullLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *pullLog)
	}
	return logs, rows.Err()
}

// CompletePull inserts the credit report and marks the pull log completed in a
// single transaction. Partial completion cannot occur: either both rows land or
// neither does.
func (r *PostgresRepository) CompletePull(ctx context.Context, report *domain.CreditReport, logID uuid.UUID, transactionID string, cost *int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertReport(ctx, tx, report); err != nil {
		return fmt.Errorf("failed to insert credit report: %w", err)
	}

	logQuery := `
		UPDATE credit_pull_logs
		SET status = 'completed', credit_report_id = $2, xactus_transaction_id = $3,
			cost = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'
	`
	result, err := tx.Exec(ctx, logQuery, logID, report.ID, transactionID, cost)
	if err != nil {
		return fmt.Errorf("failed to complete pull log: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPullLogNotFound
	}

	return tx.Commit(ctx)
}

func insertReport(ctx context.Context, tx pgx.Tx, report *domain.CreditReport) error {
	scores, err := json.Marshal(report.Scores)
	if err != nil {
		return err
	}
	tradelines, err := json.Marshal(report.Tradelines)
	if err != nil {
		return err
	}
	publicRecords, err := json.Marshal(report.PublicRecords)
	if err != nil {
		return err
	}
	inquiries, err := json.Marshal(report.Inquiries)
	if err != nil {
		return err
	}
	var summary []byte
	if report.Summary != nil {
		if summary, err = json.Marshal(report.Summary); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO credit_reports (
			id, loan_id, borrower_id, requested_by, external_report_id, report_type,
			status, scores, mid_score, tradelines, public_records, inquiries, summary,
			encrypted_data, encryption_iv, raw_data_stored, error_message,
			retention_period_days, expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`
	return tx.QueryRow(ctx, query,
		report.ID,
		report.LoanID,
		report.BorrowerID,
		report.RequestedBy,
		report.ExternalReportID,
		report.ReportType,
		report.Status,
		scores,
		report.MidScore,
		tradelines,
		publicRecords,
		inquiries,
		summary,
		report.EncryptedData,
		report.EncryptionIV,
		report.RawDataStored,
		report.ErrorMessage,
		report.RetentionPeriodDays,
		report.ExpiresAt,
	).Scan(&report.CreatedAt, &report.UpdatedAt)
}

// FindReportByID retrieves a credit report using the default projection.
func (r *PostgresRepository) FindReportByID(ctx context.Context, reportID uuid.UUID) (*domain.CreditReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM credit_reports WHERE id = $1`, reportColumns)
	row := r.db.QueryRow(ctx, query, reportID)
	report, err := scanReport(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

// FindReportsByLoanID returns the loan's full report history, newest first.
// History is append-only; reissues add rows, they never overwrite.
func (r *PostgresRepository) FindReportsByLoanID(ctx context.Context, loanID uuid.UUID) ([]domain.CreditReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM credit_reports WHERE loan_id = $1 ORDER BY created_at DESC`, reportColumns)
	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.CreditReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

func scanReport(row rowScanner) (*domain.CreditReport, error) {
	var report domain.CreditReport
	var scores, tradelines, publicRecords, inquiries, summary []byte
	err := row.Scan(
		&report.ID,
		&report.LoanID,
		&report.BorrowerID,
		&report.RequestedBy,
		&report.ExternalReportID,
		&report.ReportType,
		&report.Status,
		&scores,
		&report.MidScore,
		&tradelines,
		&publicRecords,
		&inquiries,
		&summary,
		&report.RawDataStored,
		&report.ErrorMessage,
		&report.RetentionPeriodDays,
		&report.ExpiresAt,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalInto(scores, &report.Scores); err != nil {
		return nil, err
	}
	if err := unmarshalInto(tradelines, &report.Tradelines); err != nil {
		return nil, err
	}
	if err := unmarshalInto(publicRecords, &report.PublicRecords); err != nil {
		return nil, err
	}
	if err := unmarshalInto(inquiries, &report.Inquiries); err != nil {
		return nil, err
	}
	if len(summary) > 0 {
		report.Summary = &domain.ReportSummary{}
		if err := json.Unmarshal(summary, report.Summary); err != nil {
			return nil, err
		}
	}
	return &report, nil
}

func unmarshalInto(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}

// FindReportRawData fetches the encrypted payload pair for a report. This is the
// only query that projects the encrypted columns.
func (r *PostgresRepository) FindReportRawData(ctx context.Context, reportID uuid.UUID) ([]byte, []byte, error) {
	var ciphertext, iv []byte
	query := `SELECT encrypted_data, encryption_iv FROM credit_reports WHERE id = $1`
	err := r.db.QueryRow(ctx, query, reportID).Scan(&ciphertext, &iv)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, ErrReportNotFound
		}
		return nil, nil, err
	}
	return ciphertext, iv, nil
}

// PurgeExpiredReports performs the completed -> expired transition for every
// report past its expiry. The status predicate doubles as a compare-and-set:
// a row already expired by a concurrent purge matches zero rows here, so
// overlapping runs cannot double-redact or double-count.
func (r *PostgresRepository) PurgeExpiredReports(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE credit_reports
		SET status = 'expired',
			encrypted_data = NULL,
			encryption_iv = NULL,
			tradelines = NULL,
			public_records = NULL,
			inquiries = NULL,
			raw_data_stored = FALSE,
			updated_at = NOW()
		WHERE expires_at < $1 AND status <> 'expired'
	`
	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
