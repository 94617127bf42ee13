/**
 * @description
 * This file contains the core business logic for the credit-service. The `Service`
 * struct orchestrates the credit pull workflow, coordinating between the database
 * repository, the Xactus credit aggregator client, the encryption module, and the
 * message broker.
 *
 * Key features:
 * - Implements the main use cases: tri-merge pull requests and reissues.
 * - Enforces the consent gate before any persistence or provider call.
 * - Guarantees the audit ordering: the pull log is durably written in `initiated`
 *   state before the external call starts, so a crash mid-call still leaves a trace.
 * - Publishes a best-effort completion event for the loan's assigned officer.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/encryption, internal/store: Models, crypto, data access.
 * - pkg/xactusclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/harborlend/credit-service/internal/domain"
	"github.com/harborlend/credit-service/internal/encryption"
	"github.com/harborlend/credit-service/internal/store"
	"github.com/harborlend/credit-service/pkg/rabbitmq"
	"github.com/harborlend/credit-service/pkg/xactusclient"
)

const (
	CreditEventsExchange      = "credit.events"
	ReportCompletedRoutingKey = "credit.report.completed"
)

var (
	ErrConsentRequired     = errors.New("borrower consent has not been obtained")
	ErrInvalidPullRequest  = errors.New("invalid credit pull request")
	ErrAccessDenied        = errors.New("access to this credit report is denied")
	ErrPullRateLimited     = errors.New("credit pull rate limit exceeded")
	ErrProviderFailure     = errors.New("credit provider request failed")
	ErrReportNotReissuable = errors.New("report has no external id to reissue")
)

// CreditProvider is the outbound contract to the credit bureau aggregator.
// *xactusclient.Client satisfies it.
type CreditProvider interface {
	PullTriMerge(ctx context.Context, req xactusclient.TriMergeRequest) (*xactusclient.ReportResponse, error)
	ReissueReport(ctx context.Context, externalReportID string) (*xactusclient.ReportResponse, error)
}

// PullRateLimiter throttles pull requests per borrower. A nil limiter disables
// throttling entirely.
type PullRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for credit pulls.
type Service struct {
	repo          store.Repository
	provider      CreditProvider
	eventProducer rabbitmq.Publisher
	encryptionKey encryption.Key
	retentionDays int

	rateLimiter        PullRateLimiter
	pullLimitPerMinute int
}

// NewService creates a new credit service instance. The encryption key must have
// been validated at bootstrap; the service never generates one.
func NewService(repo store.Repository, provider CreditProvider, producer rabbitmq.Publisher, key encryption.Key, retentionDays int) *Service {
	if retentionDays <= 0 {
		retentionDays = domain.DefaultRetentionDays
	}
	return &Service{
		repo:          repo,
		provider:      provider,
		eventProducer: producer,
		encryptionKey: key,
		retentionDays: retentionDays,
	}
}

// SetPullRateLimiter enables the optional distributed per-borrower throttle.
func (s *Service) SetPullRateLimiter(limiter PullRateLimiter, limitPerMinute int) {
	s.rateLimiter = limiter
	s.pullLimitPerMinute = limitPerMinute
}

// validateConsent is the consent gate. Rejection happens before any persistence:
// no pull-log row is created for a rejected request, because rejection is a pure
// validation failure, not an audit-worthy attempt.
func validateConsent(payload domain.ConsentPayload, meta domain.RequestMeta, now time.Time) (domain.BorrowerConsent, error) {
	if !payload.Obtained {
		return domain.BorrowerConsent{}, ErrConsentRequired
	}
	consentDate := now
	if payload.ConsentDate != nil {
		consentDate = *payload.ConsentDate
	}
	return domain.BorrowerConsent{
		Obtained:    true,
		ConsentDate: consentDate,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	}, nil
}

func validatePullParams(req domain.PullRequest) error {
	if req.BorrowerID == uuid.Nil {
		return fmt.Errorf("%w: borrower_id is required", ErrInvalidPullRequest)
	}
	switch req.PullType {
	case domain.PullTypeHard, domain.PullTypeSoft:
	default:
		return fmt.Errorf("%w: unknown pull_type %q", ErrInvalidPullRequest, req.PullType)
	}
	switch req.Purpose {
	case domain.PurposePreapproval, domain.PurposeUnderwriting, domain.PurposeReissue, domain.PurposeMonitoring:
	default:
		return fmt.Errorf("%w: unknown purpose %q", ErrInvalidPullRequest, req.Purpose)
	}
	if req.SSN == "" || req.DateOfBirth == "" {
		return fmt.Errorf("%w: borrower ssn and date_of_birth are required", ErrInvalidPullRequest)
	}
	return nil
}

// RequestReport runs the full tri-merge pull workflow for a loan.
func (s *Service) RequestReport(ctx context.Context, loanID uuid.UUID, req domain.PullRequest, requestedBy uuid.UUID, meta domain.RequestMeta) (*domain.CreditReport, error) {
	// 1. Resolve loan and borrower before anything else.
	loan, err := s.repo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	borrower, err := s.repo.FindBorrowerByID(ctx, req.BorrowerID)
	if err != nil {
		return nil, err
	}

	// 2. Consent gate and parameter validation; both reject before any persistence.
	if err := validatePullParams(req); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	consent, err := validateConsent(req.Consent, meta, now)
	if err != nil {
		return nil, err
	}

	if err := s.consumePullBudget(ctx, borrower.ID); err != nil {
		return nil, err
	}

	pull := func(ctx context.Context) (*xactusclient.ReportResponse, error) {
		return s.provider.PullTriMerge(ctx, xactusclient.TriMergeRequest{
			FirstName:   borrower.FirstName,
			LastName:    borrower.LastName,
			SSN:         req.SSN,
			DateOfBirth: req.DateOfBirth,
			Address:     req.Address,
			Purpose:     string(req.Purpose),
		})
	}
	return s.executePull(ctx, loan, borrower, requestedBy, req.PullType, req.Purpose, consent, pull)
}

// ReissueReport runs the pull workflow against the provider's reissue endpoint,
// keyed by the source report's external id. It always produces a new report; the
// original is never mutated, preserving full history.
func (s *Service) ReissueReport(ctx context.Context, reportID uuid.UUID, requestedBy uuid.UUID, meta domain.RequestMeta) (*domain.CreditReport, error) {
	source, err := s.repo.FindReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if source.ExternalReportID == nil || *source.ExternalReportID == "" {
		return nil, ErrReportNotReissuable
	}
	loan, err := s.repo.FindLoanByID(ctx, source.LoanID)
	if err != nil {
		return nil, err
	}
	borrower, err := s.repo.FindBorrowerByID(ctx, source.BorrowerID)
	if err != nil {
		return nil, err
	}

	// A reissue re-uses an already-pulled file; the original consent stands and
	// is re-snapshotted with the reissue request's metadata.
	consent := domain.BorrowerConsent{
		Obtained:    true,
		ConsentDate: time.Now().UTC(),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	}

	externalID := *source.ExternalReportID
	pull := func(ctx context.Context) (*xactusclient.ReportResponse, error) {
		return s.provider.ReissueReport(ctx, externalID)
	}
	return s.executePull(ctx, loan, borrower, requestedBy, domain.PullTypeSoft, domain.PurposeReissue, consent, pull)
}

// executePull is the shared request/reissue workflow from the audit write onward.
func (s *Service) executePull(
	ctx context.Context,
	loan *domain.Loan,
	borrower *domain.Borrower,
	requestedBy uuid.UUID,
	pullType domain.PullType,
	purpose domain.PullPurpose,
	consent domain.BorrowerConsent,
	pull func(ctx context.Context) (*xactusclient.ReportResponse, error),
) (*domain.CreditReport, error) {
	// Durably persist the pull log before the external call. This is the audit
	// guarantee that every real attempt, even one that later crashes, leaves a trace.
	pullLog := &domain.CreditPullLog{
		ID:          uuid.New(),
		LoanID:      loan.ID,
		BorrowerID:  borrower.ID,
		RequestedBy: requestedBy,
		PullType:    pullType,
		Purpose:     purpose,
		Status:      domain.PullLogStatusInitiated,
		Consent:     consent,
	}
	if err := s.repo.CreatePullLog(ctx, pullLog); err != nil {
		return nil, fmt.Errorf("failed to persist pull log: %w", err)
	}

	resp, err := pull(ctx)
	if err != nil {
		s.failPull(ctx, pullLog.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	report, err := s.buildReport(loan, borrower, requestedBy, purpose, resp)
	if err != nil {
		s.failPull(ctx, pullLog.ID, err)
		return nil, err
	}

	if err := s.repo.CompletePull(ctx, report, pullLog.ID, resp.TransactionID, resp.Cost); err != nil {
		s.failPull(ctx, pullLog.ID, err)
		return nil, fmt.Errorf("failed to persist credit report: %w", err)
	}

	s.notifyReportCompleted(ctx, loan, report, pullLog.ID)

	return report, nil
}

// failPull marks the pull log failed. If the update itself fails it is logged and
// swallowed: a logging failure must never mask the original provider failure that
// the caller is about to receive.
func (s *Service) failPull(ctx context.Context, logID uuid.UUID, cause error) {
	if err := s.repo.MarkPullLogFailed(ctx, logID, cause.Error()); err != nil {
		log.Printf("level=error component=service msg=\"failed to mark pull log failed\" pull_log_id=%s err=%v original_err=%v", logID, err, cause)
	}
}

// buildReport maps a provider response to a CreditReport, derives the mid score,
// encrypts the raw payload, and stamps the retention expiry. The expiry is
// assigned exactly once, here, and never recomputed.
func (s *Service) buildReport(loan *domain.Loan, borrower *domain.Borrower, requestedBy uuid.UUID, purpose domain.PullPurpose, resp *xactusclient.ReportResponse) (*domain.CreditReport, error) {
	now := time.Now().UTC()
	report := &domain.CreditReport{
		ID:                  uuid.New(),
		LoanID:              loan.ID,
		BorrowerID:          borrower.ID,
		RequestedBy:         requestedBy,
		ReportType:          domain.ReportTypeTriMerge,
		Status:              domain.ReportStatusCompleted,
		Scores:              mapScores(resp.Scores),
		Tradelines:          mapTradelines(resp.Tradelines),
		PublicRecords:       mapPublicRecords(resp.PublicRecords),
		Inquiries:           mapInquiries(resp.Inquiries),
		Summary:             mapSummary(resp.Summary),
		RetentionPeriodDays: s.retentionDays,
		ExpiresAt:           now.AddDate(0, 0, s.retentionDays),
	}
	if resp.ReportID != "" {
		externalID := resp.ReportID
		report.ExternalReportID = &externalID
	}
	report.MidScore = domain.MidScore(report.Scores)

	if len(resp.RawData) > 0 {
		ciphertext, iv, err := encryption.Encrypt(resp.RawData, s.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt raw payload: %w", err)
		}
		report.EncryptedData = ciphertext
		report.EncryptionIV = iv
		report.RawDataStored = true
	}

	return report, nil
}

// notifyReportCompleted publishes the completion event for the loan's assigned
// officer. Delivery is best-effort: a failure is logged and never changes the
// already-successful outcome of the request.
func (s *Service) notifyReportCompleted(ctx context.Context, loan *domain.Loan, report *domain.CreditReport, logID uuid.UUID) {
	if s.eventProducer == nil {
		return
	}
	event := domain.ReportCompletedEvent{
		LoanID:     loan.ID,
		BorrowerID: report.BorrowerID,
		ReportID:   report.ID,
		OfficerID:  loan.AssignedOfficerID,
		MidScore:   report.MidScore,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.eventProducer.Publish(ctx, CreditEventsExchange, ReportCompletedRoutingKey, event); err != nil {
		log.Printf("level=warn component=service msg=\"report completion notification failed\" report_id=%s err=%v", report.ID, err)
		return
	}
	if err := s.repo.MarkPullLogNotified(ctx, logID, time.Now().UTC()); err != nil {
		log.Printf("level=warn component=service msg=\"failed to record notification timestamp\" pull_log_id=%s err=%v", logID, err)
	}
}

func (s *Service) consumePullBudget(ctx context.Context, borrowerID uuid.UUID) error {
	if s.rateLimiter == nil || s.pullLimitPerMinute <= 0 {
		return nil
	}
	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "credit_pull", borrowerID.String(), s.pullLimitPerMinute, time.Minute)
	if err != nil {
		// The throttle is an operational guard, not a compliance one; if Redis is
		// down the pull proceeds.
		log.Printf("level=warn component=service msg=\"pull rate limiter unavailable\" borrower_id=%s err=%v", borrowerID, err)
		return nil
	}
	if count > s.pullLimitPerMinute {
		log.Printf("level=warn component=service msg=\"pull rate limit exceeded\" borrower_id=%s count=%d retry_after_s=%d", borrowerID, count, retryAfter)
		return ErrPullRateLimited
	}
	return nil
}

// GetReport returns an access-gated view of a report. Raw decrypted content is
// attached only for privileged callers that explicitly opted in; default reads
// never surface the encrypted pair or decrypted content.
func (s *Service) GetReport(ctx context.Context, user domain.User, reportID uuid.UUID, includeRawData bool) (*domain.ReportView, error) {
	report, err := s.repo.FindReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	access, err := s.accessContextFor(ctx, report)
	if err != nil {
		return nil, err
	}
	if !CanAccessReport(user, report, access) {
		return nil, ErrAccessDenied
	}

	view := &domain.ReportView{Report: report}
	if !includeRawData {
		return view, nil
	}
	if !CanAccessRawData(user) {
		return nil, ErrAccessDenied
	}

	ciphertext, iv, err := s.repo.FindReportRawData(ctx, reportID)
	if err != nil {
		return nil, err
	}
	raw, err := encryption.Decrypt(ciphertext, iv, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt raw payload: %w", err)
	}
	if raw != nil {
		view.RawData = raw
	}
	return view, nil
}

// ListLoanReports returns the loan's report history filtered to what the caller
// may see.
func (s *Service) ListLoanReports(ctx context.Context, user domain.User, loanID uuid.UUID) ([]domain.CreditReport, error) {
	loan, err := s.repo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	reports, err := s.repo.FindReportsByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	accessible := make([]domain.CreditReport, 0, len(reports))
	for i := range reports {
		report := &reports[i]
		access := AccessContext{AssignedOfficerID: loan.AssignedOfficerID}
		if borrower, err := s.repo.FindBorrowerByID(ctx, report.BorrowerID); err == nil {
			access.BorrowerUserID = borrower.UserID
		}
		if CanAccessReport(user, report, access) {
			accessible = append(accessible, *report)
		}
	}
	return accessible, nil
}

// ListPullLogs returns the audit trail, restricted to privileged roles: the pull
// log is the compliance record, not a borrower-facing surface.
func (s *Service) ListPullLogs(ctx context.Context, user domain.User, opts domain.PullLogListOptions) ([]domain.CreditPullLog, error) {
	if !HasPrivilegedRole(user) {
		return nil, ErrAccessDenied
	}
	return s.repo.ListPullLogs(ctx, opts)
}

// PurgeExpired redacts every report past its retention expiry and returns the
// purge count. Safe to invoke concurrently; see the repository contract.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.PurgeExpiredReports(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("level=info component=service msg=\"expired credit reports purged\" count=%d", count)
	}
	return count, nil
}

func (s *Service) accessContextFor(ctx context.Context, report *domain.CreditReport) (AccessContext, error) {
	access := AccessContext{}
	loan, err := s.repo.FindLoanByID(ctx, report.LoanID)
	if err == nil {
		access.AssignedOfficerID = loan.AssignedOfficerID
	} else if !errors.Is(err, store.ErrLoanNotFound) {
		return access, err
	}
	borrower, err := s.repo.FindBorrowerByID(ctx, report.BorrowerID)
	if err == nil {
		access.BorrowerUserID = borrower.UserID
	} else if !errors.Is(err, store.ErrBorrowerNotFound) {
		return access, err
	}
	return access, nil
}

func mapScores(scores []xactusclient.BureauScore) []domain.BureauScore {
	out := make([]domain.BureauScore, 0, len(scores))
	for _, s := range scores {
		out = append(out, domain.BureauScore{
			Bureau:  domain.Bureau(s.Bureau),
			Score:   s.Score,
			Model:   s.Model,
			Factors: s.Factors,
		})
	}
	return out
}

func mapTradelines(lines []xactusclient.Tradeline) []domain.Tradeline {
	out := make([]domain.Tradeline, 0, len(lines))
	for _, l := range lines {
		out = append(out, domain.Tradeline{
			CreditorName:   l.CreditorName,
			AccountType:    l.AccountType,
			Balance:        l.Balance,
			CreditLimit:    l.CreditLimit,
			MonthlyPayment: l.MonthlyPayment,
			PaymentStatus:  l.PaymentStatus,
			OpenedAt:       l.OpenedAt,
		})
	}
	return out
}

func mapPublicRecords(records []xactusclient.PublicRecord) []domain.PublicRecord {
	out := make([]domain.PublicRecord, 0, len(records))
	for _, r := range records {
		out = append(out, domain.PublicRecord{
			RecordType: r.RecordType,
			Amount:     r.Amount,
			FiledAt:    r.FiledAt,
			Status:     r.Status,
		})
	}
	return out
}

func mapInquiries(inquiries []xactusclient.Inquiry) []domain.Inquiry {
	out := make([]domain.Inquiry, 0, len(inquiries))
	for _, i := range inquiries {
		out = append(out, domain.Inquiry{
			CreditorName: i.CreditorName,
			InquiryType:  i.InquiryType,
			InquiredAt:   i.InquiredAt,
		})
	}
	return out
}

func mapSummary(summary *xactusclient.Summary) *domain.ReportSummary {
	if summary == nil {
		return nil
	}
	return &domain.ReportSummary{
		TotalTradelines:    summary.TotalTradelines,
		OpenTradelines:     summary.OpenTradelines,
		TotalBalance:       summary.TotalBalance,
		TotalMonthlyDebt:   summary.TotalMonthlyDebt,
		DelinquentAccounts: summary.DelinquentAccounts,
		PublicRecordCount:  summary.PublicRecordCount,
		InquiryCount:       summary.InquiryCount,
	}
}
