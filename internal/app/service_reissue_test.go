package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harborlend/credit-service/internal/domain"
	"github.com/harborlend/credit-service/internal/store"
)

func TestReissueReportCreatesNewReport(t *testing.T) {
	loan, borrower := testLoanAndBorrower()
	externalID := "XR-88412"
	source := &domain.CreditReport{
		ID:               uuid.New(),
		LoanID:           loan.ID,
		BorrowerID:       borrower.ID,
		ExternalReportID: &externalID,
		ReportType:       domain.ReportTypeTriMerge,
		Status:           domain.ReportStatusCompleted,
		ExpiresAt:        time.Now().UTC().AddDate(0, 0, 400),
	}
	repo := &pullRepoStub{loan: loan, borrower: borrower, report: source}
	provider := &providerStub{resp: triMergeResponse(), repoForOrderCheck: repo}
	service := NewService(repo, provider, &publisherStub{}, testEncryptionKey(t), 730)

	report, err := service.ReissueReport(context.Background(), source.ID, uuid.New(), domain.RequestMeta{IPAddress: "198.51.100.7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.reissueCalls != 1 || provider.lastReissueID != externalID {
		t.Fatalf("expected one reissue call for %q, got %d calls for %q", externalID, provider.reissueCalls, provider.lastReissueID)
	}
	if !provider.logExistedAtCall {
		t.Fatal("pull log must be persisted before the reissue call starts")
	}
	if report.ID == source.ID {
		t.Fatal("reissue must create a new report, not mutate the source")
	}
	if source.Status != domain.ReportStatusCompleted {
		t.Fatalf("source report must be untouched, got status %q", source.Status)
	}
	if repo.createdLog == nil {
		t.Fatal("expected a pull log for the reissue")
	}
	if repo.createdLog.PullType != domain.PullTypeSoft {
		t.Fatalf("reissue is a soft pull, got %q", repo.createdLog.PullType)
	}
	if repo.createdLog.Purpose != domain.PurposeReissue {
		t.Fatalf("expected reissue purpose, got %q", repo.createdLog.Purpose)
	}
}

func TestReissueReportRequiresExternalID(t *testing.T) {
	loan, borrower := testLoanAndBorrower()
	source := &domain.CreditReport{
		ID:         uuid.New(),
		LoanID:     loan.ID,
		BorrowerID: borrower.ID,
		Status:     domain.ReportStatusCompleted,
	}
	repo := &pullRepoStub{loan: loan, borrower: borrower, report: source}
	provider := &providerStub{}
	service := NewService(repo, provider, &publisherStub{}, testEncryptionKey(t), 730)

	_, err := service.ReissueReport(context.Background(), source.ID, uuid.New(), domain.RequestMeta{})
	if !errors.Is(err, ErrReportNotReissuable) {
		t.Fatalf("expected ErrReportNotReissuable, got %v", err)
	}
	if repo.createdLog != nil || provider.reissueCalls != 0 {
		t.Fatal("non-reissuable report must not start a pull")
	}
}

func TestReissueReportUnknownSource(t *testing.T) {
	loan, borrower := testLoanAndBorrower()
	repo := &pullRepoStub{loan: loan, borrower: borrower}
	service := NewService(repo, &providerStub{}, &publisherStub{}, testEncryptionKey(t), 730)

	_, err := service.ReissueReport(context.Background(), uuid.New(), uuid.New(), domain.RequestMeta{})
	if !errors.Is(err, store.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}
