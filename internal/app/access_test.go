package app

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harborlend/credit-service/internal/domain"
)

func TestCanAccessReport(t *testing.T) {
	requesterID := uuid.New()
	borrowerUserID := uuid.New()
	officerID := uuid.New()

	report := &domain.CreditReport{
		ID:          uuid.New(),
		RequestedBy: requesterID,
	}
	access := AccessContext{
		BorrowerUserID:    &borrowerUserID,
		AssignedOfficerID: &officerID,
	}

	tests := []struct {
		name string
		user domain.User
		want bool
	}{
		{name: "original requester", user: domain.User{ID: requesterID}, want: true},
		{name: "borrower's own report", user: domain.User{ID: borrowerUserID}, want: true},
		{name: "assigned loan officer", user: domain.User{ID: officerID}, want: true},
		{name: "underwriter role", user: domain.User{ID: uuid.New(), Roles: []string{RoleUnderwriter}}, want: true},
		{name: "compliance role", user: domain.User{ID: uuid.New(), Roles: []string{RoleCompliance}}, want: true},
		{name: "admin role", user: domain.User{ID: uuid.New(), Roles: []string{RoleAdmin}}, want: true},
		{name: "unrelated borrower", user: domain.User{ID: uuid.New(), Roles: []string{"borrower"}}, want: false},
		{name: "unrelated officer", user: domain.User{ID: uuid.New(), Roles: []string{"loan_officer"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccessReport(tt.user, report, access); got != tt.want {
				t.Fatalf("expected access=%t, got %t", tt.want, got)
			}
		})
	}
}

func TestCanAccessReportWithoutResolvedContext(t *testing.T) {
	report := &domain.CreditReport{ID: uuid.New(), RequestedBy: uuid.New()}

	stranger := domain.User{ID: uuid.New()}
	if CanAccessReport(stranger, report, AccessContext{}) {
		t.Fatal("stranger must not access a report with no resolved borrower or officer")
	}
	if CanAccessReport(stranger, nil, AccessContext{}) {
		t.Fatal("nil report must never be accessible")
	}
}

func TestCanAccessRawData(t *testing.T) {
	if CanAccessRawData(domain.User{ID: uuid.New(), Roles: []string{"borrower"}}) {
		t.Fatal("raw payload access must require a privileged role")
	}
	if CanAccessRawData(domain.User{ID: uuid.New()}) {
		t.Fatal("raw payload access must require a privileged role")
	}
	for _, role := range []string{RoleAdmin, RoleUnderwriter, RoleCompliance} {
		if !CanAccessRawData(domain.User{ID: uuid.New(), Roles: []string{role}}) {
			t.Fatalf("role %q must have raw payload access", role)
		}
	}
}
