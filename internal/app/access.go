/**
 * @description
 * This file implements the access control gate for credit report reads. Row-level
 * access goes to the borrower, the original requester, the loan's assigned
 * officer, and privileged roles. Raw decrypted payload access is stricter: it
 * requires a privileged role on top of an explicit opt-in on the read request.
 */

package app

import (
	"github.com/google/uuid"
	"github.com/harborlend/credit-service/internal/domain"
)

// Privileged roles may read any report and, with explicit opt-in, its raw payload.
const (
	RoleAdmin       = "admin"
	RoleUnderwriter = "underwriter"
	RoleCompliance  = "compliance"
)

var privilegedRoles = []string{RoleAdmin, RoleUnderwriter, RoleCompliance}

// AccessContext carries the resolved identities a report access decision needs
// beyond the report row itself.
type AccessContext struct {
	BorrowerUserID    *uuid.UUID
	AssignedOfficerID *uuid.UUID
}

// HasPrivilegedRole reports whether the user holds any privileged role.
func HasPrivilegedRole(user domain.User) bool {
	for _, role := range privilegedRoles {
		if user.HasRole(role) {
			return true
		}
	}
	return false
}

// CanAccessReport decides row-level read access for a report.
func CanAccessReport(user domain.User, report *domain.CreditReport, access AccessContext) bool {
	if report == nil {
		return false
	}
	if user.ID == report.RequestedBy {
		return true
	}
	if access.BorrowerUserID != nil && *access.BorrowerUserID == user.ID {
		return true
	}
	if access.AssignedOfficerID != nil && *access.AssignedOfficerID == user.ID {
		return true
	}
	return HasPrivilegedRole(user)
}

// CanAccessRawData decides whether a caller may receive the decrypted raw
// provider payload. Callers must additionally have passed CanAccessReport and
// opted in on the request.
func CanAccessRawData(user domain.User) bool {
	return HasPrivilegedRole(user)
}
