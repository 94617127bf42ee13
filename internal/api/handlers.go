/**
 * @description
 * This file contains the HTTP handlers for the credit-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as
 * the bridge between the web layer and the business logic layer.
 *
 * User-visible error responses carry generic messages; raw error detail stays in
 * logs and in the pull log's error_message field, and is never mixed into a
 * response that might also carry decrypted sensitive data.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/harborlend/credit-service/internal/app"
	"github.com/harborlend/credit-service/internal/domain"
	"github.com/harborlend/credit-service/internal/store"
)

// CreditHandlers holds the application service that handlers will use.
type CreditHandlers struct {
	service *app.Service
}

// NewCreditHandlers creates a new instance of CreditHandlers.
func NewCreditHandlers(service *app.Service) *CreditHandlers {
	return &CreditHandlers{service: service}
}

func (h *CreditHandlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
	}
}

func (h *CreditHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func requestMeta(r *http.Request) domain.RequestMeta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = r.RemoteAddr
	}
	return domain.RequestMeta{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

// RequestReportHandler handles requests for a new tri-merge credit pull.
func (h *CreditHandlers) RequestReportHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user from context")
		return
	}

	loanID, err := uuid.Parse(chi.URLParam(r, "loanId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid loan ID format")
		return
	}

	var req domain.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=request_report outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.service.RequestReport(r.Context(), loanID, req, user.ID, requestMeta(r))
	if err != nil {
		h.writePullError(w, "request_report", loanID, err)
		return
	}

	log.Printf("level=info component=api endpoint=request_report outcome=accepted loan_id=%s report_id=%s", loanID, report.ID)
	h.writeJSON(w, http.StatusCreated, report)
}

// ReissueReportHandler handles requests to reissue an existing report.
func (h *CreditHandlers) ReissueReportHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user from context")
		return
	}

	reportID, err := uuid.Parse(chi.URLParam(r, "reportId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid report ID format")
		return
	}

	report, err := h.service.ReissueReport(r.Context(), reportID, user.ID, requestMeta(r))
	if err != nil {
		h.writePullError(w, "reissue_report", reportID, err)
		return
	}

	log.Printf("level=info component=api endpoint=reissue_report outcome=accepted source_report_id=%s report_id=%s", reportID, report.ID)
	h.writeJSON(w, http.StatusCreated, report)
}

// writePullError maps pull workflow errors to HTTP statuses with generic messages.
func (h *CreditHandlers) writePullError(w http.ResponseWriter, endpoint string, subject uuid.UUID, err error) {
	log.Printf("level=warn component=api endpoint=%s outcome=failed subject_id=%s err=%v", endpoint, subject, err)
	switch {
	case errors.Is(err, app.ErrConsentRequired), errors.Is(err, app.ErrInvalidPullRequest), errors.Is(err, app.ErrReportNotReissuable):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrLoanNotFound), errors.Is(err, store.ErrBorrowerNotFound), errors.Is(err, store.ErrReportNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrPullRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "Too many credit pull requests; try again shortly")
	case errors.Is(err, app.ErrProviderFailure):
		h.writeError(w, http.StatusBadGateway, "Credit provider request failed")
	default:
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// GetReportHandler returns a single report. Raw decrypted content requires the
// includeRawData flag and a privileged role.
func (h *CreditHandlers) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user from context")
		return
	}

	reportID, err := uuid.Parse(chi.URLParam(r, "reportId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid report ID format")
		return
	}

	includeRawData, _ := strconv.ParseBool(r.URL.Query().Get("includeRawData"))

	view, err := h.service.GetReport(r.Context(), user, reportID, includeRawData)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrReportNotFound):
			h.writeError(w, http.StatusNotFound, "Credit report not found")
		case errors.Is(err, app.ErrAccessDenied):
			h.writeError(w, http.StatusForbidden, "Access denied")
		default:
			log.Printf("level=error component=api endpoint=get_report report_id=%s err=%v", reportID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

// ListLoanReportsHandler returns the loan's report history visible to the caller.
func (h *CreditHandlers) ListLoanReportsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user from context")
		return
	}

	loanID, err := uuid.Parse(chi.URLParam(r, "loanId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid loan ID format")
		return
	}

	reports, err := h.service.ListLoanReports(r.Context(), user, loanID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrLoanNotFound):
			h.writeError(w, http.StatusNotFound, "Loan not found")
		default:
			log.Printf("level=error component=api endpoint=list_loan_reports loan_id=%s err=%v", loanID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// ListPullLogsHandler returns the pull audit trail for privileged callers.
func (h *CreditHandlers) ListPullLogsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user from context")
		return
	}

	opts := domain.PullLogListOptions{}
	query := r.URL.Query()
	if raw := query.Get("loanId"); raw != "" {
		loanID, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid loanId filter")
			return
		}
		opts.LoanID = &loanID
	}
	if raw := query.Get("borrowerId"); raw != "" {
		borrowerID, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid borrowerId filter")
			return
		}
		opts.BorrowerID = &borrowerID
	}
	if raw := query.Get("status"); raw != "" {
		opts.Status = domain.PullLogStatus(raw)
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		opts.Limit = limit
	}

	logs, err := h.service.ListPullLogs(r.Context(), user, opts)
	if err != nil {
		if errors.Is(err, app.ErrAccessDenied) {
			h.writeError(w, http.StatusForbidden, "Access denied")
			return
		}
		log.Printf("level=error component=api endpoint=list_pull_logs err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

// PurgeExpiredHandler redacts reports past their retention expiry. Invoked on
// demand by an external scheduler; restricted to privileged roles.
func (h *CreditHandlers) PurgeExpiredHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user from context")
		return
	}
	if !app.HasPrivilegedRole(user) {
		h.writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	count, err := h.service.PurgeExpired(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=purge_expired err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"purged": count})
}
