/**
 * @description
 * This package provides a client for interacting with the Xactus credit aggregator
 * API. It encapsulates the logic for making authenticated HTTP requests to the
 * tri-merge and reissue endpoints, handling request body construction, and parsing
 * responses.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package xactusclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is a client for the Xactus API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new Xactus API client. The timeout bounds every provider
// call; a timeout is treated by callers like any other provider failure.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// TriMergeRequest is the payload sent to the tri-merge pull endpoint. It carries
// the borrower PII needed by the bureaus; none of it is persisted by this service.
type TriMergeRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	SSN         string `json:"ssn"`
	DateOfBirth string `json:"dateOfBirth"`
	Address     string `json:"address"`
	Purpose     string `json:"purpose"`
}

// BureauScore is one bureau's score in a provider response.
type BureauScore struct {
	Bureau  string   `json:"bureau"`
	Score   int      `json:"score"`
	Model   string   `json:"model,omitempty"`
	Factors []string `json:"factors,omitempty"`
}

// Tradeline is a credit account line in a provider response.
type Tradeline struct {
	CreditorName   string     `json:"creditorName"`
	AccountType    string     `json:"accountType"`
	Balance        int64      `json:"balance"`
	CreditLimit    *int64     `json:"creditLimit,omitempty"`
	MonthlyPayment *int64     `json:"monthlyPayment,omitempty"`
	PaymentStatus  string     `json:"paymentStatus"`
	OpenedAt       *time.Time `json:"openedAt,omitempty"`
}

// PublicRecord is a public record entry in a provider response.
type PublicRecord struct {
	RecordType string     `json:"recordType"`
	Amount     *int64     `json:"amount,omitempty"`
	FiledAt    *time.Time `json:"filedAt,omitempty"`
	Status     string     `json:"status,omitempty"`
}

// Inquiry is a prior credit inquiry in a provider response.
type Inquiry struct {
	CreditorName string     `json:"creditorName"`
	InquiryType  string     `json:"inquiryType,omitempty"`
	InquiredAt   *time.Time `json:"inquiredAt,omitempty"`
}

// Summary holds the provider's aggregate counts and amounts.
type Summary struct {
	TotalTradelines    int   `json:"totalTradelines"`
	OpenTradelines     int   `json:"openTradelines"`
	TotalBalance       int64 `json:"totalBalance"`
	TotalMonthlyDebt   int64 `json:"totalMonthlyDebt"`
	DelinquentAccounts int   `json:"delinquentAccounts"`
	PublicRecordCount  int   `json:"publicRecordCount"`
	InquiryCount       int   `json:"inquiryCount"`
}

// ReportResponse is the expected response from the pull and reissue endpoints.
type ReportResponse struct {
	ReportID      string          `json:"reportId"`
	TransactionID string          `json:"transactionId"`
	Status        string          `json:"status"`
	Scores        []BureauScore   `json:"scores"`
	Tradelines    []Tradeline     `json:"tradelines"`
	PublicRecords []PublicRecord  `json:"publicRecords"`
	Inquiries     []Inquiry       `json:"inquiries"`
	Summary       *Summary        `json:"summary,omitempty"`
	RawData       json.RawMessage `json:"rawData"`
	Cost          *int64          `json:"cost,omitempty"`
}

// ErrorResponse represents an error from the Xactus API.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("xactus api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown xactus api error"
}

// PullTriMerge requests a fresh tri-merge credit report for a borrower.
func (c *Client) PullTriMerge(ctx context.Context, req TriMergeRequest) (*ReportResponse, error) {
	return c.doReportRequest(ctx, "POST", c.BaseURL+"/v1/credit/tri-merge", req, "tri_merge")
}

// ReissueReport requests a reissue of a previously pulled report, keyed by the
// provider's report id.
func (c *Client) ReissueReport(ctx context.Context, externalReportID string) (*ReportResponse, error) {
	url := c.BaseURL + "/v1/credit/reissue/" + externalReportID
	return c.doReportRequest(ctx, "POST", url, nil, "reissue")
}

// doReportRequest is a generic helper to execute report requests.
func (c *Client) doReportRequest(ctx context.Context, method, url string, payload any, op string) (*ReportResponse, error) {
	var bodyReader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		bodyReader = bytes.NewBuffer(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-xactus-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s request: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=xactus_client op=%s status=%d msg=\"non-2xx response (unparsable error body)\"", op, resp.StatusCode)
			return nil, fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=xactus_client op=%s status=%d title=%q detail=%q", op, resp.StatusCode, firstErrorTitle(errResp), firstErrorDetail(errResp))
		return nil, &errResp
	}

	var successResp ReportResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return nil, fmt.Errorf("failed to decode success response: %w", err)
	}

	return &successResp, nil
}

func firstErrorTitle(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Title
}

func firstErrorDetail(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Detail
}
