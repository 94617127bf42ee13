package xactusclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPullTriMergeSendsAuthenticatedRequest(t *testing.T) {
	var gotPath, gotKey string
	var gotBody TriMergeRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-xactus-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ReportResponse{
			ReportID:      "XR-1001",
			TransactionID: "TXN-1001",
			Status:        "completed",
			Scores: []BureauScore{
				{Bureau: "equifax", Score: 702},
				{Bureau: "experian", Score: 745},
				{Bureau: "transunion", Score: 689},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second)
	resp, err := client.PullTriMerge(context.Background(), TriMergeRequest{
		FirstName:   "Avery",
		LastName:    "Nakamura",
		SSN:         "123-45-6789",
		DateOfBirth: "1988-04-12",
		Purpose:     "underwriting",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/credit/tri-merge" {
		t.Fatalf("expected tri-merge endpoint, got %q", gotPath)
	}
	if gotKey != "secret-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotBody.SSN != "123-45-6789" || gotBody.Purpose != "underwriting" {
		t.Fatalf("request body not forwarded: %+v", gotBody)
	}
	if resp.ReportID != "XR-1001" || len(resp.Scores) != 3 {
		t.Fatalf("response not decoded: %+v", resp)
	}
}

func TestReissueReportTargetsReportID(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ReportResponse{ReportID: "XR-1001", TransactionID: "TXN-2002"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second)
	resp, err := client.ReissueReport(context.Background(), "XR-1001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/credit/reissue/XR-1001" {
		t.Fatalf("expected reissue endpoint for XR-1001, got %q", gotPath)
	}
	if resp.TransactionID != "TXN-2002" {
		t.Fatalf("response not decoded: %+v", resp)
	}
}

func TestPullTriMergeParsesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"title":"Invalid SSN","detail":"SSN failed checksum validation","status":"422"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second)
	_, err := client.PullTriMerge(context.Background(), TriMergeRequest{})
	if err == nil {
		t.Fatal("expected an error for a 422 response")
	}

	var apiErr *ErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected an ErrorResponse, got %T: %v", err, err)
	}
	if len(apiErr.Errors) != 1 || apiErr.Errors[0].Title != "Invalid SSN" {
		t.Fatalf("error body not decoded: %+v", apiErr)
	}
}

func TestPullTriMergeUnparsableErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second)
	_, err := client.PullTriMerge(context.Background(), TriMergeRequest{})
	if err == nil {
		t.Fatal("expected an error for a non-json 502 response")
	}
}
