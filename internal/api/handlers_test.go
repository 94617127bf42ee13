package api

import (
	"net/http/httptest"
	"testing"
)

func TestRequestMeta(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		wantIP     string
	}{
		{
			name:       "forwarded header takes the first hop",
			remoteAddr: "10.0.0.5:52110",
			forwarded:  "203.0.113.9, 70.41.3.18",
			wantIP:     "203.0.113.9",
		},
		{
			name:       "falls back to remote addr host",
			remoteAddr: "198.51.100.7:40312",
			wantIP:     "198.51.100.7",
		},
		{
			name:       "remote addr without port is used as-is",
			remoteAddr: "198.51.100.7",
			wantIP:     "198.51.100.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/credit/loans/abc/request", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			r.Header.Set("User-Agent", "los-web/4.1")

			meta := requestMeta(r)
			if meta.IPAddress != tt.wantIP {
				t.Fatalf("expected ip %q, got %q", tt.wantIP, meta.IPAddress)
			}
			if meta.UserAgent != "los-web/4.1" {
				t.Fatalf("expected user agent preserved, got %q", meta.UserAgent)
			}
		})
	}
}
