package util

import (
	"net/http/httptest"
	"testing"
)

func TestClientIPKeysRateLimitsByRealClient(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"172.16.0.0/12", "203.0.113.250"})
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xrip       string
		trusted    *TrustedProxies
		want       string
	}{
		{
			name:       "direct client cannot spoof forwarded headers",
			remoteAddr: "203.0.113.9:4040",
			xff:        "198.51.100.77",
			xrip:       "198.51.100.78",
			want:       "203.0.113.9",
		},
		{
			name:       "trusted proxy forwards the client address",
			remoteAddr: "172.16.4.2:4040",
			xff:        "198.51.100.77",
			trusted:    trusted,
			want:       "198.51.100.77",
		},
		{
			name:       "chain walks past trusted hops only",
			remoteAddr: "172.16.4.2:4040",
			xff:        "198.51.100.77, 172.16.9.9",
			trusted:    trusted,
			want:       "198.51.100.77",
		},
		{
			name:       "x-real-ip fills in when forwarded-for is garbage",
			remoteAddr: "172.16.4.2:4040",
			xff:        "not-an-address",
			xrip:       "198.51.100.80",
			trusted:    trusted,
			want:       "198.51.100.80",
		},
		{
			name:       "fully trusted chain falls back to its origin",
			remoteAddr: "172.16.4.2:4040",
			xff:        "172.16.1.1, 172.16.2.2",
			trusted:    trusted,
			want:       "172.16.1.1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "http://api.local/chat", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xrip != "" {
				req.Header.Set("X-Real-IP", tc.xrip)
			}
			if got := ClientIP(req, tc.trusted); got != tc.want {
				t.Fatalf("client ip = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewTrustedProxiesValidation(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"172.16.0.0/12", "203.0.113.250", " "})
	if err != nil {
		t.Fatalf("valid entries rejected: %v", err)
	}
	if trusted == nil {
		t.Fatal("expected non-nil proxy set")
	}
	if _, err := NewTrustedProxies([]string{"not-a-network"}); err == nil {
		t.Fatal("expected parse error for invalid entry")
	}
	empty, err := NewTrustedProxies(nil)
	if err != nil || empty != nil {
		t.Fatalf("empty list should trust nothing: %v, %v", empty, err)
	}
}
