package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestHostname(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "internal.svc:8080"
	req.Header.Set("X-Forwarded-Host", "app.example.com, proxy.local")

	assert.Equal(t, "internal.svc:8080", requestHostname(req, false))
	assert.Equal(t, "app.example.com", requestHostname(req, true))

	req.Header.Del("X-Forwarded-Host")
	assert.Equal(t, "internal.svc:8080", requestHostname(req, true))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trust      bool
		want       string
	}{
		{name: "remote addr", remoteAddr: "203.0.113.9:443", want: "203.0.113.9"},
		{name: "remote addr without port", remoteAddr: "203.0.113.9", want: "203.0.113.9"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{
			name:       "forwarded ignored when untrusted",
			remoteAddr: "10.0.0.1:1",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.7"},
			want:       "10.0.0.1",
		},
		{
			name:       "first forwarded hop when trusted",
			remoteAddr: "10.0.0.1:1",
			headers:    map[string]string{"X-Forwarded-For": " 198.51.100.7 , 10.0.0.2"},
			trust:      true,
			want:       "198.51.100.7",
		},
		{
			name:       "real ip fallback when trusted",
			remoteAddr: "10.0.0.1:1",
			headers:    map[string]string{"X-Real-IP": "198.51.100.8"},
			trust:      true,
			want:       "198.51.100.8",
		},
		{
			name:       "garbage forwarded falls back to peer",
			remoteAddr: "10.0.0.1:1",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			trust:      true,
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req, tt.trust))
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{query: "", want: 100},
		{query: "?limit=25", want: 25},
		{query: "?limit=0", want: 1},
		{query: "?limit=-4", want: 1},
		{query: "?limit=99999", want: 1000},
		{query: "?limit=abc", want: 100},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		assert.Equal(t, tt.want, parseLimit(req, 100, 1000), tt.query)
	}
}
