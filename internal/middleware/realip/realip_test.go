package realip

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		remote  string
		xff     string
		xRealIP string
		want    string
	}{
		{
			name:   "trust disabled ignores headers",
			cfg:    Config{TrustProxy: false, TrustedProxies: []string{"10.0.0.0/8"}},
			remote: "192.168.1.100:12345",
			xff:    "203.0.113.50",
			want:   "192.168.1.100",
		},
		{
			name:   "trusted proxy",
			cfg:    Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8", "192.168.0.0/16"}},
			remote: "10.0.0.1:12345",
			xff:    "203.0.113.50, 10.0.0.5",
			want:   "203.0.113.50",
		},
		{
			name:   "untrusted proxy",
			cfg:    Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remote: "192.168.1.100:12345",
			xff:    "203.0.113.50",
			want:   "192.168.1.100",
		},
		{
			name:    "x-real-ip fallback",
			cfg:     Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remote:  "10.0.0.1:12345",
			xRealIP: " 203.0.113.60 ",
			want:    "203.0.113.60",
		},
		{
			name:   "spoofed leftmost hop is skipped",
			cfg:    Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remote: "10.0.0.1:12345",
			xff:    "1.2.3.4, 203.0.113.50, 10.0.0.2",
			want:   "203.0.113.50",
		},
		{
			name:   "all hops trusted",
			cfg:    Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remote: "10.0.0.1:12345",
			xff:    "10.0.0.3, 10.0.0.2",
			want:   "10.0.0.3",
		},
		{
			name:   "no forwarding headers",
			cfg:    Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remote: "10.0.0.1:12345",
			want:   "10.0.0.1",
		},
		{
			name:   "single ip entry",
			cfg:    Config{TrustProxy: true, TrustedProxies: []string{"172.16.0.9"}},
			remote: "172.16.0.9:443",
			xff:    "198.51.100.7",
			want:   "198.51.100.7",
		},
		{
			name:   "ipv6 proxy",
			cfg:    Config{TrustProxy: true, TrustedProxies: []string{"fd00::/8"}},
			remote: "[fd00::1]:443",
			xff:    "2001:db8::5",
			want:   "2001:db8::5",
		},
		{
			name:   "malformed trusted entries are ignored",
			cfg:    Config{TrustProxy: true, TrustedProxies: []string{"not-an-ip", "10.0.0.0/8"}},
			remote: "10.0.0.1:12345",
			xff:    "203.0.113.50",
			want:   "203.0.113.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := Middleware(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetClientIP(r)
			}))

			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetClientIP_NoContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	assert.Equal(t, "192.168.1.100", GetClientIP(req))
}

func TestHostOnly(t *testing.T) {
	assert.Equal(t, "192.168.1.1", hostOnly("192.168.1.1:8080"))
	assert.Equal(t, "192.168.1.1", hostOnly("192.168.1.1"))
	assert.Equal(t, "::1", hostOnly("[::1]:8080"))
}

func TestResolver_IsTrusted(t *testing.T) {
	res := newResolver(Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8", "192.168.1.1"}})

	assert.True(t, res.isTrusted("10.1.2.3"))
	assert.True(t, res.isTrusted("192.168.1.1"))
	assert.True(t, res.isTrusted("::ffff:10.0.0.1"), "ipv4-mapped addresses match")
	assert.False(t, res.isTrusted("192.168.1.2"))
	assert.False(t, res.isTrusted("garbage"))
}
