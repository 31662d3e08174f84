package http

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

type securityMetrics struct {
	rateLimitHits      atomic.Int64
	suspiciousRequests atomic.Int64
}

type metricsSnapshot struct {
	RateLimitHits      int64 `json:"rate_limit_hits"`
	SuspiciousRequests int64 `json:"suspicious_requests"`
}

func (m *securityMetrics) snapshot() metricsSnapshot {
	return metricsSnapshot{
		RateLimitHits:      m.rateLimitHits.Load(),
		SuspiciousRequests: m.suspiciousRequests.Load(),
	}
}

// trustedProxies may set X-Forwarded-For.
var trustedProxies = []*net.IPNet{
	mustCIDR("127.0.0.0/8"),
	mustCIDR("::1/128"),
	mustCIDR("10.0.0.0/8"),
	mustCIDR("172.16.0.0/12"),
	mustCIDR("192.168.0.0/16"),
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("invalid trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

func isTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP returns the peer address, or, behind a trusted proxy, the
// rightmost forwarded address that is not itself a trusted proxy. Entries
// left of it are client supplied and ignored.
func extractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	ip := net.ParseIP(peer)
	if ip == nil || !isTrustedProxy(ip) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := net.ParseIP(strings.TrimSpace(hops[i]))
		if hop == nil {
			break
		}
		if !isTrustedProxy(hop) {
			return hop.String()
		}
	}
	if xri := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); xri != nil {
		return xri.String()
	}
	return peer
}

const (
	maxIDLength    = 128
	maxQueryLength = 256
)

// probePaths are fetched by scanners; none of them is served here.
var probePaths = []string{
	".env", ".git", ".ssh", "wp-admin", "wp-login", "phpmyadmin",
	".php", "cgi-bin", "etc/passwd", "cmd.exe",
}

// injectionMarkers in a query or document id mean the client is not the UI.
var injectionMarkers = []string{
	"<script", "javascript:", "union select", "' or ", "eval(", "../", "..\\",
}

var scannerAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
}

// suspicionOf names what looks hostile about r, or returns "" for a request
// the UI could have sent.
func suspicionOf(r *http.Request) string {
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return "method"
	}

	path := strings.ToLower(r.URL.Path)
	for _, p := range probePaths {
		if strings.Contains(path, p) {
			return "probe path"
		}
	}

	// Only /api/items/{id} and /api/other-costs/{id} carry user-chosen
	// segments.
	if id := documentID(path); len(id) > maxIDLength {
		return "oversized id"
	}

	query, err := url.QueryUnescape(r.URL.RawQuery)
	if err != nil {
		query = r.URL.RawQuery
	}
	if len(query) > maxQueryLength {
		return "oversized query"
	}
	lowered := strings.ToLower(path + "?" + query)
	for _, m := range injectionMarkers {
		if strings.Contains(lowered, m) {
			return "injection marker"
		}
	}

	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "scanner agent"
		}
	}

	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return "forwarding chain"
	}
	return ""
}

func documentID(path string) string {
	for _, prefix := range []string{"/api/items/", "/api/other-costs/"} {
		if id, ok := strings.CutPrefix(path, prefix); ok {
			return id
		}
	}
	return ""
}
