package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// DefaultTrustedProxies are the networks allowed to set forwarding headers
// when no explicit list is configured.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

var probePatterns = []string{
	"../", "..\\", ".env", ".git", "wp-admin", "phpmyadmin",
	"etc/passwd", "<script", "union select", "cmd.exe",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}

// Detector resolves client addresses and flags requests that look like probes.
type Detector struct {
	trustedProxies []*net.IPNet
	suspicious     atomic.Int64
}

// NewDetector creates a detector trusting forwarding headers only from the
// given CIDR ranges. An empty list uses DefaultTrustedProxies.
func NewDetector(trustedCIDRs []string) (*Detector, error) {
	if len(trustedCIDRs) == 0 {
		trustedCIDRs = DefaultTrustedProxies
	}
	d := &Detector{}
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("parse trusted proxy %q: %w", cidr, err)
		}
		d.trustedProxies = append(d.trustedProxies, network)
	}
	return d, nil
}

// ExtractClientIP returns the caller's address. X-Forwarded-For and
// X-Real-IP are honoured only when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !d.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

// IsSuspicious reports whether r matches a known probe or scanner pattern.
func (d *Detector) IsSuspicious(r *http.Request) bool {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	agent := strings.ToLower(r.Header.Get("User-Agent"))

	hit := r.Method == http.MethodTrace || r.Method == http.MethodConnect || len(r.URL.String()) > 8192
	for _, p := range probePatterns {
		if hit {
			break
		}
		hit = strings.Contains(target, p)
	}
	for _, a := range scannerAgents {
		if hit {
			break
		}
		hit = strings.Contains(agent, a)
	}

	if hit {
		d.suspicious.Add(1)
	}
	return hit
}

// SuspiciousCount returns how many requests have been flagged.
func (d *Detector) SuspiciousCount() int64 {
	return d.suspicious.Load()
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
