package utils

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ParseCIDRs parses a comma separated list of subnets. Empty input yields nil.
func ParseCIDRs(list string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		_, netblock, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", raw, err)
		}
		nets = append(nets, netblock)
	}
	return nets, nil
}

// IsAllowedIP reports whether addr (an IP or host:port) lies in one of nets.
func IsAllowedIP(addr string, nets []*net.IPNet) bool {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	parsed := net.ParseIP(addr)
	if parsed == nil {
		return false
	}
	for _, netblock := range nets {
		if netblock.Contains(parsed) {
			return true
		}
	}
	return false
}

// AllowOnly rejects requests from outside nets. No nets means no restriction.
func AllowOnly(nets []*net.IPNet, next http.Handler) http.Handler {
	if len(nets) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAllowedIP(r.RemoteAddr, nets) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
