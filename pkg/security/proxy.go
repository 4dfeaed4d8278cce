package security

import (
	"fmt"
	"net"
	"strings"
)

// TrustedProxies is the set of networks whose forwarded client headers are honoured.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies accepts IPs and CIDRs. Single IPs become host networks.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	nets := make(TrustedProxies, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", entry)
		}
		bits := 128
		if ip.To4() != nil {
			ip = ip.To4()
			bits = 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}

// Contains reports whether host (an IP without port) is inside a trusted network.
func (t TrustedProxies) Contains(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, network := range t {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
