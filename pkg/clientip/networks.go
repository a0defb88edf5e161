package clientip

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrInvalidNetwork is returned by ParseNetworks for entries that are neither
// an address nor a CIDR prefix.
var ErrInvalidNetwork = errors.New("invalid network")

// Networks is a list of address prefixes.
type Networks []netip.Prefix

// TelegramNetworks are the ranges Telegram delivers webhooks from.
var TelegramNetworks = Networks{
	netip.MustParsePrefix("149.154.160.0/20"),
	netip.MustParsePrefix("91.108.4.0/22"),
}

// Contains reports whether ip is inside any of the prefixes.
func (n Networks) Contains(ip netip.Addr) bool {
	if !ip.IsValid() {
		return false
	}
	ip = ip.Unmap()
	for _, p := range n {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// ParseNetworks parses CIDR prefixes and bare addresses (as /32 or /128).
func ParseNetworks(values ...string) (Networks, error) {
	out := make(Networks, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidNetwork, v, err)
			}
			out = append(out, p.Masked())
			continue
		}
		ip, ok := parseIP(v)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, v)
		}
		out = append(out, netip.PrefixFrom(ip, ip.BitLen()))
	}
	return out, nil
}
