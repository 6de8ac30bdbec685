package util

import (
	"net"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Family returns unix.AF_INET6 when ipv6 is set, unix.AF_INET otherwise.
func Family(ipv6 bool) int {
	if ipv6 {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

// FamilyOf returns the address family of ip.
func FamilyOf(ip net.IP) int {
	if ip.To4() != nil {
		return unix.AF_INET
	}
	return unix.AF_INET6
}

func familyName(family int) string {
	if family == unix.AF_INET6 {
		return "IPv6"
	}
	return "IPv4"
}

// ParseCIDR parses an interface address such as 10.0.0.1/32. The returned
// IPNet keeps the host part of the address. A bare address gets a host
// prefix (/32 or /128).
func ParseCIDR(s string, family int) (*net.IPNet, error) {
	var ipNet *net.IPNet
	if strings.Contains(s, "/") {
		ip, n, err := net.ParseCIDR(s)
		if err != nil {
			return nil, errors.Errorf("invalid address %q", s)
		}
		if ip4 := ip.To4(); ip4 != nil {
			ip = ip4
		}
		ipNet = &net.IPNet{IP: ip, Mask: n.Mask}
	} else {
		ip := net.ParseIP(s)
		if ip == nil {
			return nil, errors.Errorf("invalid address %q", s)
		}
		ipNet = hostNet(ip)
	}
	if err := CheckFamily(ipNet.IP, family); err != nil {
		return nil, err
	}
	return ipNet, nil
}

// ParsePrefix parses a route destination. Unlike ParseCIDR the host bits
// are masked out.
func ParsePrefix(s string, family int) (*net.IPNet, error) {
	if !strings.Contains(s, "/") {
		ip := net.ParseIP(s)
		if ip == nil {
			return nil, errors.Errorf("invalid prefix %q", s)
		}
		if err := CheckFamily(ip, family); err != nil {
			return nil, err
		}
		return hostNet(ip), nil
	}
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		return nil, errors.Errorf("invalid prefix %q", s)
	}
	if err := CheckFamily(n.IP, family); err != nil {
		return nil, err
	}
	return n, nil
}

// ParseIP parses a plain address of the given family.
func ParseIP(s string, family int) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, errors.Errorf("invalid address %q", s)
	}
	if err := CheckFamily(ip, family); err != nil {
		return nil, err
	}
	return ip, nil
}

// CheckFamily fails when ip does not belong to family.
func CheckFamily(ip net.IP, family int) error {
	if got := FamilyOf(ip); got != family {
		return errors.Errorf("%s is an %s address, expected %s", ip, familyName(got), familyName(family))
	}
	return nil
}

// GroupAddress strips an optional prefix length from a multicast group
// (239.1.1.1/32 -> 239.1.1.1) and checks that it is a multicast address.
func GroupAddress(s string) (net.IP, error) {
	ip := net.ParseIP(strings.SplitN(s, "/", 2)[0])
	if ip == nil {
		return nil, errors.Errorf("invalid group address %q", s)
	}
	if !ip.IsMulticast() {
		return nil, errors.Errorf("%s is not a multicast address", ip)
	}
	return ip, nil
}

// IsPlaceholder reports whether a descriptor field is a "no value" marker.
func IsPlaceholder(s string) bool {
	switch s {
	case "", "x", "-", "_":
		return true
	}
	return false
}

func hostNet(ip net.IP) *net.IPNet {
	if ip4 := ip.To4(); ip4 != nil {
		return &net.IPNet{IP: ip4, Mask: net.CIDRMask(32, 32)}
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}
}
