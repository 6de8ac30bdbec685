package topology

import (
	"fmt"

	"micronet/api"
)

// MaxInterfaceName is the longest interface name the kernel accepts (IFNAMSIZ - 1).
const MaxInterfaceName = 15

// Order returns the pair sorted by string order.
func Order(a, b string) (lo, hi string) {
	if a < b {
		return a, b
	}
	return b, a
}

// InterfaceNames returns the endpoint names of the {a, b} link: the first
// one lives in min(a, b), the second one in max(a, b). The result does not
// depend on the argument order.
func InterfaceNames(a, b string) (string, string) {
	lo, hi := Order(a, b)
	return fmt.Sprintf("veth-%s-%s-0", lo, hi), fmt.Sprintf("veth-%s-%s-1", lo, hi)
}

// InterfaceName returns the name of the {self, peer} endpoint that lives in self.
func InterfaceName(self, peer string) string {
	loName, hiName := InterfaceNames(self, peer)
	if self < peer {
		return loName
	}
	return hiName
}

// Endpoints returns both endpoints of l, lower node first.
func Endpoints(l api.Link) (api.Endpoint, api.Endpoint) {
	lo, hi := Order(l.A, l.B)
	loName, hiName := InterfaceNames(lo, hi)
	return api.Endpoint{Node: lo, Peer: hi, Name: loName},
		api.Endpoint{Node: hi, Peer: lo, Name: hiName}
}

// CheckName fails when name does not fit in IFNAMSIZ.
func CheckName(name string) error {
	if len(name) > MaxInterfaceName {
		return api.Configf("interface name %q is longer than %d bytes, use shorter node ids", name, MaxInterfaceName)
	}
	return nil
}
