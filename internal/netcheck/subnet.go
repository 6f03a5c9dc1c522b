// Package netcheck decides whether a device address is reachable from
// this machine's LAN: it enumerates local IPv4 interfaces and compares
// addresses under their netmasks.
package netcheck

import "net/netip"

// SameSubnet reports whether candidate and reference agree on every bit
// selected by mask.  All three must be IPv4 (4-in-6 forms are
// unmapped); anything else is never on the same subnet.
func SameSubnet(candidate, reference, mask netip.Addr) bool {
	c, r, m := candidate.Unmap(), reference.Unmap(), mask.Unmap()
	if !c.Is4() || !r.Is4() || !m.Is4() {
		return false
	}
	cb, rb, mb := c.As4(), r.As4(), m.As4()
	for i := 0; i < 4; i++ {
		if cb[i]&mb[i] != rb[i]&mb[i] {
			return false
		}
	}
	return true
}

// MaskFromBits returns the dotted IPv4 mask for a prefix length
// (e.g. 24 → 255.255.255.0).  Lengths outside 0..32 are clamped.
func MaskFromBits(bits int) netip.Addr {
	if bits < 0 {
		bits = 0
	}
	if bits > 32 {
		bits = 32
	}
	var m uint32
	if bits > 0 {
		m = ^uint32(0) << (32 - bits)
	}
	return netip.AddrFrom4([4]byte{byte(m >> 24), byte(m >> 16), byte(m >> 8), byte(m)})
}
