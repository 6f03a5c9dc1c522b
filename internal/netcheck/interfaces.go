package netcheck

import (
	"context"
	"fmt"
	"net/netip"
	"sort"

	psnet "github.com/shirou/gopsutil/v3/net"

	herrors "headsetctl/internal/errors"
)

// Prefix is one IPv4 address configured on a local interface together
// with its netmask.
type Prefix struct {
	Addr netip.Addr
	Mask netip.Addr
}

func (p Prefix) String() string {
	return fmt.Sprintf("%s/%s", p.Addr, p.Mask)
}

// InterfaceSet maps interface name to the IPv4 prefixes configured on it.
type InterfaceSet map[string][]Prefix

// Reachable reports whether device shares a subnet with any local prefix.
func (s InterfaceSet) Reachable(device netip.Addr) bool {
	for _, prefixes := range s {
		for _, p := range prefixes {
			if SameSubnet(p.Addr, device, p.Mask) {
				return true
			}
		}
	}
	return false
}

// Names returns the interface names in sorted order.
func (s InterfaceSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// InterfaceLister enumerates network interfaces.  It matches the
// signature of gopsutil's net.InterfacesWithContext so tests can
// substitute a fixed list.
type InterfaceLister func(ctx context.Context) (psnet.InterfaceStatList, error)

// Interfaces enumerates the local IPv4 prefixes.  Addresses with no
// IPv4 form (IPv6, link-local v6, malformed entries) are skipped, and
// interfaces left with no prefixes are omitted.
func Interfaces(ctx context.Context) (InterfaceSet, error) {
	return collect(ctx, psnet.InterfacesWithContext)
}

func collect(ctx context.Context, list InterfaceLister) (InterfaceSet, error) {
	stats, err := list(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate interfaces: %w", err)
	}
	set := make(InterfaceSet, len(stats))
	for _, st := range stats {
		for _, a := range st.Addrs {
			p, ok := parsePrefix(a.Addr)
			if !ok {
				continue
			}
			set[st.Name] = append(set[st.Name], p)
		}
	}
	return set, nil
}

// parsePrefix turns gopsutil's CIDR text ("192.168.1.10/24") into an
// address and dotted mask.
func parsePrefix(s string) (Prefix, bool) {
	pfx, err := netip.ParsePrefix(s)
	if err != nil {
		// Some platforms report a bare address.
		a, aerr := netip.ParseAddr(s)
		if aerr != nil {
			return Prefix{}, false
		}
		pfx = netip.PrefixFrom(a, a.BitLen())
	}
	addr := pfx.Addr().Unmap()
	if !addr.Is4() {
		return Prefix{}, false
	}
	bits := pfx.Bits()
	if pfx.Addr().Is4In6() {
		bits -= 96
	}
	return Prefix{Addr: addr, Mask: MaskFromBits(bits)}, true
}

// ── Checker ──────────────────────────────────────────────────────────

// Checker decides whether a device address is usable from here.
type Checker interface {
	Reachable(ctx context.Context, device netip.Addr) error
}

// LocalChecker compares device addresses against the interfaces of
// this machine, re-enumerated on every call.
type LocalChecker struct {
	// List overrides interface enumeration (nil = gopsutil).
	List InterfaceLister
}

// Reachable returns nil if device shares a subnet with a local
// interface and ErrNotInSameNetwork otherwise.
func (c LocalChecker) Reachable(ctx context.Context, device netip.Addr) error {
	list := c.List
	if list == nil {
		list = psnet.InterfacesWithContext
	}
	set, err := collect(ctx, list)
	if err != nil {
		return err
	}
	if !set.Reachable(device) {
		return fmt.Errorf("%s: %w", device, herrors.ErrNotInSameNetwork)
	}
	return nil
}
