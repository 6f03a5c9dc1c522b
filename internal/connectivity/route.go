package connectivity

import (
	"bufio"
	"net/netip"
	"strings"

	herrors "headsetctl/internal/errors"
	"headsetctl/util"
)

// routeAddrField is the position of the source address on a kernel
// route line: "<net> dev <if> proto kernel scope link src <addr>".
const routeAddrField = 8

// parseRoute extracts the device's LAN address from "ip route" output.
// The first line with at least nine whitespace separated fields wins.
// No such line means the device has no network.
func parseRoute(output string) (netip.Addr, error) {
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) <= routeAddrField {
			continue
		}
		addr, err := util.ParseIPv4(fields[routeAddrField])
		if err != nil {
			return netip.Addr{}, herrors.Parse("ip route", sc.Text(), err)
		}
		return addr, nil
	}
	return netip.Addr{}, herrors.ErrNotInANetwork
}
