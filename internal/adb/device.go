package adb

import (
	"bufio"
	"strings"
)

// Serial identifies a device to the ADB server.  It is opaque, and a
// device's serial changes when it moves between USB and network mode.
type Serial = string

// State is the connection state of a device as reported by the server.
type State int

const (
	Offline State = iota
	Online
	NoDevice
	Authorizing
	Unauthorized
)

var stateNames = [...]string{
	Offline:      "offline",
	Online:       "device",
	NoDevice:     "no device",
	Authorizing:  "authorizing",
	Unauthorized: "unauthorized",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText renders the state with its wire name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseState maps the server's state word to a State.  Words this
// client does not model (bootloader, recovery, sideload, host) are
// treated as Offline since no shell service is reachable in them.
func ParseState(word string) State {
	switch strings.TrimSpace(word) {
	case "device":
		return Online
	case "no device":
		return NoDevice
	case "authorizing":
		return Authorizing
	case "unauthorized":
		return Unauthorized
	default:
		return Offline
	}
}

// Device is one entry of a device listing.  Listings are produced
// fresh on every request.
type Device struct {
	Serial Serial `json:"serial"`
	State  State  `json:"state"`
}

// Online reports whether the device accepts shell commands.
func (d Device) Online() bool { return d.State == Online }

// parseDevices decodes the host:devices body: one "serial\tstate"
// line per device.  Blank and malformed lines are skipped.
func parseDevices(body string) []Device {
	var devices []Device
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		serial, state, ok := strings.Cut(line, "\t")
		if !ok || serial == "" {
			continue
		}
		devices = append(devices, Device{Serial: serial, State: ParseState(state)})
	}
	return devices
}

// Find returns the device with the given serial.
func Find(devices []Device, serial Serial) (Device, bool) {
	for _, d := range devices {
		if d.Serial == serial {
			return d, true
		}
	}
	return Device{}, false
}

// ── Listing changes ──────────────────────────────────────────────────

// ChangeKind says how a device entry moved between two listings.
type ChangeKind int

const (
	Attached ChangeKind = iota
	Detached
	StateChanged
)

func (k ChangeKind) String() string {
	switch k {
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	default:
		return "state"
	}
}

// MarshalText encodes the kind by name.
func (k ChangeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Change is one difference between two listings.  For Detached, State
// is the last state seen.
type Change struct {
	Serial Serial     `json:"serial"`
	Kind   ChangeKind `json:"kind"`
	State  State      `json:"state"`
	Prev   State      `json:"prev"`
}

// Diff returns the changes that turn prev into next, in the order of
// next followed by the detached entries of prev.
func Diff(prev, next []Device) []Change {
	var changes []Change
	for _, d := range next {
		old, ok := Find(prev, d.Serial)
		switch {
		case !ok:
			changes = append(changes, Change{Serial: d.Serial, Kind: Attached, State: d.State})
		case old.State != d.State:
			changes = append(changes, Change{Serial: d.Serial, Kind: StateChanged, State: d.State, Prev: old.State})
		}
	}
	for _, d := range prev {
		if _, ok := Find(next, d.Serial); !ok {
			changes = append(changes, Change{Serial: d.Serial, Kind: Detached, State: d.State})
		}
	}
	return changes
}
