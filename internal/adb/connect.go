package adb

import "strings"

// ConnectResult is the outcome of a successful host:connect.
type ConnectResult int

const (
	Connected ConnectResult = iota
	AlreadyConnected
)

func (r ConnectResult) String() string {
	if r == AlreadyConnected {
		return "already connected"
	}
	return "connected"
}

// Status prefixes the server uses for a connect that did not succeed.
// They arrive inside an OKAY reply.
var connectFailures = []string{
	"failed to connect",
	"cannot connect",
	"unable to connect",
	"failed to authenticate",
}

// classifyConnect is the one place that interprets the free-text
// status of a connect request.  The server words "already connected"
// either as an OKAY message or, on some versions, as a FAIL reply, so
// both paths come through here; failed is true for the FAIL path.
// The phrase may sit anywhere in the text ("error: device X already
// connected"), and it wins over every failure prefix.
// ok reports whether the text describes a usable connection.
func classifyConnect(message string, failed bool) (result ConnectResult, ok bool) {
	msg := strings.ToLower(strings.TrimSpace(message))
	if strings.Contains(msg, "already connected") {
		return AlreadyConnected, true
	}
	if failed {
		return Connected, false
	}
	for _, p := range connectFailures {
		if strings.HasPrefix(msg, p) {
			return Connected, false
		}
	}
	return Connected, true
}
