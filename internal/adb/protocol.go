package adb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Status words that start every server reply.
const (
	statusOkay = "OKAY"
	statusFail = "FAIL"
)

// maxMessage bounds a length-prefixed reply; the length field is four
// hex digits so nothing larger can be announced.
const maxMessage = 0xffff

// encodeRequest frames a host service request as four hex digits of
// payload length followed by the payload.
func encodeRequest(service string) ([]byte, error) {
	if len(service) > maxMessage {
		return nil, fmt.Errorf("service request too long (%d bytes)", len(service))
	}
	return []byte(fmt.Sprintf("%04x%s", len(service), service)), nil
}

// readStatus consumes the four-byte status word.  An OKAY yields nil.
// A FAIL yields a failReply carrying the server's message.
func readStatus(r *bufio.Reader) error {
	var word [4]byte
	if _, err := io.ReadFull(r, word[:]); err != nil {
		return err
	}
	switch string(word[:]) {
	case statusOkay:
		return nil
	case statusFail:
		msg, err := readMessage(r)
		if err != nil {
			return err
		}
		return &failReply{Message: msg}
	default:
		return fmt.Errorf("unexpected status %q", word[:])
	}
}

// readMessage reads a length-prefixed string.
func readMessage(r *bufio.Reader) (string, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(string(hdr[:]), 16, 16)
	if err != nil {
		return "", fmt.Errorf("bad length header %q", hdr[:])
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// failReply is a FAIL status decoded off the wire.  Session methods
// turn it into a ProtocolError carrying the service name.
type failReply struct {
	Message string
}

func (f *failReply) Error() string { return "FAIL " + f.Message }
