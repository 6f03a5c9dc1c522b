package api

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"headsetctl/internal/adb"
	"headsetctl/util"
)

// message is one websocket frame.
type message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// devicesPayload carries the full listing and what changed since the
// previous push.
type devicesPayload struct {
	Devices []adb.Device `json:"devices"`
	Changes []adb.Change `json:"changes,omitempty"`
}

const writeWait = 5 * time.Second

// checkOrigin accepts same-origin requests and pages served from the
// loopback interface.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch host := u.Hostname(); host {
	case "localhost":
		return true
	default:
		if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			return true
		}
	}
	s.logger.Warn("websocket: rejected origin %s", origin)
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Verbose("websocket upgrade: %v", err)
		return
	}

	s.wsMu.Lock()
	s.clients[conn] = struct{}{}
	if s.primed {
		s.send(conn, message{Type: "devices", Payload: devicesPayload{Devices: nonNil(s.last)}})
	}
	s.wsMu.Unlock()
	s.logger.Verbose("websocket client %s connected", r.RemoteAddr)

	// Clients never send; reading only detects the close.
	go func() {
		defer func() {
			s.wsMu.Lock()
			delete(s.clients, conn)
			s.wsMu.Unlock()
			conn.Close()
			s.logger.Verbose("websocket client %s disconnected", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !util.IsClosed(err) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Debug("websocket read: %v", err)
				}
				return
			}
		}
	}()
}

// pushDevices lists devices every PushInterval and broadcasts the
// listing whenever it differs from the previous one.
func (s *Server) pushDevices(ctx context.Context) {
	t := time.NewTicker(s.cfg.PushInterval)
	defer t.Stop()
	for {
		s.refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (s *Server) refresh(ctx context.Context) {
	var devices []adb.Device
	err := s.cfg.Breaker.Do(ctx, func(ctx context.Context) error {
		var lerr error
		devices, lerr = s.backend.ListDevices(ctx)
		return lerr
	})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Debug("device stream: %v", err)
		}
		return
	}

	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	changes := adb.Diff(s.last, devices)
	if s.primed && len(changes) == 0 {
		return
	}
	s.last, s.primed = devices, true
	msg := message{Type: "devices", Payload: devicesPayload{Devices: nonNil(devices), Changes: changes}}
	for conn := range s.clients {
		s.send(conn, msg)
	}
}

// send writes msg to conn and drops the client on failure.  Callers
// hold wsMu, which also serialises writers.
func (s *Server) send(conn *websocket.Conn, msg message) {
	conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Verbose("websocket write: %v", err)
		conn.Close()
		delete(s.clients, conn)
	}
}

func (s *Server) closeClients() {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for conn := range s.clients {
		conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(s.clients, conn)
	}
}

func nonNil(d []adb.Device) []adb.Device {
	if d == nil {
		return []adb.Device{}
	}
	return d
}
