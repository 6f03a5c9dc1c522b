package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gorilla/mux"

	"headsetctl/config"
	"headsetctl/internal/adb"
	herrors "headsetctl/internal/errors"
	"headsetctl/util"
)

// ── Request helpers ──────────────────────────────────────────────────

// portParam reads ?port=; absent means 0 (the configured default).
func portParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("port")
	if raw == "" {
		return 0, nil
	}
	p, err := config.ParsePort(raw)
	if err != nil {
		return 0, invalid(err.Error())
	}
	return p, nil
}

func ipParam(r *http.Request) (netip.Addr, error) {
	a, err := util.ParseIPv4(mux.Vars(r)["ip"])
	if err != nil {
		return netip.Addr{}, invalid(err.Error())
	}
	return a, nil
}

// ── Devices ──────────────────────────────────────────────────────────

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.backend.ListDevices(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if devices == nil {
		devices = []adb.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	serial := mux.Vars(r)["serial"]
	port, err := portParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	release, ok := s.acquire(serial)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%s: %w", serial, herrors.ErrBusy))
		return
	}
	defer release()

	ep, err := s.backend.SwitchToNetwork(r.Context(), serial, port)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (s *Server) handleDeviceIP(w http.ResponseWriter, r *http.Request) {
	ip, err := s.backend.DeviceIP(r.Context(), mux.Vars(r)["serial"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ip": ip.String()})
}

// ── Apps ─────────────────────────────────────────────────────────────

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	out, err := s.backend.LaunchApp(r.Context(), v["serial"], v["pkg"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": out})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if err := s.backend.StopApp(r.Context(), v["serial"], v["pkg"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunning(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	running, err := s.backend.IsRunning(r.Context(), v["serial"], v["pkg"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"running": running})
}

// ── Device state ─────────────────────────────────────────────────────

func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	level, err := s.backend.BatteryLevel(r.Context(), mux.Vars(r)["serial"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"level": level})
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	on, err := s.backend.IsScreenOn(r.Context(), mux.Vars(r)["serial"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"on": on})
}

func (s *Server) handlePowerOff(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.PowerOff(r.Context(), mux.Vars(r)["serial"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Network ──────────────────────────────────────────────────────────

func (s *Server) handleConnectIP(w http.ResponseWriter, r *http.Request) {
	ip, err := ipParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	port, err := portParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ep, err := s.backend.ConnectIP(r.Context(), ip, port)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	ip, err := ipParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	port, err := portParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.backend.Disconnect(r.Context(), ip, port); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.KillBroker(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Phase ────────────────────────────────────────────────────────────

type phaseBody struct {
	Phase string `json:"phase"`
}

func (s *Server) handleGetPhase(w http.ResponseWriter, r *http.Request) {
	ip, err := ipParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.phases.Get(r.Context(), ip)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phaseBody{Phase: p})
}

func (s *Server) handleSetPhase(w http.ResponseWriter, r *http.Request) {
	ip, err := ipParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body phaseBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&body); err != nil {
		s.writeError(w, r, invalid("invalid body: "+err.Error()))
		return
	}
	if body.Phase == "" || strings.ContainsAny(body.Phase, " \t\r\n") {
		s.writeError(w, r, invalid(fmt.Sprintf("invalid phase name %q", body.Phase)))
		return
	}
	if err := s.phases.Set(r.Context(), ip, body.Phase); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// ── Stats ────────────────────────────────────────────────────────────

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
