// Package connectivity drives a device from USB debugging to network
// debugging.  The Orchestrator owns the whole sequence: it makes sure
// the ADB server is up, asks the device to listen on TCP, waits for it
// to come back, finds its LAN address, checks that address is reachable
// from this machine, and connects.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"headsetctl/internal/adb"
	"headsetctl/internal/broker"
	herrors "headsetctl/internal/errors"
	"headsetctl/internal/metrics"
	"headsetctl/internal/netcheck"
	"headsetctl/internal/retry"
	"headsetctl/internal/transport"
	"headsetctl/util"
)

// Endpoint is a device address that passed the subnet check.
type Endpoint struct {
	IP   netip.Addr `json:"ip"`
	Port int        `json:"port"`
}

func (e Endpoint) String() string { return util.FormatAddr(e.IP.String(), e.Port) }

// Supervisor starts the ADB server and requests tcpip mode.
// *broker.Supervisor is the production implementation.
type Supervisor interface {
	EnsureRunning(ctx context.Context) error
	TCPIP(ctx context.Context, serial string, port int) ([]byte, error)
}

// Deps are the collaborators of an Orchestrator.  Nil fields get
// production defaults built from Options.
type Deps struct {
	Client     *adb.Client
	Supervisor Supervisor
	Checker    netcheck.Checker
	Metrics    *metrics.Collector
	Logger     *util.Logger
	// Sleep replaces the poll wait (tests).
	Sleep retry.SleepFunc
}

// Orchestrator runs connectivity workflows.  It holds no mutable state
// and is safe for concurrent use; each call opens its own session.
type Orchestrator struct {
	opts       Options
	client     *adb.Client
	supervisor Supervisor
	checker    netcheck.Checker
	metrics    *metrics.Collector
	logger     *util.Logger
	sleep      retry.SleepFunc
}

// New builds an Orchestrator.
func New(opts Options, d Deps) *Orchestrator {
	opts = opts.withDefaults()
	if d.Logger == nil {
		d.Logger = util.NewLogger(0)
	}
	if d.Client == nil {
		d.Client = adb.NewClient(opts.BrokerAddr, &transport.TCPDialer{Timeout: opts.DialTimeout}, d.Logger)
	}
	if d.Supervisor == nil {
		d.Supervisor = broker.New(opts.ADBPath, d.Logger)
	}
	if d.Checker == nil {
		d.Checker = netcheck.LocalChecker{}
	}
	return &Orchestrator{
		opts:       opts,
		client:     d.Client,
		supervisor: d.Supervisor,
		checker:    d.Checker,
		metrics:    d.Metrics,
		logger:     d.Logger,
		sleep:      d.Sleep,
	}
}

// Options returns the configuration the orchestrator was built with.
func (o *Orchestrator) Options() Options { return o.opts }

// session opens a broker session.  If the server is not reachable it
// is started once and the open retried once; there is no loop.
func (o *Orchestrator) session(ctx context.Context, log *util.Logger) (*adb.Session, error) {
	s, err := o.client.Open(ctx)
	if err == nil {
		return s, nil
	}
	if ctx.Err() != nil || !herrors.IsBrokerUnavailable(err) {
		return nil, err
	}

	log.Warn("adb server not reachable (%v), starting it", err)
	o.metrics.BrokerLaunched()
	if lerr := o.supervisor.EnsureRunning(ctx); lerr != nil {
		return nil, fmt.Errorf("adb server unavailable: %w", errors.Join(err, lerr))
	}
	s, err = o.client.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("adb server still unavailable after start: %w", err)
	}
	return s, nil
}

// ── Switch to network ────────────────────────────────────────────────

// SwitchToNetwork moves serial from USB to network debugging on port
// (0 means the configured default) and returns the connected endpoint.
//
// A device already listening on port skips the mode switch.  If the
// device does not reappear within the poll budget the workflow carries
// on; the address lookup that follows reports the real failure.  An
// address outside every local subnet fails with ErrNotInSameNetwork
// and nothing is retried.
func (o *Orchestrator) SwitchToNetwork(ctx context.Context, serial string, port int) (Endpoint, error) {
	if port == 0 {
		port = o.opts.Port
	}
	log := o.logger.With("op", uuid.NewString()).With("serial", serial)
	done := o.metrics.SwitchStarted()

	ep, err := o.switchToNetwork(ctx, log, serial, port)
	done(outcome(err))
	if err != nil {
		o.metrics.RecordError(err.Error())
		log.Verbose("switch failed: %v", err)
		return Endpoint{}, err
	}
	log.Info("connected over network at %s", ep)
	return ep, nil
}

func (o *Orchestrator) switchToNetwork(ctx context.Context, log *util.Logger, serial string, port int) (Endpoint, error) {
	s, err := o.session(ctx, log)
	if err != nil {
		return Endpoint{}, err
	}

	out, err := s.Shell(ctx, serial, "getprop", "service.adb.tcp.port")
	if err != nil {
		return Endpoint{}, fmt.Errorf("read tcp port of %s: %w", serial, err)
	}
	current := strings.TrimSpace(string(out))
	log.Verbose("configured tcp port: %q", current)

	if current != strconv.Itoa(port) {
		if err := o.requestTCPIP(ctx, log, s, serial, port); err != nil {
			return Endpoint{}, err
		}
	} else {
		log.Verbose("device already listens on %d, skipping mode switch", port)
	}

	ip, err := o.deviceIP(ctx, s, serial)
	if err != nil {
		return Endpoint{}, err
	}

	if err := o.checker.Reachable(ctx, ip); err != nil {
		return Endpoint{}, err
	}

	res, err := s.Connect(ctx, ip.String(), port)
	if err != nil {
		o.metrics.Connected("failed")
		return Endpoint{}, err
	}
	o.metrics.Connected(res.String())
	log.Verbose("connect %s:%d: %s", ip, port, res)
	return Endpoint{IP: ip, Port: port}, nil
}

// requestTCPIP restarts the device daemon in TCP mode and waits for the
// device to show up in the listing again.  Running out of attempts is
// only logged.
func (o *Orchestrator) requestTCPIP(ctx context.Context, log *util.Logger, s *adb.Session, serial string, port int) error {
	o.metrics.ModeSwitchRequested()
	out, err := o.supervisor.TCPIP(ctx, serial, port)
	if err != nil {
		return fmt.Errorf("request tcpip %d on %s: %w", port, serial, err)
	}
	log.Info("tcpip result: %s", strings.TrimSpace(string(out)))

	poller := retry.Poller{
		Attempts: o.opts.PollAttempts,
		Interval: o.opts.PollInterval,
		Sleep:    o.sleep,
	}
	found, err := poller.Until(ctx, func(ctx context.Context, attempt int) bool {
		o.metrics.PollAttempt()
		devices, err := s.ListDevices(ctx)
		if err != nil {
			log.Verbose("poll %d: listing devices: %v", attempt, err)
			return false
		}
		_, ok := adb.Find(devices, serial)
		log.Debug("poll %d: present=%v", attempt, ok)
		return ok
	})
	if err != nil {
		return err
	}
	if !found {
		log.Warn("device did not reappear after %d attempts, continuing", o.opts.PollAttempts)
	}
	return nil
}

func (o *Orchestrator) deviceIP(ctx context.Context, s *adb.Session, serial string) (netip.Addr, error) {
	out, err := s.Shell(ctx, serial, "ip", "route")
	if err != nil {
		return netip.Addr{}, fmt.Errorf("read routes of %s: %w", serial, err)
	}
	return parseRoute(string(out))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, herrors.ErrNotInANetwork):
		return metrics.OutcomeNotInNetwork
	case errors.Is(err, herrors.ErrNotInSameNetwork):
		return metrics.OutcomeNotInSameNetwork
	default:
		return metrics.OutcomeError
	}
}

// ── Passthroughs ─────────────────────────────────────────────────────

// ListDevices returns the current device listing, starting the ADB
// server first if needed.
func (o *Orchestrator) ListDevices(ctx context.Context) ([]adb.Device, error) {
	s, err := o.session(ctx, o.logger)
	if err != nil {
		return nil, err
	}
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	o.metrics.DevicesSeen(len(devices))
	return devices, nil
}

// DeviceIP returns the LAN address of serial from its route table.
func (o *Orchestrator) DeviceIP(ctx context.Context, serial string) (netip.Addr, error) {
	s, err := o.session(ctx, o.logger)
	if err != nil {
		return netip.Addr{}, err
	}
	return o.deviceIP(ctx, s, serial)
}

// ConnectIP connects to a device at a known address.  The address must
// still share a subnet with this machine.
func (o *Orchestrator) ConnectIP(ctx context.Context, ip netip.Addr, port int) (Endpoint, error) {
	if port == 0 {
		port = o.opts.Port
	}
	if err := o.checker.Reachable(ctx, ip); err != nil {
		return Endpoint{}, err
	}
	s, err := o.session(ctx, o.logger)
	if err != nil {
		return Endpoint{}, err
	}
	res, err := s.Connect(ctx, ip.String(), port)
	if err != nil {
		o.metrics.Connected("failed")
		return Endpoint{}, err
	}
	o.metrics.Connected(res.String())
	return Endpoint{IP: ip, Port: port}, nil
}

// Disconnect drops a network device connection.
func (o *Orchestrator) Disconnect(ctx context.Context, ip netip.Addr, port int) error {
	if port == 0 {
		port = o.opts.Port
	}
	s, err := o.session(ctx, o.logger)
	if err != nil {
		return err
	}
	return s.Disconnect(ctx, ip.String(), port)
}

// KillBroker stops the ADB server.  A server that is not running is
// left alone.
func (o *Orchestrator) KillBroker(ctx context.Context) error {
	s, err := o.client.Open(ctx)
	if err != nil {
		if herrors.IsBrokerUnavailable(err) {
			o.logger.Verbose("adb server not running")
			return nil
		}
		return err
	}
	return s.Kill(ctx)
}
