package link

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/config"
)

// Probe strategies.
const (
	StrategyDial      = "dial"
	StrategyInterface = "interface"
	StrategyMQTT      = "mqtt"
)

const defaultTimeout = 2 * time.Second

// Session reports whether the transport session is up.
type Session interface {
	IsConnected() bool
}

// Logger is the logging surface a Probe needs.
type Logger interface {
	Info(msg string, args ...any)
}

// Probe answers IsLinkUp for the connectivity monitor.
//
// Each call performs a fresh check; results are never cached across calls.
// Transitions between up and down are logged once.
type Probe struct {
	strategy  string
	addr      string
	iface     string
	timeout   time.Duration
	session   Session
	dial      func(ctx context.Context, network, addr string) (net.Conn, error)
	ifaceByNm func(name string) (*net.Interface, error)
	logger    Logger

	mu     sync.Mutex
	last   bool
	known  bool
	checks uint64
}

// New creates a Probe.
//
// Parameters:
//   - cfg: link section of config.yaml
//   - brokerAddr: host:port dialled by the "dial" strategy
//   - session: transport session used by the "mqtt" strategy (may be nil otherwise)
//   - logger: optional
func New(cfg config.LinkConfig, brokerAddr string, session Session, logger Logger) (*Probe, error) {
	p := &Probe{
		strategy:  cfg.Probe,
		addr:      brokerAddr,
		iface:     cfg.Interface,
		timeout:   cfg.Timeout,
		session:   session,
		ifaceByNm: net.InterfaceByName,
		logger:    logger,
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	d := &net.Dialer{}
	p.dial = d.DialContext

	switch cfg.Probe {
	case StrategyDial:
		if brokerAddr == "" {
			return nil, fmt.Errorf("%w: dial probe needs a broker address", ErrInvalidConfig)
		}
	case StrategyInterface:
		if cfg.Interface == "" {
			return nil, fmt.Errorf("%w: interface probe needs an interface name", ErrInvalidConfig)
		}
	case StrategyMQTT:
		if session == nil {
			return nil, fmt.Errorf("%w: mqtt probe needs a session", ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Probe)
	}

	return p, nil
}

// IsLinkUp performs one check with the configured strategy.
func (p *Probe) IsLinkUp() bool {
	var up bool
	switch p.strategy {
	case StrategyDial:
		up = p.checkDial()
	case StrategyInterface:
		up = p.checkInterface()
	case StrategyMQTT:
		up = p.session.IsConnected()
	}

	p.mu.Lock()
	changed := !p.known || p.last != up
	p.last, p.known = up, true
	p.checks++
	p.mu.Unlock()

	if changed && p.logger != nil {
		p.logger.Info("link state", "up", up, "probe", p.strategy)
	}
	return up
}

// Strategy returns the configured probe strategy.
func (p *Probe) Strategy() string { return p.strategy }

// Checks returns how many checks have been performed.
func (p *Probe) Checks() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checks
}

func (p *Probe) checkDial() bool {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.addr)
	if err != nil {
		return false
	}
	conn.Close() //nolint:errcheck // probe connection carries no data
	return true
}

func (p *Probe) checkInterface() bool {
	ifi, err := p.ifaceByNm(p.iface)
	if err != nil || ifi.Flags&net.FlagUp == 0 {
		return false
	}
	addrs, err := ifi.Addrs()
	return err == nil && len(addrs) > 0
}
