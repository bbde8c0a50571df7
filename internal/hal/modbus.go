package hal

import (
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/config"
)

// Single-coil write values (function 0x05).
const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

const defaultModbusTimeout = time.Second

// ModbusOutput drives one coil on a Modbus TCP device, typically a relay
// module. The TCP connection is opened on the first write and re-opened
// after a failure, so the node can start before the device is reachable.
type ModbusOutput struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
	coil    uint16
	on      bool
}

// NewModbusOutput creates a coil output. It does not connect.
func NewModbusOutput(cfg config.ModbusOutputConfig) (*ModbusOutput, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: modbus driver needs an endpoint", ErrInvalidOutput)
	}
	if cfg.UnitID < 0 || cfg.UnitID > 247 {
		return nil, fmt.Errorf("%w: modbus unit id %d", ErrInvalidOutput, cfg.UnitID)
	}
	if cfg.Coil < 0 || cfg.Coil > 0xFFFF {
		return nil, fmt.Errorf("%w: modbus coil %d", ErrInvalidOutput, cfg.Coil)
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	if h.Timeout <= 0 {
		h.Timeout = defaultModbusTimeout
	}
	h.SlaveId = byte(cfg.UnitID)

	return &ModbusOutput{
		handler: h,
		client:  modbus.NewClient(h),
		coil:    uint16(cfg.Coil),
	}, nil
}

// Set writes the coil.
func (o *ModbusOutput) Set(on bool) error {
	value := coilOff
	if on {
		value = coilOn
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.client.WriteSingleCoil(o.coil, value); err != nil {
		//nolint:errcheck // reconnect on next write
		o.handler.Close()
		return fmt.Errorf("writing coil %d on %s: %w", o.coil, o.handler.Address, err)
	}
	o.on = on
	return nil
}

// State returns the last level written.
func (o *ModbusOutput) State() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.on
}

// Close drops the TCP connection.
func (o *ModbusOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handler.Close()
}
