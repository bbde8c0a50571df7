package hal

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-touchnode/internal/actuator"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/config"
)

var _ actuator.Output = (*ModbusOutput)(nil)

// coilWrite is one decoded write-single-coil request.
type coilWrite struct {
	unit  byte
	coil  uint16
	value uint16
}

// fakeRelay is a Modbus TCP server that answers write-single-coil requests
// by echoing them, as a real device does.
type fakeRelay struct {
	ln     net.Listener
	mu     sync.Mutex
	writes []coilWrite
}

func startFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r := &fakeRelay{ln: ln}
	go r.serve()
	t.Cleanup(func() { ln.Close() })
	return r
}

func (r *fakeRelay) addr() string { return r.ln.Addr().String() }

func (r *fakeRelay) serve() {
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			return
		}
		go r.handle(conn)
	}
}

func (r *fakeRelay) handle(conn net.Conn) {
	defer conn.Close()
	for {
		header := make([]byte, 7)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		length := binary.BigEndian.Uint16(header[4:6])
		pdu := make([]byte, int(length)-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}
		if len(pdu) == 5 && pdu[0] == 0x05 {
			r.mu.Lock()
			r.writes = append(r.writes, coilWrite{
				unit:  header[6],
				coil:  binary.BigEndian.Uint16(pdu[1:3]),
				value: binary.BigEndian.Uint16(pdu[3:5]),
			})
			r.mu.Unlock()
		}
		if _, err := conn.Write(append(header, pdu...)); err != nil {
			return
		}
	}
}

func (r *fakeRelay) recorded() []coilWrite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]coilWrite(nil), r.writes...)
}

func TestNewModbusOutput_Validation(t *testing.T) {
	_, err := NewModbusOutput(config.ModbusOutputConfig{})
	assert.ErrorIs(t, err, ErrInvalidOutput)

	_, err = NewModbusOutput(config.ModbusOutputConfig{Endpoint: "10.0.0.5:502", UnitID: 300})
	assert.ErrorIs(t, err, ErrInvalidOutput)

	_, err = NewModbusOutput(config.ModbusOutputConfig{Endpoint: "10.0.0.5:502", Coil: 70000})
	assert.ErrorIs(t, err, ErrInvalidOutput)

	out, err := NewOutput(config.OutputConfig{
		Driver: DriverModbus,
		Modbus: config.ModbusOutputConfig{Endpoint: "10.0.0.5:502", UnitID: 1},
	})
	require.NoError(t, err)
	assert.IsType(t, &ModbusOutput{}, out)
}

func TestModbusOutput_WritesCoil(t *testing.T) {
	relay := startFakeRelay(t)

	out, err := NewModbusOutput(config.ModbusOutputConfig{
		Endpoint: relay.addr(),
		UnitID:   7,
		Coil:     3,
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, out.Set(true))
	assert.True(t, out.State())
	require.NoError(t, out.Set(false))
	assert.False(t, out.State())

	assert.Equal(t, []coilWrite{
		{unit: 7, coil: 3, value: 0xFF00},
		{unit: 7, coil: 3, value: 0x0000},
	}, relay.recorded())
}

func TestModbusOutput_UnreachableKeepsState(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	out, err := NewModbusOutput(config.ModbusOutputConfig{Endpoint: addr, Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	err = out.Set(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing coil 0")
	assert.False(t, out.State())
}
