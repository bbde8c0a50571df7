package hal

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/config"
)

// Output drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverModbus = "modbus"
)

const outputFileMode = 0o644

// Output is a binary output device such as an LED or relay.
type Output interface {
	Set(on bool) error
	State() bool
}

// NewOutput builds the output driver selected in config.
func NewOutput(cfg config.OutputConfig) (Output, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return &MemoryOutput{}, nil
	case DriverFile:
		return NewFileOutput(cfg.Path)
	case DriverModbus:
		return NewModbusOutput(cfg.Modbus)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// MemoryOutput keeps the output level in memory.
type MemoryOutput struct {
	mu     sync.Mutex
	on     bool
	writes int
}

// Set drives the output.
func (o *MemoryOutput) Set(on bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.on = on
	o.writes++
	return nil
}

// State returns the last level set.
func (o *MemoryOutput) State() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.on
}

// Writes returns how many times Set was called.
func (o *MemoryOutput) Writes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.writes
}

// FileOutput writes "1" or "0" to a file, e.g. /sys/class/gpio/gpio17/value.
type FileOutput struct {
	path string
	mu   sync.Mutex
	on   bool
}

// NewFileOutput creates a file-backed output. The file need not exist yet.
func NewFileOutput(path string) (*FileOutput, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file driver needs a path", ErrInvalidOutput)
	}
	return &FileOutput{path: path}, nil
}

// Set writes the level to the file.
func (o *FileOutput) Set(on bool) error {
	data := []byte("0")
	if on {
		data = []byte("1")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := os.WriteFile(o.path, data, outputFileMode); err != nil {
		return fmt.Errorf("writing output %s: %w", o.path, err)
	}
	o.on = on
	return nil
}

// State returns the last level written.
func (o *FileOutput) State() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.on
}

// Read returns the level currently stored in the file.
func (o *FileOutput) Read() (bool, error) {
	data, err := os.ReadFile(o.path)
	if err != nil {
		return false, fmt.Errorf("reading output %s: %w", o.path, err)
	}
	return string(bytes.TrimSpace(data)) == "1", nil
}

// Path returns the file written by Set.
func (o *FileOutput) Path() string { return o.path }
