package hal

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// CommonI2CHandler talks to one device on a Linux I2C bus through periph.io.
// It implements I2CHandler and performs no retries, no caching and no
// locking; callers sharing one handler must serialize access themselves.
type CommonI2CHandler struct {
	bus i2c.BusCloser
	dev *i2c.Dev
	log zerolog.Logger
}

// NewCommonI2CHandler opens the named I2C bus ("" selects the first
// available one) and binds the handler to the device at the given address.
// The device is probed with a single byte read, an unreachable device is
// reported immediately instead of on the first field access.
func NewCommonI2CHandler(busName string, address uint16) (*CommonI2CHandler, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}
	obj := &CommonI2CHandler{
		bus: bus,
		dev: &i2c.Dev{Addr: address, Bus: bus},
		log: zerolog.Nop(),
	}
	if err := obj.probe(); err != nil {
		bus.Close()
		return nil, err
	}
	return obj, nil
}

// SetLogger enables transaction logging, mainly for bus-level debugging.
func (obj *CommonI2CHandler) SetLogger(logger zerolog.Logger) {
	obj.log = logger
}

func (obj *CommonI2CHandler) probe() error {
	var scratch [1]byte
	if err := obj.dev.Tx(nil, scratch[:]); err != nil {
		return fmt.Errorf("device at address %#02x not found on I2C bus %s: %w", obj.dev.Addr, obj.bus, err)
	}
	return nil
}

// ReadRegister reads length bytes starting at the given register address,
// most significant byte first.
func (obj *CommonI2CHandler) ReadRegister(register uint8, length int) ([]byte, error) {
	if length != 1 && length != 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}
	buf := make([]byte, length)
	if err := obj.dev.Tx([]byte{register}, buf); err != nil {
		return nil, fmt.Errorf("failed to read %d bytes from register %#02x: %w", length, register, err)
	}
	obj.log.Debug().Uint8("register", register).Hex("data", buf).Msg("i2c read")
	return buf, nil
}

// WriteRegister writes the given bytes starting at the given register
// address, most significant byte first.
func (obj *CommonI2CHandler) WriteRegister(register uint8, data []byte) error {
	if len(data) != 1 && len(data) != 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidLength, len(data))
	}
	if err := obj.dev.Tx(append([]byte{register}, data...), nil); err != nil {
		return fmt.Errorf("failed to write %d bytes to register %#02x: %w", len(data), register, err)
	}
	obj.log.Debug().Uint8("register", register).Hex("data", data).Msg("i2c write")
	return nil
}

// Close releases the underlying bus.
func (obj *CommonI2CHandler) Close() error {
	return obj.bus.Close()
}
