package hal

import "fmt"

// UsedBytes selects which part of a 16-bit register a whole or half
// register field covers.
type UsedBytes int

const (
	// UsedBytesMSB covers only the most significant byte (first byte on the bus).
	UsedBytesMSB UsedBytes = -1
	// UsedBytesBoth covers the full 16-bit register.
	UsedBytesBoth UsedBytes = 0
	// UsedBytesLSB covers only the least significant byte (second byte on the bus).
	UsedBytesLSB UsedBytes = 1
)

// RegisterField describes a bit field inside a 16-bit, word-aligned device
// register. It knows where the field lives, how many bytes must be
// transacted to reach it, and how to translate between the raw big-endian
// bytes on the bus and a plain integer, so that callers never mask, shift
// or sign-extend by hand.
//
// A field is constructed once, at driver definition time, and holds no
// runtime state. All mutation happens in the device memory through
// read-modify-write, bits outside the field are preserved.
type RegisterField struct {
	address   uint8
	size      int
	numBits   int
	lowestBit int
	mask      uint16
	signed    bool
	readOnly  bool
}

// NewRegisterField constructs a field of numBits bits whose least
// significant bit sits at position lowestBit of the 16-bit register at
// registerAddress.
//
// Registers are 16-bit and word-aligned, so a writable field must sit at an
// even address. With independentBytes set, a field that lies entirely
// inside one byte of the register is transacted as a single byte; the
// handler then addresses the byte that actually contains the bits. Without
// it every access moves the full two bytes.
func NewRegisterField(registerAddress uint8, numBits int, lowestBit int, signed bool, independentBytes bool, readOnly bool) (*RegisterField, error) {
	fieldSpan := lowestBit + numBits

	if !readOnly && registerAddress%2 != 0 {
		return nil, fmt.Errorf("%w: register address must be even, got %#02x", ErrFieldDefinition, registerAddress)
	}
	if numBits < 1 || numBits > 16 {
		return nil, fmt.Errorf("%w: num bits %d, must be in range 1-16", ErrFieldDefinition, numBits)
	}
	if lowestBit < 0 || lowestBit > 15 {
		return nil, fmt.Errorf("%w: lowest bit %d, must be in range 0-15", ErrFieldDefinition, lowestBit)
	}
	if fieldSpan > 16 {
		return nil, fmt.Errorf("%w: %d bits starting at bit %d exceed the 16-bit register", ErrFieldDefinition, numBits, lowestBit)
	}

	obj := &RegisterField{
		address:   registerAddress,
		size:      2,
		numBits:   numBits,
		lowestBit: lowestBit,
		mask:      uint16((1<<numBits)-1) << lowestBit,
		signed:    signed,
		readOnly:  readOnly,
	}
	if independentBytes {
		if lowestBit >= 8 {
			// field sits in the high byte, rebase the mask to the single byte we transact
			obj.size = 1
			obj.mask >>= 8
		} else if fieldSpan <= 8 {
			// field sits in the low byte, which is the second byte on the bus
			obj.size = 1
			obj.address = registerAddress + 1
		}
	}
	return obj, nil
}

// shift is the distance of the field from bit zero of the transacted span.
// It equals lowestBit except for single-byte access to the high byte,
// where the span starts at register bit 8.
func (obj *RegisterField) shift() int {
	if obj.size == 1 && obj.lowestBit >= 8 {
		return obj.lowestBit - 8
	}
	return obj.lowestBit
}

// Read transacts the field's byte span and returns the decoded field value.
// Signed fields are reinterpreted as two's complement over the field width.
func (obj *RegisterField) Read(hw I2CHandler) (int, error) {
	data, err := hw.ReadRegister(obj.address, obj.size)
	if err != nil {
		return 0, err
	}
	var reg uint16
	for _, b := range data {
		reg = reg<<8 | uint16(b)
	}
	value := int((reg & obj.mask) >> obj.shift())
	if obj.signed {
		signBit := 1 << (obj.numBits - 1)
		value = (value ^ signBit) - signBit
	}
	return value, nil
}

// Write merges value into the field's bits and writes the byte span back.
// The surrounding bits of the span are preserved through read-modify-write;
// there is no atomicity guarantee, callers sharing a device must serialize.
// Access and range violations are reported before the bus is touched.
func (obj *RegisterField) Write(hw I2CHandler, value int) error {
	if obj.readOnly {
		return ErrFieldReadOnly
	}
	raw := value
	if obj.signed {
		signBit := 1 << (obj.numBits - 1)
		if value < -signBit || value >= signBit {
			return fmt.Errorf("%w: value %d does not fit a signed %d-bit field", ErrValueOutOfRange, value, obj.numBits)
		}
		raw = (value + signBit) ^ signBit
	} else if value < 0 || value >= 1<<obj.numBits {
		return fmt.Errorf("%w: value %d does not fit an unsigned %d-bit field", ErrValueOutOfRange, value, obj.numBits)
	}

	data, err := hw.ReadRegister(obj.address, obj.size)
	if err != nil {
		return err
	}
	var reg uint16
	for _, b := range data {
		reg = reg<<8 | uint16(b)
	}
	reg &^= obj.mask
	reg |= uint16(raw) << obj.shift()

	buf := make([]byte, obj.size)
	if obj.size == 2 {
		buf[0] = byte(reg >> 8)
		buf[1] = byte(reg)
	} else {
		buf[0] = byte(reg)
	}
	return hw.WriteRegister(obj.address, buf)
}

func usedBytesGeometry(usedBytes UsedBytes) (numBits, lowestBit int) {
	width := int(usedBytes)
	if width < 0 {
		width = -width
	}
	numBits = 16 - 8*width
	if usedBytes == UsedBytesMSB {
		lowestBit = 8
	}
	return numBits, lowestBit
}

// RWRegister constructs a read-write field covering the whole register or
// one of its bytes, selected by usedBytes.
func RWRegister(registerAddress uint8, usedBytes UsedBytes, signed bool, independentBytes bool) (*RegisterField, error) {
	numBits, lowestBit := usedBytesGeometry(usedBytes)
	return NewRegisterField(registerAddress, numBits, lowestBit, signed, independentBytes, false)
}

// RORegister is RWRegister with writes rejected.
func RORegister(registerAddress uint8, usedBytes UsedBytes, signed bool, independentBytes bool) (*RegisterField, error) {
	numBits, lowestBit := usedBytesGeometry(usedBytes)
	return NewRegisterField(registerAddress, numBits, lowestBit, signed, independentBytes, true)
}

// RWBit constructs a read-write single-bit field at the given bit position.
func RWBit(registerAddress uint8, bit int, independentBytes bool) (*RegisterField, error) {
	return NewRegisterField(registerAddress, 1, bit, false, independentBytes, false)
}

// ROBit is RWBit with writes rejected.
func ROBit(registerAddress uint8, bit int, independentBytes bool) (*RegisterField, error) {
	return NewRegisterField(registerAddress, 1, bit, false, independentBytes, true)
}
