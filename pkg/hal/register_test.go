package hal

import (
	"errors"
	"fmt"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeI2C simulates device memory with a byte-addressed map, the way the
// real chip exposes its register file.
type fakeI2C struct {
	memory     map[uint8]byte
	readCalls  int
	writeCalls int
	readErr    error
	writeErr   error
}

func newFakeI2C() *fakeI2C {
	return &fakeI2C{
		memory: map[uint8]byte{
			0x0A: 0x80, 0x0B: 0x30,
			0x0C: 0x97, 0x0D: 0x1C,
			0x14: 0x00, 0x15: 0xFF,
		},
	}
}

func (obj *fakeI2C) ReadRegister(register uint8, length int) ([]byte, error) {
	obj.readCalls++
	if obj.readErr != nil {
		return nil, obj.readErr
	}
	data := make([]byte, length)
	for i := range data {
		b, ok := obj.memory[register+uint8(i)]
		if !ok {
			return nil, fmt.Errorf("no memory at register %#02x", register+uint8(i))
		}
		data[i] = b
	}
	return data, nil
}

func (obj *fakeI2C) WriteRegister(register uint8, data []byte) error {
	obj.writeCalls++
	if obj.writeErr != nil {
		return obj.writeErr
	}
	for i, b := range data {
		obj.memory[register+uint8(i)] = b
	}
	return nil
}

func (obj *fakeI2C) snapshot() map[uint8]byte {
	cp := make(map[uint8]byte, len(obj.memory))
	for k, v := range obj.memory {
		cp[k] = v
	}
	return cp
}

func mustNewField(t *testing.T) func(field *RegisterField, err error) *RegisterField {
	return func(field *RegisterField, err error) *RegisterField {
		t.Helper()
		require.NoError(t, err)
		return field
	}
}

func TestRegisterFieldConstruction_MaskWidth(t *testing.T) {
	for _, independent := range []bool{false, true} {
		for numBits := 1; numBits <= 16; numBits++ {
			for lowestBit := 0; lowestBit+numBits <= 16; lowestBit++ {
				field, err := NewRegisterField(0x0A, numBits, lowestBit, false, independent, false)
				require.NoError(t, err, "numBits=%d lowestBit=%d independent=%v", numBits, lowestBit, independent)
				assert.Equal(t, numBits, bits.OnesCount16(field.mask),
					"numBits=%d lowestBit=%d independent=%v", numBits, lowestBit, independent)
			}
		}
	}
}

func TestRegisterFieldConstruction_Definition(t *testing.T) {
	tests := []struct {
		name    string
		make    func() (*RegisterField, error)
		wantErr bool
	}{
		{"odd address writable", func() (*RegisterField, error) { return NewRegisterField(0x0B, 2, 0, false, false, false) }, true},
		{"odd address writable register", func() (*RegisterField, error) { return RWRegister(0x0D, UsedBytesBoth, true, false) }, true},
		{"odd address writable bit", func() (*RegisterField, error) { return RWBit(0x0F, 3, false) }, true},
		{"odd address read-only", func() (*RegisterField, error) { return RORegister(0x0D, UsedBytesLSB, false, false) }, false},
		{"odd address read-only bit", func() (*RegisterField, error) { return ROBit(0x0B, 11, false) }, false},
		{"zero bits", func() (*RegisterField, error) { return NewRegisterField(0x0A, 0, 0, false, false, false) }, true},
		{"too many bits", func() (*RegisterField, error) { return NewRegisterField(0x0A, 17, 0, false, false, false) }, true},
		{"negative lowest bit", func() (*RegisterField, error) { return NewRegisterField(0x0A, 1, -1, false, false, false) }, true},
		{"lowest bit past register", func() (*RegisterField, error) { return NewRegisterField(0x0A, 2, 16, false, false, false) }, true},
		{"span past register", func() (*RegisterField, error) { return NewRegisterField(0x0A, 8, 10, false, false, false) }, true},
		{"invalid used bytes low", func() (*RegisterField, error) { return RWRegister(0x0A, -2, false, false) }, true},
		{"invalid used bytes high", func() (*RegisterField, error) { return RWRegister(0x0A, 2, false, false) }, true},
		{"invalid bit low", func() (*RegisterField, error) { return RWBit(0x0A, -1, false) }, true},
		{"invalid bit high", func() (*RegisterField, error) { return RWBit(0x0A, 16, false) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.make()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrFieldDefinition)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRegisterFieldWrite_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		field func(t *testing.T) *RegisterField
		write int
		want  map[uint8]byte
	}{
		{
			"full register",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesBoth, false, false)) },
			0xA900, map[uint8]byte{0x0A: 0xA9, 0x0B: 0x00},
		},
		{
			"full register max",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesBoth, false, false)) },
			0xFFFF, map[uint8]byte{0x0A: 0xFF, 0x0B: 0xFF},
		},
		{
			"full register signed negative",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesBoth, true, false)) },
			-22272, map[uint8]byte{0x0A: 0xA9, 0x0B: 0x00},
		},
		{
			"full register signed min",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesBoth, true, false)) },
			-32768, map[uint8]byte{0x0A: 0x80, 0x0B: 0x00},
		},
		{
			"high byte keeps low byte",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesMSB, false, false)) },
			0x55, map[uint8]byte{0x0A: 0x55, 0x0B: 0x30},
		},
		{
			"high byte signed",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesMSB, true, false)) },
			-103, map[uint8]byte{0x0A: 0x99, 0x0B: 0x30},
		},
		{
			"low byte keeps high byte",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesLSB, false, false)) },
			0x99, map[uint8]byte{0x0A: 0x80, 0x0B: 0x99},
		},
		{
			"low byte signed",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesLSB, true, false)) },
			-16, map[uint8]byte{0x0A: 0x80, 0x0B: 0xF0},
		},
		{
			"bit in low byte",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWBit(0x0A, 6, false)) },
			1, map[uint8]byte{0x0A: 0x80, 0x0B: 0x70},
		},
		{
			"bit in high byte",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWBit(0x0A, 14, false)) },
			1, map[uint8]byte{0x0A: 0xC0, 0x0B: 0x30},
		},
		{
			"group in high byte",
			func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x14, 5, 11, false, false, false)) },
			0x0B, map[uint8]byte{0x14: 0x58, 0x15: 0xFF},
		},
		{
			"group in high byte signed",
			func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x14, 2, 14, true, false, false)) },
			-1, map[uint8]byte{0x14: 0xC0, 0x15: 0xFF},
		},
		{
			"group in low byte",
			func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x14, 6, 0, false, false, false)) },
			0x2E, map[uint8]byte{0x14: 0x00, 0x15: 0xEE},
		},
		{
			"group in low byte signed",
			func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x14, 4, 3, true, false, false)) },
			-7, map[uint8]byte{0x14: 0x00, 0x15: 0xCF},
		},
		{
			"group across bytes",
			func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x14, 6, 6, false, false, false)) },
			0x2A, map[uint8]byte{0x14: 0x0A, 0x15: 0xBF},
		},
		{
			"group across bytes wide",
			func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x14, 10, 0, false, false, false)) },
			0x3C5, map[uint8]byte{0x14: 0x03, 0x15: 0xC5},
		},
		{
			"group across bytes signed",
			func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x14, 9, 7, true, false, false)) },
			-171, map[uint8]byte{0x14: 0xAA, 0x15: 0xFF},
		},
		{
			"independent high byte",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesMSB, false, true)) },
			0xFF, map[uint8]byte{0x0A: 0xFF, 0x0B: 0x30},
		},
		{
			"independent low byte",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesLSB, false, true)) },
			0x00, map[uint8]byte{0x0A: 0x80, 0x0B: 0x00},
		},
		{
			"independent bit 0",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWBit(0x0A, 0, true)) },
			1, map[uint8]byte{0x0A: 0x80, 0x0B: 0x31},
		},
		{
			"independent bit 15",
			func(t *testing.T) *RegisterField { return mustNewField(t)(RWBit(0x0A, 15, true)) },
			0, map[uint8]byte{0x0A: 0x00, 0x0B: 0x30},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hw := newFakeI2C()
			field := tt.field(t)

			require.NoError(t, field.Write(hw, tt.write))
			for addr, want := range tt.want {
				assert.Equal(t, want, hw.memory[addr], "register %#02x", addr)
			}

			got, err := field.Read(hw)
			require.NoError(t, err)
			assert.Equal(t, tt.write, got)
		})
	}
}

func TestRegisterFieldWrite_ReadOnly(t *testing.T) {
	tests := []struct {
		name  string
		field func(t *testing.T) *RegisterField
		write int
	}{
		{"whole register", func(t *testing.T) *RegisterField { return mustNewField(t)(RORegister(0x0A, UsedBytesBoth, false, false)) }, 0x00},
		{"low byte signed", func(t *testing.T) *RegisterField { return mustNewField(t)(RORegister(0x0A, UsedBytesLSB, true, false)) }, 0x32},
		{"single bit", func(t *testing.T) *RegisterField { return mustNewField(t)(ROBit(0x0A, 12, false)) }, 1},
		{"bit group", func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x14, 3, 11, false, false, true)) }, 0x07},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hw := newFakeI2C()
			before := hw.snapshot()

			err := tt.field(t).Write(hw, tt.write)
			require.ErrorIs(t, err, ErrFieldReadOnly)
			assert.Zero(t, hw.readCalls)
			assert.Zero(t, hw.writeCalls)
			assert.Equal(t, before, hw.memory)
		})
	}
}

func TestRegisterFieldWrite_OutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		field func(t *testing.T) *RegisterField
		write int
	}{
		{"unsigned 16-bit overflow", func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesBoth, false, false)) }, 0x10000},
		{"unsigned 8-bit overflow", func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesLSB, false, false)) }, 0x1FF},
		{"unsigned bit overflow", func(t *testing.T) *RegisterField { return mustNewField(t)(RWBit(0x0A, 4, false)) }, 2},
		{"unsigned negative", func(t *testing.T) *RegisterField { return mustNewField(t)(RWBit(0x0A, 15, false)) }, -3},
		{"unsigned 9-bit overflow", func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x0A, 9, 0, false, false, false)) }, 0x400},
		{"unsigned 4-bit overflow", func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x0A, 4, 1, false, false, false)) }, 0x10},
		{"signed 16-bit overflow", func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesBoth, true, false)) }, 0x8000},
		{"signed 16-bit underflow", func(t *testing.T) *RegisterField { return mustNewField(t)(RWRegister(0x0A, UsedBytesBoth, true, false)) }, -0x8001},
		{"signed 4-bit overflow", func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x0A, 4, 1, true, false, false)) }, 0x08},
		{"signed 4-bit underflow", func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x0A, 4, 1, true, false, false)) }, -0x09},
		{"signed 9-bit overflow", func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x0A, 9, 0, true, false, false)) }, 0x100},
		{"signed 9-bit underflow", func(t *testing.T) *RegisterField { return mustNewField(t)(NewRegisterField(0x0A, 9, 0, true, false, false)) }, -0x101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hw := newFakeI2C()
			before := hw.snapshot()

			err := tt.field(t).Write(hw, tt.write)
			require.ErrorIs(t, err, ErrValueOutOfRange)
			assert.Zero(t, hw.readCalls, "range check must run before any bus access")
			assert.Zero(t, hw.writeCalls)
			assert.Equal(t, before, hw.memory)
		})
	}
}

// A field that fits a single byte must decode identically whether it is
// transacted as one byte or as the full register.
func TestRegisterFieldRead_SingleByteEquivalence(t *testing.T) {
	geometries := []struct{ numBits, lowestBit int }{
		{1, 7}, {4, 3}, {8, 0}, {2, 6}, // low byte
		{8, 8}, {3, 13}, {1, 15}, {5, 8}, // high byte
	}
	hw := newFakeI2C()
	hw.memory[0x0A] = 0x5A
	hw.memory[0x0B] = 0xC3

	for _, g := range geometries {
		optimized := mustNewField(t)(NewRegisterField(0x0A, g.numBits, g.lowestBit, false, true, false))
		full := mustNewField(t)(NewRegisterField(0x0A, g.numBits, g.lowestBit, false, false, false))

		gotOpt, err := optimized.Read(hw)
		require.NoError(t, err)
		gotFull, err := full.Read(hw)
		require.NoError(t, err)
		assert.Equal(t, gotFull, gotOpt, "numBits=%d lowestBit=%d", g.numBits, g.lowestBit)
	}
}

func TestRegisterFieldSigned_RoundTrip(t *testing.T) {
	for _, numBits := range []int{1, 3, 4, 7, 8, 9, 12, 16} {
		field := mustNewField(t)(NewRegisterField(0x14, numBits, 0, true, false, false))
		hw := newFakeI2C()

		limit := 1 << (numBits - 1)
		for value := -limit; value < limit; value++ {
			require.NoError(t, field.Write(hw, value))
			got, err := field.Read(hw)
			require.NoError(t, err)
			require.Equal(t, value, got, "numBits=%d", numBits)
		}
	}
}

// A one-bit field on the high byte of 0x0A containing [0x80, 0x30],
// transacted as a single byte: decodes to 1, writing 0 clears only the
// byte that holds it.
func TestRegisterFieldWrite_SingleByteHighBit(t *testing.T) {
	hw := newFakeI2C()
	field := mustNewField(t)(NewRegisterField(0x0A, 1, 15, false, true, false))

	got, err := field.Read(hw)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	require.NoError(t, field.Write(hw, 0))
	assert.Equal(t, byte(0x00), hw.memory[0x0A])
	assert.Equal(t, byte(0x30), hw.memory[0x0B])

	got, err = field.Read(hw)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestRegisterField_TransportErrorsPassThrough(t *testing.T) {
	busErr := errors.New("remote I/O error")
	field := mustNewField(t)(RWRegister(0x0A, UsedBytesBoth, false, false))

	hw := newFakeI2C()
	hw.readErr = busErr
	_, err := field.Read(hw)
	require.ErrorIs(t, err, busErr)
	err = field.Write(hw, 0x1234)
	require.ErrorIs(t, err, busErr)

	hw = newFakeI2C()
	hw.writeErr = busErr
	err = field.Write(hw, 0x1234)
	require.ErrorIs(t, err, busErr)
}
