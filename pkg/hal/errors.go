package hal

import "errors"

var (
	// ErrFieldDefinition is returned when a register field is constructed
	// with a geometry that can not exist inside a 16-bit register.
	ErrFieldDefinition = errors.New("invalid register field definition")

	// ErrFieldReadOnly is returned when a write is attempted on a field
	// that was declared read-only.
	ErrFieldReadOnly = errors.New("cannot write to read-only register field")

	// ErrValueOutOfRange is returned when a value does not fit the width
	// and signedness of the target field. The bus is never touched.
	ErrValueOutOfRange = errors.New("value out of range for register field")

	// ErrInvalidLength is returned for transactions that are not 1 or 2
	// bytes long. Registers are 16-bit, there is nothing else to transact.
	ErrInvalidLength = errors.New("transaction length must be 1 or 2 bytes")
)
