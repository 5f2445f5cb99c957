package hal

// I2CHandler is the byte transport a register field transacts against.
// ReadRegister returns exactly length bytes, most significant byte first,
// and WriteRegister expects its data in the same order. Both report a
// failed bus transaction as an error, they never truncate or pad.
type I2CHandler interface {
	ReadRegister(register uint8, length int) ([]byte, error)
	WriteRegister(register uint8, data []byte) error
}
