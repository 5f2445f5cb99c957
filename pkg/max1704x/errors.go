package max1704x

import "errors"

var (
	// ErrChipNotFound is returned when the device at the probed address does
	// not identify itself as a MAX17048/MAX17049.
	ErrChipNotFound = errors.New("failed to find MAX1704x device")

	// ErrThresholdOutOfRange is returned by threshold setters when the
	// requested physical value is outside what the chip can represent. The
	// bus is never touched.
	ErrThresholdOutOfRange = errors.New("threshold out of range")
)
