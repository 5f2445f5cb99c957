package max1704x

import (
	"fmt"

	"github.com/mbalug7/go-max1704x/pkg/hal"
)

// cmdReset is the only documented CMD register value, a full chip reboot.
const cmdReset = 0x5400

// Module is a driver for the MAX17048/MAX17049 battery fuel gauge. All
// methods are direct blocking transactions against the handler; the driver
// keeps no cached register state.
type Module struct {
	hw hal.I2CHandler
}

// NewModule verifies that a MAX1704x answers on the handler, reboots it to
// a known state and clears the sleep controls.
func NewModule(hw hal.I2CHandler) (*Module, error) {
	obj := &Module{hw: hw}
	version, err := obj.ChipVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to read chip version: %w", err)
	}
	if version&0xFFF0 != 0x0010 {
		return nil, fmt.Errorf("%w: got version %#04x, check your wiring", ErrChipNotFound, version)
	}
	if err := obj.Reset(); err != nil {
		return nil, err
	}
	if err := obj.SetEnableSleep(false); err != nil {
		return nil, fmt.Errorf("failed to disable sleep mode: %w", err)
	}
	if err := obj.SetSleep(false); err != nil {
		return nil, fmt.Errorf("failed to wake chip from sleep: %w", err)
	}
	return obj, nil
}

// Reset reboots the chip. The MAX1704x NACKs the reset command while it
// restarts, so the CMD write failing is the expected outcome and a write
// that goes through means no reset happened.
func (obj *Module) Reset() error {
	if err := fieldCmd.Write(obj.hw, cmdReset); err == nil {
		return fmt.Errorf("reset did not succeed")
	}
	if err := obj.ClearResetIndicator(); err != nil {
		return fmt.Errorf("failed to clear reset indicator: %w", err)
	}
	return nil
}

// QuickStart restarts the open-circuit voltage and state of charge
// estimation from the instantaneous cell voltage.
func (obj *Module) QuickStart() error {
	return fieldQuickStart.Write(obj.hw, 1)
}

// CellVoltage returns the cell voltage in volts.
func (obj *Module) CellVoltage() (float64, error) {
	raw, err := fieldCellVoltage.Read(obj.hw)
	if err != nil {
		return 0, err
	}
	return float64(raw) * 78.125 / 1_000_000, nil
}

// CellPercent returns the state of charge as a percentage of full capacity.
func (obj *Module) CellPercent() (float64, error) {
	raw, err := fieldCellSOC.Read(obj.hw)
	if err != nil {
		return 0, err
	}
	return float64(raw) / 256.0, nil
}

// ChargeRate returns the charge (positive) or discharge (negative) rate in
// percent per hour.
func (obj *Module) ChargeRate() (float64, error) {
	raw, err := fieldChargeRate.Read(obj.hw)
	if err != nil {
		return 0, err
	}
	return float64(raw) * 0.208, nil
}

// ChipVersion returns the raw VERSION register.
func (obj *Module) ChipVersion() (int, error) {
	return fieldChipVersion.Read(obj.hw)
}

// ChipID returns the one-time-programmable chip id byte.
func (obj *Module) ChipID() (int, error) {
	return fieldChipID.Read(obj.hw)
}

// RComp returns the battery compensation byte.
func (obj *Module) RComp() (int, error) {
	return fieldRComp.Read(obj.hw)
}

// SetRComp tunes the compensation for different battery chemistries.
func (obj *Module) SetRComp(rcomp int) error {
	return fieldRComp.Write(obj.hw, rcomp)
}

// Hibernating reports whether the chip is currently in hibernation.
func (obj *Module) Hibernating() (bool, error) {
	return obj.readBool(fieldHibernating)
}

// EnableSleep reports whether sleep mode can be entered at all.
func (obj *Module) EnableSleep() (bool, error) {
	return obj.readBool(fieldEnableSleep)
}

// SetEnableSleep enables or disables the chip's sleep mode.
func (obj *Module) SetEnableSleep(enabled bool) error {
	return fieldEnableSleep.Write(obj.hw, boolToInt(enabled))
}

// Sleep reports whether the chip is forced into sleep mode.
func (obj *Module) Sleep() (bool, error) {
	return obj.readBool(fieldSleep)
}

// SetSleep forces the chip in or out of sleep mode. Only effective when
// sleep mode is enabled, see SetEnableSleep.
func (obj *Module) SetSleep(sleep bool) error {
	return fieldSleep.Write(obj.hw, boolToInt(sleep))
}

// ActivityThreshold returns the cell voltage change, in volts, that makes
// the chip leave hibernation.
func (obj *Module) ActivityThreshold() (float64, error) {
	raw, err := fieldActivityThreshold.Read(obj.hw)
	if err != nil {
		return 0, err
	}
	return float64(raw) * 0.00125, nil // 1.25 mV steps
}

// SetActivityThreshold configures the hibernation exit threshold,
// 0 to 0.31875 V.
func (obj *Module) SetActivityThreshold(volts float64) error {
	if volts < 0 || volts > 255*0.00125 {
		return fmt.Errorf("%w: activity voltage change must be between 0 and 0.31875 V", ErrThresholdOutOfRange)
	}
	return fieldActivityThreshold.Write(obj.hw, int(volts/0.00125))
}

// HibernationThreshold returns the charge rate, in percent per hour, below
// which the chip may enter hibernation.
func (obj *Module) HibernationThreshold() (float64, error) {
	raw, err := fieldHibernationThreshold.Read(obj.hw)
	if err != nil {
		return 0, err
	}
	return float64(raw) * 0.208, nil // 0.208 %/h steps
}

// SetHibernationThreshold configures the hibernation entry threshold,
// 0 to 53 percent per hour.
func (obj *Module) SetHibernationThreshold(percentPerHour float64) error {
	if percentPerHour < 0 || percentPerHour > 255*0.208 {
		return fmt.Errorf("%w: hibernation rate must be between 0 and 53 percent per hour", ErrThresholdOutOfRange)
	}
	return fieldHibernationThreshold.Write(obj.hw, int(percentPerHour/0.208))
}

// Hibernate forces the chip into hibernation by maxing out both
// thresholds. The previous threshold values are not restored by Wake.
func (obj *Module) Hibernate() error {
	if err := fieldHibernationThreshold.Write(obj.hw, 0xFF); err != nil {
		return err
	}
	return fieldActivityThreshold.Write(obj.hw, 0xFF)
}

// Wake forces the chip out of hibernation by zeroing both thresholds.
func (obj *Module) Wake() error {
	if err := fieldHibernationThreshold.Write(obj.hw, 0x00); err != nil {
		return err
	}
	return fieldActivityThreshold.Write(obj.hw, 0x00)
}

// ResetVoltage returns the threshold, in volts, at which the chip treats
// the battery as removed and reinserted.
func (obj *Module) ResetVoltage() (float64, error) {
	raw, err := fieldResetVoltage.Read(obj.hw)
	if err != nil {
		return 0, err
	}
	return float64(raw) * 0.04, nil // 40 mV steps
}

// SetResetVoltage configures the battery removal threshold, 0 to 5.08 V.
func (obj *Module) SetResetVoltage(volts float64) error {
	if volts < 0 || volts > 127*0.04 {
		return fmt.Errorf("%w: reset voltage must be between 0 and 5.08 V", ErrThresholdOutOfRange)
	}
	return fieldResetVoltage.Write(obj.hw, int(volts/0.04))
}

// ComparatorDisabled reports whether the VRESET comparator is disabled in
// hibernation. Disabling it saves roughly 0.5 uA.
func (obj *Module) ComparatorDisabled() (bool, error) {
	return obj.readBool(fieldComparatorDisabled)
}

// SetComparatorDisabled disables or enables the VRESET comparator during
// hibernation.
func (obj *Module) SetComparatorDisabled(disabled bool) error {
	return fieldComparatorDisabled.Write(obj.hw, boolToInt(disabled))
}

// ActiveAlert reports whether any alert condition is currently asserted.
func (obj *Module) ActiveAlert() (bool, error) {
	return obj.readBool(fieldAlertStatus)
}

// ClearAlert clears the global alert flag and deasserts the ALRT pin.
func (obj *Module) ClearAlert() error {
	return fieldAlertStatus.Write(obj.hw, 0)
}

// AlertReason returns the mask of currently active alert causes; check it
// against the AlertFlag constants.
func (obj *Module) AlertReason() (int, error) {
	raw, err := fieldStatus.Read(obj.hw)
	if err != nil {
		return 0, err
	}
	return raw & 0x3F, nil
}

// ResetIndicator reports whether the chip powered up or reset and still
// waits to be configured.
func (obj *Module) ResetIndicator() (bool, error) {
	return obj.readBool(fieldResetIndicator)
}

// ClearResetIndicator acknowledges a power-up or reset event.
func (obj *Module) ClearResetIndicator() error {
	return fieldResetIndicator.Write(obj.hw, 0)
}

// VoltageAlertMin returns the lower voltage alert threshold in volts.
func (obj *Module) VoltageAlertMin() (float64, error) {
	raw, err := fieldVoltageAlertMin.Read(obj.hw)
	if err != nil {
		return 0, err
	}
	return float64(raw) * 0.02, nil // 20 mV steps
}

// SetVoltageAlertMin configures the lower voltage alert threshold,
// 0 to 5.1 V.
func (obj *Module) SetVoltageAlertMin(volts float64) error {
	if volts < 0 || volts > 255*0.02 {
		return fmt.Errorf("%w: alert voltage must be between 0 and 5.1 V", ErrThresholdOutOfRange)
	}
	return fieldVoltageAlertMin.Write(obj.hw, int(volts/0.02))
}

// VoltageAlertMax returns the upper voltage alert threshold in volts.
func (obj *Module) VoltageAlertMax() (float64, error) {
	raw, err := fieldVoltageAlertMax.Read(obj.hw)
	if err != nil {
		return 0, err
	}
	return float64(raw) * 0.02, nil
}

// SetVoltageAlertMax configures the upper voltage alert threshold,
// 0 to 5.1 V.
func (obj *Module) SetVoltageAlertMax(volts float64) error {
	if volts < 0 || volts > 255*0.02 {
		return fmt.Errorf("%w: alert voltage must be between 0 and 5.1 V", ErrThresholdOutOfRange)
	}
	return fieldVoltageAlertMax.Write(obj.hw, int(volts/0.02))
}

// AlertVoltageHighFlag reports whether the cell voltage exceeded the upper
// alert threshold.
func (obj *Module) AlertVoltageHighFlag() (bool, error) {
	return obj.readBool(fieldVoltageHighFlag)
}

// ClearAlertVoltageHighFlag clears the voltage high flag.
func (obj *Module) ClearAlertVoltageHighFlag() error {
	return fieldVoltageHighFlag.Write(obj.hw, 0)
}

// AlertVoltageLowFlag reports whether the cell voltage fell below the lower
// alert threshold.
func (obj *Module) AlertVoltageLowFlag() (bool, error) {
	return obj.readBool(fieldVoltageLowFlag)
}

// ClearAlertVoltageLowFlag clears the voltage low flag.
func (obj *Module) ClearAlertVoltageLowFlag() error {
	return fieldVoltageLowFlag.Write(obj.hw, 0)
}

// VoltageResetAlert reports whether the cell voltage dropped below and then
// rose above the reset voltage threshold.
func (obj *Module) VoltageResetAlert() (bool, error) {
	return obj.readBool(fieldVoltageResetFlag)
}

// ClearVoltageResetAlert clears the voltage reset flag.
func (obj *Module) ClearVoltageResetAlert() error {
	return fieldVoltageResetFlag.Write(obj.hw, 0)
}

// EnableVoltageResetAlert reports whether voltage reset alerts are enabled.
func (obj *Module) EnableVoltageResetAlert() (bool, error) {
	return obj.readBool(fieldVoltageResetAlertEnable)
}

// SetEnableVoltageResetAlert enables or disables voltage reset alerts.
func (obj *Module) SetEnableVoltageResetAlert(enabled bool) error {
	return fieldVoltageResetAlertEnable.Write(obj.hw, boolToInt(enabled))
}

// AlertSOCChangeEnable reports whether one-percent state of charge changes
// raise an alert.
func (obj *Module) AlertSOCChangeEnable() (bool, error) {
	return obj.readBool(fieldAlertSOCChangeEnable)
}

// SetAlertSOCChangeEnable enables or disables state of charge change
// alerts.
func (obj *Module) SetAlertSOCChangeEnable(enabled bool) error {
	return fieldAlertSOCChangeEnable.Write(obj.hw, boolToInt(enabled))
}

// AlertSOCChangeFlag reports whether the state of charge changed by at
// least one percent since the flag was last cleared.
func (obj *Module) AlertSOCChangeFlag() (bool, error) {
	return obj.readBool(fieldSOCChangeFlag)
}

// ClearAlertSOCChangeFlag clears the state of charge change flag.
func (obj *Module) ClearAlertSOCChangeFlag() error {
	return fieldSOCChangeFlag.Write(obj.hw, 0)
}

// AlertSOCLowThreshold returns the state of charge percentage below which
// the low charge alert fires.
func (obj *Module) AlertSOCLowThreshold() (int, error) {
	raw, err := fieldEmptyAlertThreshold.Read(obj.hw)
	if err != nil {
		return 0, err
	}
	// the chip stores 32 - threshold in the 5-bit ATHD field
	return 32 - raw, nil
}

// SetAlertSOCLowThreshold configures the low state of charge alert
// threshold, 1 to 32 percent.
func (obj *Module) SetAlertSOCLowThreshold(percent int) error {
	if percent < 1 || percent > 32 {
		return fmt.Errorf("%w: SOC alert threshold must be between 1 and 32 percent", ErrThresholdOutOfRange)
	}
	return fieldEmptyAlertThreshold.Write(obj.hw, 32-percent)
}

// AlertSOCLowFlag reports whether the state of charge crossed the low
// charge threshold.
func (obj *Module) AlertSOCLowFlag() (bool, error) {
	return obj.readBool(fieldSOCLowFlag)
}

// ClearAlertSOCLowFlag clears the low state of charge flag.
func (obj *Module) ClearAlertSOCLowFlag() error {
	return fieldSOCLowFlag.Write(obj.hw, 0)
}

func (obj *Module) readBool(field *hal.RegisterField) (bool, error) {
	raw, err := field.Read(obj.hw)
	if err != nil {
		return false, err
	}
	return raw != 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
