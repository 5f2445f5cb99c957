package max1704x

import "github.com/mbalug7/go-max1704x/pkg/hal"

// I2CAddrDefault is the fixed 7-bit bus address of the MAX17048/MAX17049.
const I2CAddrDefault uint16 = 0x36

const (
	regVCell    uint8 = 0x02 // cell voltage, RO
	regSOC      uint8 = 0x04 // state of charge, RO
	regMode     uint8 = 0x06 // quick-start, sleep enable, hibernation status
	regVersion  uint8 = 0x08 // chip version, RO
	regHibrt    uint8 = 0x0A // hibernation thresholds, default 0x8030
	regConfig   uint8 = 0x0C // rcomp, sleep, alert config, default 0x971C
	regVAlert   uint8 = 0x14 // voltage alert window, default 0x00FF
	regCRate    uint8 = 0x16 // charge rate, RO, signed
	regVResetID uint8 = 0x18 // reset voltage, comparator disable, chip id
	regStatus   uint8 = 0x1A // alert flags, default 0x01__
	regCmd      uint8 = 0xFE // command register, default 0xFFFF
)

// Alert cause flags as reported by AlertReason. Multiple flags may be set
// at the same time.
const (
	AlertFlagSOCChange      = 0x20
	AlertFlagSOCLow         = 0x10
	AlertFlagVoltageReset   = 0x08
	AlertFlagVoltageLow     = 0x04
	AlertFlagVoltageHigh    = 0x02
	AlertFlagResetIndicator = 0x01
)

// mustField keeps the field table below declarative; the geometries are
// constants of the chip, a constructor error here is a bug in this file.
func mustField(field *hal.RegisterField, err error) *hal.RegisterField {
	if err != nil {
		panic(err)
	}
	return field
}

var (
	// [0x02] VCELL
	fieldCellVoltage = mustField(hal.RORegister(regVCell, hal.UsedBytesBoth, false, false))
	// [0x04] SOC
	fieldCellSOC = mustField(hal.RORegister(regSOC, hal.UsedBytesBoth, false, false))
	// [0x06] MODE
	fieldHibernating = mustField(hal.ROBit(regMode, 4, false))
	fieldEnableSleep = mustField(hal.RWBit(regMode, 5, false))
	fieldQuickStart  = mustField(hal.RWBit(regMode, 6, false))
	// [0x08] VERSION
	fieldChipVersion = mustField(hal.RORegister(regVersion, hal.UsedBytesBoth, false, false))
	// [0x0A] HIBRT
	fieldActivityThreshold    = mustField(hal.RWRegister(regHibrt, hal.UsedBytesLSB, false, true))
	fieldHibernationThreshold = mustField(hal.RWRegister(regHibrt, hal.UsedBytesMSB, false, true))
	// [0x0C] CONFIG
	fieldRComp                = mustField(hal.RWRegister(regConfig, hal.UsedBytesMSB, false, false))
	fieldSleep                = mustField(hal.RWBit(regConfig, 7, false))
	fieldAlertSOCChangeEnable = mustField(hal.RWBit(regConfig, 6, false))
	fieldAlertStatus          = mustField(hal.RWBit(regConfig, 5, false))
	fieldEmptyAlertThreshold  = mustField(hal.NewRegisterField(regConfig, 5, 0, false, false, false))
	// [0x14] VALRT
	fieldVoltageAlertMin = mustField(hal.RWRegister(regVAlert, hal.UsedBytesMSB, false, true))
	fieldVoltageAlertMax = mustField(hal.RWRegister(regVAlert, hal.UsedBytesLSB, false, true))
	// [0x16] CRATE
	fieldChargeRate = mustField(hal.RORegister(regCRate, hal.UsedBytesBoth, true, false))
	// [0x18] VRESET/ID
	fieldResetVoltage       = mustField(hal.NewRegisterField(regVResetID, 7, 9, false, true, false))
	fieldComparatorDisabled = mustField(hal.RWBit(regVResetID, 8, true))
	fieldChipID             = mustField(hal.RORegister(regVResetID, hal.UsedBytesLSB, false, true))
	// [0x1A] STATUS
	fieldStatus                  = mustField(hal.RORegister(regStatus, hal.UsedBytesMSB, false, true))
	fieldResetIndicator          = mustField(hal.RWBit(regStatus, 8, true))
	fieldVoltageHighFlag         = mustField(hal.RWBit(regStatus, 9, true))
	fieldVoltageLowFlag          = mustField(hal.RWBit(regStatus, 10, true))
	fieldVoltageResetFlag        = mustField(hal.RWBit(regStatus, 11, true))
	fieldSOCLowFlag              = mustField(hal.RWBit(regStatus, 12, true))
	fieldSOCChangeFlag           = mustField(hal.RWBit(regStatus, 13, true))
	fieldVoltageResetAlertEnable = mustField(hal.RWBit(regStatus, 14, true))
	// [0xFE] CMD
	fieldCmd = mustField(hal.RWRegister(regCmd, hal.UsedBytesBoth, false, false))
)
