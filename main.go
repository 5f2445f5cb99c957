package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbalug7/go-max1704x/pkg/hal"
	"github.com/mbalug7/go-max1704x/pkg/max1704x"
)

func main() {
	// open the I2C bus and probe the gauge on its fixed address
	// "" -> first available bus, usually /dev/i2c-1 on a RPi
	hw, err := hal.NewCommonI2CHandler("", max1704x.I2CAddrDefault)
	if err != nil {
		log.Fatal(err)
	}
	hw.SetLogger(zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger())

	// create gauge handler, this resets the chip and clears the sleep controls
	gauge, err := max1704x.NewModule(hw)
	if err != nil {
		log.Fatal(err)
	}

	// alert if the cell drops below 3.3 V or 15 percent charge
	if err := gauge.SetVoltageAlertMin(3.3); err != nil {
		log.Fatal(err)
	}
	if err := gauge.SetAlertSOCLowThreshold(15); err != nil {
		log.Fatal(err)
	}

	// ALRT -> GPIO 17
	// gpiochip0 -> RPi4 GPIO chip name, 5.5+ Linux kernel needed
	monitor, err := hal.NewAlertPinMonitor("gpiochip0", 17, func() {
		reason, err := gauge.AlertReason()
		if err != nil {
			log.Printf("failed to read alert reason: %s", err)
			return
		}
		log.Printf("ALERT, reason mask %#02x", reason)
		if err := gauge.ClearAlert(); err != nil {
			log.Printf("failed to clear alert: %s", err)
		}
	})
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		for {
			voltage, err := gauge.CellVoltage()
			if err != nil {
				log.Printf("failed to read cell voltage: %s", err)
				continue
			}
			percent, err := gauge.CellPercent()
			if err != nil {
				log.Printf("failed to read state of charge: %s", err)
				continue
			}
			rate, err := gauge.ChargeRate()
			if err != nil {
				log.Printf("failed to read charge rate: %s", err)
				continue
			}
			log.Printf("battery: %.4f V, %.2f %%, %.3f %%/h", voltage, percent, rate)
			time.Sleep(10 * time.Second)
		}
	}()

	// wait for keyboard signal interrupt
	signalInterruptChan := make(chan os.Signal, 1)
	signal.Notify(signalInterruptChan, os.Interrupt, syscall.SIGTERM)
	<-signalInterruptChan
	if err := monitor.Close(); err != nil {
		log.Printf("failed to close alert monitor: %s", err)
	}
	if err := hw.Close(); err != nil {
		log.Printf("failed to close communication with the gauge: %s", err)
	}
}
