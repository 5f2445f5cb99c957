package hal

import (
	"fmt"
	"sync"
	"time"

	"github.com/mazen160/go-random"
	"github.com/rs/zerolog"
	"github.com/warthog618/gpiod"
)

// AlertCb is called from the GPIO event handler every time the alert pin is
// asserted. Keep it short, it blocks further pin events.
type AlertCb func()

// AlertPinMonitor watches an active-low alert pin (the ALRT output of the
// MAX1704x) and turns falling edges into callback invocations and wakeups
// for blocked WaitForAlert callers.
type AlertPinMonitor struct {
	line      *gpiod.Line
	muWaiters sync.Mutex            // map protection mutex
	waiters   map[string]chan error // holds channels that wait for a falling ALRT edge
	cb        AlertCb
	log       zerolog.Logger
}

// NewAlertPinMonitor requests the alert GPIO line with a falling edge event
// handler. cb may be nil if only WaitForAlert is used.
func NewAlertPinMonitor(gpioChip string, alertPin int, cb AlertCb) (*AlertPinMonitor, error) {
	obj := &AlertPinMonitor{
		waiters: make(map[string]chan error),
		cb:      cb,
		log:     zerolog.Nop(),
	}
	c, err := gpiod.NewChip(gpioChip, gpiod.WithConsumer("max1704x"))
	if err != nil {
		return nil, fmt.Errorf("failed to create GPIO chip: %w", err)
	}
	obj.line, err = c.RequestLine(alertPin, gpiod.WithEventHandler(obj.onAlertPinFallEvent), gpiod.WithFallingEdge)
	if err != nil {
		return nil, fmt.Errorf("failed to request ALRT GPIO line: %w", err)
	}
	return obj, nil
}

// SetLogger enables event logging on the monitor.
func (obj *AlertPinMonitor) SetLogger(logger zerolog.Logger) {
	obj.log = logger
}

func (obj *AlertPinMonitor) onAlertPinFallEvent(evt gpiod.LineEvent) {
	obj.log.Debug().Dur("offset", time.Duration(evt.Timestamp)).Msg("ALRT pin asserted")
	obj.notifyWaiters()
	if obj.cb != nil {
		obj.cb()
	}
}

func (obj *AlertPinMonitor) notifyWaiters() {
	obj.muWaiters.Lock()
	defer obj.muWaiters.Unlock()
	for id, ch := range obj.waiters {
		ch <- nil
		close(ch)
		delete(obj.waiters, id)
	}
}

// WaitForAlert blocks until the alert pin is asserted or the timeout
// expires. If the pin is already low the call returns immediately.
func (obj *AlertPinMonitor) WaitForAlert(timeout time.Duration) error {
	val, err := obj.line.Value()
	if err != nil {
		return fmt.Errorf("failed to check ALRT pin input state: %w", err)
	}
	// ALRT is active low
	if val == 0 {
		return nil
	}

	// buffered so a notify racing with our timeout never blocks the event handler
	ch := make(chan error, 1)
	id, err := random.String(16)
	if err != nil {
		return fmt.Errorf("failed to generate random id: %w", err)
	}
	obj.muWaiters.Lock()
	obj.waiters[id] = ch
	obj.muWaiters.Unlock()

	select {
	case <-time.After(timeout):
		obj.muWaiters.Lock()
		delete(obj.waiters, id)
		obj.muWaiters.Unlock()
		return fmt.Errorf("waiting for alert timeouted after %s", timeout)
	case <-ch:
		return nil
	}
}

// Close releases the GPIO line.
func (obj *AlertPinMonitor) Close() error {
	err := obj.line.Close()
	if err != nil {
		return fmt.Errorf("failed to close ALRT line: %w", err)
	}
	return nil
}
