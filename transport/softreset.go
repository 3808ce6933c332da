package transport

import (
	"context"
	"fmt"
	"time"
)

// Chip registers touched by the soft reset sequence.
const (
	RegAONBase        uint32 = 0x10058094
	RegAONLatch       uint32 = 0x1005807C
	RegAONLatchMask   uint32 = 1 << 0
	RegMACBoot        uint32 = 0x10054024
	RegMACBootValue   uint32 = 0x00100000
	RegClockCtrl      uint32 = 0x1005406C
	RegClockCtrlValue uint32 = 0xEF
	RegHostInterrupt  uint32 = 0x02000000
	RegHostIntValue   uint32 = 0x1
)

const (
	// RegAONCount is the number of consecutive AON words cleared
	RegAONCount = 2

	// AONLatchDelay separates the latch toggles
	AONLatchDelay = 5 * time.Millisecond
)

// SoftResetStep names a stage of the soft reset sequence.
type SoftResetStep string

const (
	StepClearAON      SoftResetStep = "clear aon"
	StepReadLatch     SoftResetStep = "read aon latch"
	StepLatchClear    SoftResetStep = "clear aon latch"
	StepLatchSet      SoftResetStep = "set aon latch"
	StepLatchRelease  SoftResetStep = "release aon latch"
	StepMACBoot       SoftResetStep = "write mac boot"
	StepClockCtrl     SoftResetStep = "write clock control"
	StepHostInterrupt SoftResetStep = "write host interrupt"
)

// SoftResetError reports the step at which the sequence aborted.
type SoftResetError struct {
	Step    SoftResetStep
	Address uint32
	Err     error
}

func (e *SoftResetError) Error() string {
	return fmt.Sprintf("soft reset: %s (0x%08X): %v", e.Step, e.Address, e.Err)
}

func (e *SoftResetError) Unwrap() error {
	return e.Err
}

// SoftReset reboots the chip through register writes after a reset. It is
// only meaningful on transports that bypass the driver.
//
// Sequence:
//  1. zero the AON registers to drop latched sleeps
//  2. read the AON latch and drive bit 0 clear, set, clear with
//     AONLatchDelay between writes
//  3. write the MAC boot, clock control and host interrupt registers
//
// The first register error aborts the sequence.
type SoftReset struct {
	Regs RegisterAccess

	// Sleep waits between latch toggles; nil uses a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run executes the sequence.
func (s *SoftReset) Run(ctx context.Context) error {
	write := func(step SoftResetStep, addr, value uint32) error {
		if err := s.Regs.WriteRegister(ctx, addr, value); err != nil {
			return &SoftResetError{Step: step, Address: addr, Err: err}
		}
		return nil
	}
	pause := func(step SoftResetStep) error {
		if err := s.sleep(ctx, AONLatchDelay); err != nil {
			return &SoftResetError{Step: step, Address: RegAONLatch, Err: err}
		}
		return nil
	}

	addr := RegAONBase
	for i := 0; i < RegAONCount; i, addr = i+1, addr+4 {
		if err := write(StepClearAON, addr, 0); err != nil {
			return err
		}
	}

	latch, err := s.Regs.ReadRegister(ctx, RegAONLatch)
	if err != nil {
		return &SoftResetError{Step: StepReadLatch, Address: RegAONLatch, Err: err}
	}

	toggles := []struct {
		step  SoftResetStep
		value uint32
	}{
		{StepLatchClear, latch &^ RegAONLatchMask},
		{StepLatchSet, latch | RegAONLatchMask},
		{StepLatchRelease, latch &^ RegAONLatchMask},
	}
	for _, tg := range toggles {
		if err := write(tg.step, RegAONLatch, tg.value); err != nil {
			return err
		}
		if err := pause(tg.step); err != nil {
			return err
		}
	}

	if err := write(StepMACBoot, RegMACBoot, RegMACBootValue); err != nil {
		return err
	}
	if err := write(StepClockCtrl, RegClockCtrl, RegClockCtrlValue); err != nil {
		return err
	}
	return write(StepHostInterrupt, RegHostInterrupt, RegHostIntValue)
}

func (s *SoftReset) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
