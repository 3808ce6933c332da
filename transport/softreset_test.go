package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type regOp struct {
	write bool
	addr  uint32
	value uint32
}

// fakeRegisters records register traffic and fails on a chosen operation.
type fakeRegisters struct {
	values map[uint32]uint32
	ops    []regOp
	failAt int
}

func newFakeRegisters() *fakeRegisters {
	return &fakeRegisters{values: make(map[uint32]uint32), failAt: -1}
}

func (f *fakeRegisters) ReadRegister(ctx context.Context, addr uint32) (uint32, error) {
	if len(f.ops) == f.failAt {
		return 0, errors.New("bus fault")
	}
	f.ops = append(f.ops, regOp{addr: addr, value: f.values[addr]})
	return f.values[addr], nil
}

func (f *fakeRegisters) WriteRegister(ctx context.Context, addr, value uint32) error {
	if len(f.ops) == f.failAt {
		return errors.New("bus fault")
	}
	f.ops = append(f.ops, regOp{write: true, addr: addr, value: value})
	f.values[addr] = value
	return nil
}

func TestSoftResetSequence(t *testing.T) {
	regs := newFakeRegisters()
	regs.values[RegAONLatch] = 0xA0
	regs.values[RegAONBase] = 0x55

	var delays []time.Duration
	sr := &SoftReset{
		Regs: regs,
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	if err := sr.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	expected := []regOp{
		{write: true, addr: 0x10058094, value: 0},
		{write: true, addr: 0x10058098, value: 0},
		{addr: 0x1005807C, value: 0xA0},
		{write: true, addr: 0x1005807C, value: 0xA0},
		{write: true, addr: 0x1005807C, value: 0xA1},
		{write: true, addr: 0x1005807C, value: 0xA0},
		{write: true, addr: 0x10054024, value: 0x00100000},
		{write: true, addr: 0x1005406C, value: 0xEF},
		{write: true, addr: 0x02000000, value: 1},
	}
	if len(regs.ops) != len(expected) {
		t.Fatalf("got %d register ops, want %d: %+v", len(regs.ops), len(expected), regs.ops)
	}
	for i := range expected {
		if regs.ops[i] != expected[i] {
			t.Errorf("op %d = %+v, want %+v", i, regs.ops[i], expected[i])
		}
	}

	if len(delays) != 3 {
		t.Errorf("got %d delays, want 3", len(delays))
	}
	for _, d := range delays {
		if d != AONLatchDelay {
			t.Errorf("delay = %v, want %v", d, AONLatchDelay)
		}
	}
}

func TestSoftResetAbortsOnFirstError(t *testing.T) {
	steps := []SoftResetStep{
		StepClearAON, StepClearAON, StepReadLatch,
		StepLatchClear, StepLatchSet, StepLatchRelease,
		StepMACBoot, StepClockCtrl, StepHostInterrupt,
	}

	for failAt, step := range steps {
		t.Run(fmt.Sprintf("%d %s", failAt, step), func(t *testing.T) {
			regs := newFakeRegisters()
			regs.failAt = failAt
			sr := &SoftReset{
				Regs:  regs,
				Sleep: func(context.Context, time.Duration) error { return nil },
			}

			err := sr.Run(context.Background())

			var srErr *SoftResetError
			if !errors.As(err, &srErr) {
				t.Fatalf("Run() error = %v, want *SoftResetError", err)
			}
			if srErr.Step != step {
				t.Errorf("Step = %q, want %q", srErr.Step, step)
			}
			if len(regs.ops) != failAt {
				t.Errorf("ran %d ops after failure point, want %d", len(regs.ops), failAt)
			}
		})
	}
}

func TestSoftResetHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sr := &SoftReset{Regs: newFakeRegisters()}
	err := sr.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
