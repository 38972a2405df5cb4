package hw

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"dmgcore/emu/log"
)

// Clocked is implemented by the units advancing on the system time base,
// alongside the CPU.
type Clocked interface {
	Name() string

	// Advance runs the unit for the given number of machine cycles.
	Advance(mcycles int)

	// Clock returns the number of machine cycles advanced so far.
	Clock() uint64
}

type SyncMode uint8

const (
	// SyncLockstep alternates the CPU and the clocked units on the caller
	// goroutine.
	SyncLockstep SyncMode = iota

	// SyncRendezvous runs the clocked units on their own goroutine. The
	// cycles of each quantum are handed over a channel, split at the CPU
	// bus reads, and the CPU waits for the number of cycles advanced before
	// going on.
	SyncRendezvous
)

func (m SyncMode) String() string {
	switch m {
	case SyncLockstep:
		return "lockstep"
	case SyncRendezvous:
		return "rendezvous"
	}
	return fmt.Sprintf("SyncMode(%d)", m)
}

func ParseSyncMode(s string) (SyncMode, error) {
	switch s {
	case "", "lockstep":
		return SyncLockstep, nil
	case "rendezvous":
		return SyncRendezvous, nil
	}
	return 0, fmt.Errorf("unknown sync mode %q", s)
}

func (m *SyncMode) UnmarshalText(text []byte) error {
	mode, err := ParseSyncMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

func (m SyncMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Sync owns the time base. It runs the CPU one quantum at a time and
// releases the clocked units for exactly the cycles of that quantum before
// the next one is executed.
type Sync struct {
	CPU *CPU

	units  []Clocked
	cycles uint64
	mode   SyncMode

	// quantum in flight
	busy bool
	done int // cycles of the quantum already charged to the units

	// rendezvous mode
	grp    *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	req    chan span
	ack    chan int
}

// span is a range of machine cycles of the quantum in flight, [from, to).
type span struct{ from, to int }

func NewSync(cpu *CPU, mode SyncMode) *Sync {
	s := &Sync{CPU: cpu, mode: mode}
	cpu.catchUp = s.catchUp
	return s
}

func (s *Sync) Mode() SyncMode { return s.mode }

// Cycles returns the time base, in machine cycles.
func (s *Sync) Cycles() uint64 { return s.cycles }

// Attach adds a unit to the ones advanced at each quantum. Its clock must
// match the time base.
func (s *Sync) Attach(u Clocked) {
	if u.Clock() != s.cycles {
		panic(&SyncFault{Unit: u.Name(), Clock: u.Clock(), TimeBase: s.cycles, Reason: "attached out of phase"})
	}
	s.units = append(s.units, u)
	log.ModSync.DebugZ("attach").String("unit", u.Name()).Uint64("cycles", s.cycles).End()
}

// Units returns the attached clocked units.
func (s *Sync) Units() []Clocked { return s.units }

// reset sets the time base, the units must already be at that clock.
func (s *Sync) reset(cycles uint64) {
	s.cycles = cycles
	s.busy, s.done = false, 0
	s.check(0, 0)
}

// Step runs one CPU step and charges its cycles to every clocked unit,
// committing the CPU staged writes at their cycle offset. The units are
// caught up with the CPU before each of its bus reads, and brought to the
// end of the quantum once the step is decoded.
func (s *Sync) Step() StepResult {
	s.busy, s.done = true, 0
	res := s.CPU.Step()
	s.advance(res.Cycles)
	s.busy = false

	// Violations of the committed writes were appended to the quantum.
	res.Violations = slices.Clone(s.CPU.Quantum().violations)

	s.CPU.Retire()
	s.cycles += uint64(res.Cycles)
	s.check(s.done, res.Cycles)
	return res
}

// catchUp is called by the CPU before a bus read at the given cycle of the
// quantum. It is a no-op when the CPU is stepped outside of Step.
func (s *Sync) catchUp(cycle int) {
	if s.busy {
		s.advance(cycle)
	}
}

// advance charges the cycles of the quantum in flight up to, and not
// including, cycle to.
func (s *Sync) advance(to int) {
	if to <= s.done {
		return
	}
	sp := span{from: s.done, to: to}
	switch s.mode {
	case SyncRendezvous:
		s.done += s.rendezvous(sp)
	default:
		s.done += s.runCycles(sp)
	}
}

// Run executes at most steps steps. It stops early when ctx is done or a
// step reports an error, which is then returned with the step result.
func (s *Sync) Run(ctx context.Context, steps int) (StepResult, error) {
	var res StepResult
	for range steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res = s.Step()
		if res.Err != nil {
			return res, res.Err
		}
	}
	return res, nil
}

// runCycles advances the units through a span of the quantum in flight,
// cycle by cycle. It is the only place where shared state is mutated while
// a quantum is in flight.
func (s *Sync) runCycles(sp span) int {
	for k := sp.from; k < sp.to; k++ {
		s.CPU.Commit(k)
		for _, u := range s.units {
			u.Advance(1)
		}
	}
	return sp.to - sp.from
}

func (s *Sync) check(advanced, cycles int) {
	if advanced != cycles {
		panic(&SyncFault{
			Unit:     "sync",
			Clock:    uint64(advanced),
			TimeBase: uint64(cycles),
			Reason:   "units advanced a different number of cycles than the quantum",
		})
	}
	if s.CPU.Cycles != s.cycles {
		panic(&SyncFault{Unit: "cpu", Clock: s.CPU.Cycles, TimeBase: s.cycles, Reason: "clock drift"})
	}
	for _, u := range s.units {
		if u.Clock() != s.cycles {
			panic(&SyncFault{Unit: u.Name(), Clock: u.Clock(), TimeBase: s.cycles, Reason: "clock drift"})
		}
	}
}

func (s *Sync) start() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.grp, s.ctx = errgroup.WithContext(s.ctx)
	s.req = make(chan span)
	s.ack = make(chan int)

	s.grp.Go(func() error {
		for {
			select {
			case <-s.ctx.Done():
				return s.ctx.Err()
			case sp, ok := <-s.req:
				if !ok {
					return nil
				}
				s.ack <- s.runCycles(sp)
			}
		}
	})
	log.ModSync.DebugZ("rendezvous started").Int("units", len(s.units)).End()
}

func (s *Sync) rendezvous(sp span) int {
	if s.grp == nil {
		s.start()
	}
	select {
	case s.req <- sp:
	case <-s.ctx.Done():
		panic(&SyncFault{Unit: "sync", TimeBase: s.cycles, Reason: "rendezvous stopped"})
	}
	return <-s.ack
}

// Close stops the units goroutine, if any. The Sync can still be stepped
// afterwards, a new goroutine is then started.
func (s *Sync) Close() error {
	if s.grp == nil {
		return nil
	}
	close(s.req)
	err := s.grp.Wait()
	s.cancel()
	s.grp = nil
	log.ModSync.DebugZ("rendezvous stopped").Uint64("cycles", s.cycles).End()
	return err
}
