package flashdrv

import "fmt"

// ErrCrashed is returned by every [Chaos] operation once a simulated
// power cut has tripped.
var ErrCrashed = fmt.Errorf("flashdrv: simulated power cut")

// Chaos wraps a [Device] to inject a deterministic power-cut at a chosen
// point in a sequence of Program calls, for the crash-safety property
// tests in spec §8 (property 4, Scenario E/F). Unlike
// github.com/.../pkg/fs's probability-rate fault injection, Chaos is
// deterministic: tests need to assert "a crash landing exactly here
// leaves a valid state", not "crashes happen sometimes".
//
// Chaos is not safe for concurrent use.
type Chaos struct {
	dev Device

	// CrashAfterPrograms, if non-zero, trips the crash on the
	// CrashAfterPrograms-th Program call (1-indexed): that call is torn
	// (only TornBytes of its buffer are actually applied) and every
	// subsequent Device operation returns [ErrCrashed].
	CrashAfterPrograms uint64

	// TornBytes is how many leading bytes of the tripping Program call's
	// buffer are applied to the underlying device before the simulated
	// power cut. Zero means the write never reached the device at all.
	TornBytes int

	programs uint64
	tripped  bool
}

// NewChaos wraps dev. With the zero value of CrashAfterPrograms, Chaos
// behaves exactly like dev.
func NewChaos(dev Device) *Chaos {
	return &Chaos{dev: dev}
}

// Tripped reports whether the simulated power cut has occurred.
func (c *Chaos) Tripped() bool { return c.tripped }

// ProgramCount returns the number of Program calls observed so far,
// including the one that tripped the crash (if any).
func (c *Chaos) ProgramCount() uint64 { return c.programs }

func (c *Chaos) Erase(addr uint32, size uint32) error {
	if c.tripped {
		return ErrCrashed
	}
	return c.dev.Erase(addr, size)
}

func (c *Chaos) Program(addr uint32, buf []byte) error {
	if c.tripped {
		return ErrCrashed
	}

	c.programs++

	if c.CrashAfterPrograms != 0 && c.programs >= c.CrashAfterPrograms {
		c.tripped = true

		torn := c.TornBytes
		if torn > len(buf) {
			torn = len(buf)
		}
		if torn > 0 {
			// Best-effort: apply the prefix that "made it to flash"
			// before power was lost. Errors here are impossible for an
			// in-bounds Program against [Sim] and are not actionable
			// for the caller, who is about to receive ErrCrashed anyway.
			_ = c.dev.Program(addr, buf[:torn])
		}

		return ErrCrashed
	}

	return c.dev.Program(addr, buf)
}

func (c *Chaos) Read(addr uint32, buf []byte) error {
	if c.tripped {
		return ErrCrashed
	}
	return c.dev.Read(addr, buf)
}
