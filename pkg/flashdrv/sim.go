package flashdrv

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// Sim is an in-memory flash simulator: a single contiguous byte array
// that enforces NOR-flash program semantics (program may only clear
// bits: each programmed byte is ANDed into the byte already stored, so
// a bit that is 0 stays 0 until the next erase).
//
// Sim is not safe for concurrent use; the engine above it is
// single-threaded per spec §5 and so is Sim.
type Sim struct {
	mem []byte
}

// NewSim creates a simulated flash device of the given total size, with
// all bytes erased (0xFF). This mirrors the original reference's
// flash_create.
func NewSim(size uint32) *Sim {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &Sim{mem: mem}
}

// Load creates a simulated flash device from a previously [Sim.Save]d
// image file, reproducing the exact byte contents on disk. This is how
// cmd/flashtlv and the cold-boot property test (spec §8 Scenario D)
// resume a session across process restarts.
func Load(path string) (*Sim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flashdrv: loading image %q: %w", path, err)
	}
	mem := make([]byte, len(data))
	copy(mem, data)
	return &Sim{mem: mem}, nil
}

// Save persists the current flash image to path. The write is atomic
// from the host filesystem's point of view (a crash mid-save leaves
// either the old or the new image, never a half-written one) via
// natefinch/atomic's write-to-temp-then-rename. This only protects the
// host file; torn writes inside the simulated flash medium itself are
// modeled by [Chaos], not by this method.
func (s *Sim) Save(path string) error {
	if err := atomic.WriteFile(path, bytes.NewReader(s.mem)); err != nil {
		return fmt.Errorf("flashdrv: saving image %q: %w", path, err)
	}
	return nil
}

// Size returns the total addressable size of the simulated device.
func (s *Sim) Size() uint32 { return uint32(len(s.mem)) }

// Delete removes a previously [Sim.Save]d image file from disk,
// mirroring the original reference's flash_delete. Deleting an image
// that was never saved is not an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("flashdrv: deleting image %q: %w", path, err)
	}
	return nil
}

func (s *Sim) Erase(addr uint32, size uint32) error {
	end, err := s.bounds(addr, size)
	if err != nil {
		return err
	}
	for i := addr; i < end; i++ {
		s.mem[i] = 0xFF
	}
	return nil
}

func (s *Sim) Program(addr uint32, buf []byte) error {
	end, err := s.bounds(addr, uint32(len(buf)))
	if err != nil {
		return err
	}
	for i := addr; i < end; i++ {
		// Only bits set in the current byte may be cleared (1->0).
		// Programming a bit that is already 0 to 1 is undefined on
		// real NOR flash; the simulator enforces it so test bugs that
		// violate the ordering contract in spec §5 surface immediately
		// instead of silently "working" only in simulation.
		s.mem[i] &= buf[i-addr]
	}
	return nil
}

func (s *Sim) Read(addr uint32, buf []byte) error {
	end, err := s.bounds(addr, uint32(len(buf)))
	if err != nil {
		return err
	}
	copy(buf, s.mem[addr:end])
	return nil
}

func (s *Sim) bounds(addr uint32, size uint32) (uint32, error) {
	end := addr + size
	if size > 0 && (end < addr || end > uint32(len(s.mem))) {
		return 0, fmt.Errorf("flashdrv: access [0x%X, 0x%X) out of range [0, 0x%X)", addr, end, len(s.mem))
	}
	return end, nil
}
