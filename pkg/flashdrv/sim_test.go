package flashdrv_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yanye0xFF/FlashTLV/pkg/flashdrv"
)

func TestSim_EraseResetsToAllFF(t *testing.T) {
	sim := flashdrv.NewSim(4096)

	require.NoError(t, sim.Program(0, []byte{0x00, 0x11, 0x22}))
	require.NoError(t, sim.Erase(0, 4096))

	buf := make([]byte, 8)
	require.NoError(t, sim.Read(0, buf))
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, buf)
}

func TestSim_ProgramOnlyClearsBits(t *testing.T) {
	sim := flashdrv.NewSim(16)

	require.NoError(t, sim.Program(0, []byte{0b1111_0000}))
	// Programming 0b0000_1111 over a byte that is now 0b1111_0000 must
	// not set any bits back to 1: only the AND of the two applies.
	require.NoError(t, sim.Program(0, []byte{0b0000_1111}))

	buf := make([]byte, 1)
	require.NoError(t, sim.Read(0, buf))
	require.Equal(t, byte(0), buf[0])
}

func TestSim_OutOfRangeAccessErrors(t *testing.T) {
	sim := flashdrv.NewSim(16)

	require.Error(t, sim.Read(10, make([]byte, 10)))
	require.Error(t, sim.Program(10, make([]byte, 10)))
	require.Error(t, sim.Erase(0, 17))
}

func TestSim_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flash.img")

	sim := flashdrv.NewSim(256)
	require.NoError(t, sim.Program(4, []byte{0xCA, 0xEE, 0x00, 0x00}))
	require.NoError(t, sim.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, 256, info.Size())

	reloaded, err := flashdrv.Load(path)
	require.NoError(t, err)
	require.Equal(t, sim.Size(), reloaded.Size())

	buf := make([]byte, 4)
	require.NoError(t, reloaded.Read(4, buf))
	require.Equal(t, []byte{0xCA, 0xEE, 0x00, 0x00}, buf)
}
