package flashtlv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yanye0xFF/FlashTLV/pkg/flashdrv"
)

const testSectorSize = 4096

// newTestEngine builds an Engine over a freshly-erased two-sector Sim
// device using the reference geometry (two 4096 B sectors back to
// back). The returned Sim is the same device the Engine uses, so tests
// can poke bytes directly (e.g. to corrupt a CRC) or wrap it in
// [flashdrv.Chaos].
func newTestEngine(t *testing.T) (*Engine, *flashdrv.Sim) {
	t.Helper()

	sim := flashdrv.NewSim(testSectorSize * 2)
	eng, err := Init(sim, Geometry{MajorAddr: 0, MinorAddr: testSectorSize, SectorSize: testSectorSize})
	require.NoError(t, err)

	return eng, sim
}
