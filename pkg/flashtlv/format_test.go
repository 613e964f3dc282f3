package flashtlv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSectorHeader_RoundTrip(t *testing.T) {
	h := sectorHeader{Tag: sectorMagic, Version: 0x1234}
	decoded := decodeSectorHeader(encodeSectorHeader(h))
	if diff := cmp.Diff(h, decoded, cmp.AllowUnexported(sectorHeader{})); diff != "" {
		t.Fatalf("sector header round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSectorHeader_Layout(t *testing.T) {
	buf := encodeSectorHeader(sectorHeader{Tag: 0xCAEE, Version: 0x0001})
	require.Len(t, buf, 4)
	// Little-endian: tag low byte first.
	require.Equal(t, []byte{0xEE, 0xCA, 0x01, 0x00}, buf)
}

func TestBlockMeta_RoundTrip(t *testing.T) {
	m := blockMeta{Header: blockHeaderValid, Status: statusVerify, CRC8: 0xAB, Tag: 0x1122, Length: 37}
	decoded := decodeBlockMeta(encodeBlockMeta(m))
	if diff := cmp.Diff(m, decoded, cmp.AllowUnexported(blockMeta{})); diff != "" {
		t.Fatalf("block meta round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBlockMeta_Layout(t *testing.T) {
	buf := encodeBlockMeta(blockMeta{Header: 0xAA55, Status: 0xFE, CRC8: 0x07, Tag: 0x1122, Length: 5})
	require.Len(t, buf, 8)
	require.Equal(t, []byte{0x55, 0xAA, 0xFE, 0x07, 0x22, 0x11, 0x05, 0x00}, buf)
}

func TestClassifyMeta(t *testing.T) {
	end := uint32(4096)

	tests := []struct {
		name string
		meta blockMeta
		pos  uint32
		want metaClass
	}{
		{"empty", blockMeta{Header: blockHeaderEmpty}, 4, metaEmpty},
		{"bad header", blockMeta{Header: 0x1234}, 4, metaCorrupt},
		{"status none", blockMeta{Header: blockHeaderValid, Status: statusNone, Length: 4}, 4, metaCorrupt},
		{"length erased", blockMeta{Header: blockHeaderValid, Status: statusVerify, Length: 0xFFFF}, 4, metaCorrupt},
		{"length impossible", blockMeta{Header: blockHeaderValid, Status: statusVerify, Length: 5000}, 4, metaCorrupt},
		{"valid", blockMeta{Header: blockHeaderValid, Status: statusVerify, Length: 16}, 4, metaValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, classifyMeta(tt.meta, tt.pos, end))
		})
	}
}
