package flashtlv

import "fmt"

// gc reclaims space by copying only VERIFY blocks from the live sector
// into the erased alternate sector, then flips the live pointer (spec
// §4.2.7). Append invokes it when allocation fails, and [Engine.Compact]
// invokes it on request. Returns the free byte count in the new live
// sector.
//
// dirtyBlocks is the count left by the most recent scan; when called
// from Append that is the full scan that just failed to allocate. If it
// is zero, gc is a no-op and returns 0 - there is nothing to reclaim,
// and running it anyway would erase the swap sector for zero benefit.
func (e *Engine) gc() (uint32, error) {
	if e.dirtyBlocks == 0 {
		return 0, nil
	}

	if err := e.ensureLive(); err != nil {
		return 0, err
	}

	swap := e.minorAddr
	if e.live == e.minorAddr {
		swap = e.majorAddr
	}

	if err := e.dev.Erase(swap, e.sectorSize); err != nil {
		return 0, fmt.Errorf("flashtlv: gc erasing swap sector: %w", err)
	}

	readPos := e.live + sectorHeaderSize
	readEnd := e.live + e.sectorSize
	writePos := swap + sectorHeaderSize

	metaBuf := make([]byte, blockMetaSize)
	chunk := make([]byte, chunkSize)

	for readPos < readEnd {
		if readPos+blockMetaSize > readEnd {
			break
		}

		if err := e.dev.Read(readPos, metaBuf); err != nil {
			return 0, fmt.Errorf("flashtlv: gc reading meta: %w", err)
		}
		meta := decodeBlockMeta(metaBuf)

		switch classifyMeta(meta, readPos, readEnd) {
		case metaEmpty:
			readPos = readEnd // nothing more to scan

		case metaCorrupt:
			readPos += blockMetaSize

		default: // metaValid
			if meta.Status == statusVerify {
				if err := e.dev.Program(writePos, metaBuf); err != nil {
					return 0, fmt.Errorf("flashtlv: gc writing meta: %w", err)
				}
				readPos += blockMetaSize
				writePos += blockMetaSize

				remaining := meta.Length
				for remaining > 0 {
					n := remaining
					if n > chunkSize {
						n = chunkSize
					}

					if err := e.dev.Read(readPos, chunk[:n]); err != nil {
						return 0, fmt.Errorf("flashtlv: gc reading data: %w", err)
					}
					if err := e.dev.Program(writePos, chunk[:n]); err != nil {
						return 0, fmt.Errorf("flashtlv: gc writing data: %w", err)
					}

					readPos += uint32(n)
					writePos += uint32(n)
					remaining -= n
				}
			} else {
				readPos += blockMetaSize + uint32(meta.Length)
			}
		}
	}

	oldHeaderBuf := make([]byte, sectorHeaderSize)
	if err := e.dev.Read(e.live, oldHeaderBuf); err != nil {
		return 0, fmt.Errorf("flashtlv: gc reading old sector header: %w", err)
	}
	oldHeader := decodeSectorHeader(oldHeaderBuf)

	newVersion := oldHeader.Version + 1
	if oldHeader.Version == versionMax {
		newVersion = versionMin
	}

	newHeader := encodeSectorHeader(sectorHeader{Tag: sectorMagic, Version: newVersion})
	if err := e.dev.Program(swap, newHeader); err != nil {
		return 0, fmt.Errorf("flashtlv: gc writing new sector header: %w", err)
	}

	// The old live sector is deliberately NOT erased here: the version
	// rule in findLive still identifies swap as live on the next cold
	// boot, and the old sector is erased lazily the next time it is
	// itself chosen as a GC swap target.
	e.live = swap
	e.dirtyBlocks = 0

	return (swap + e.sectorSize) - writePos, nil
}
