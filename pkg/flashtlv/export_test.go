package flashtlv

// Exported internal accessors for white-box tests. Compiled only during
// tests, matching the teacher's export_test.go pattern.

// DirtyBlocksForTesting returns the dirty-block count from the most
// recent scan.
func (e *Engine) DirtyBlocksForTesting() uint32 {
	return e.dirtyBlocks
}

// LiveSectorForTesting returns the address of the currently live
// sector, resolving it first if unknown.
func (e *Engine) LiveSectorForTesting() (uint32, error) {
	if err := e.ensureLive(); err != nil {
		return 0, err
	}
	return e.live, nil
}

// SectorVersionForTesting reads back the version field of the live
// sector's header.
func (e *Engine) SectorVersionForTesting() (uint16, error) {
	if err := e.ensureLive(); err != nil {
		return 0, err
	}
	buf := make([]byte, sectorHeaderSize)
	if err := e.dev.Read(e.live, buf); err != nil {
		return 0, err
	}
	return decodeSectorHeader(buf).Version, nil
}

// RunGCForTesting forces a GC pass regardless of dirtyBlocks, for tests
// that want to assert GC's content-preservation property directly
// without first driving the sector to exhaustion.
func (e *Engine) RunGCForTesting() (uint32, error) {
	if e.dirtyBlocks == 0 {
		e.dirtyBlocks = 1 // force gc to run; classification below still governs what's copied
	}
	return e.gc()
}

// CacheLenForTesting returns how many cache slots have ever been
// populated.
func (e *Engine) CacheLenForTesting() int {
	return e.cache.cursor
}

// ScanLiveTagsForTesting walks the live sector and returns the tags of
// every block currently in VERIFY state, in address order. It exists
// purely for test assertions (spec explicitly keeps tag enumeration out
// of the public API, §1 Non-goals).
func (e *Engine) ScanLiveTagsForTesting() ([]uint16, error) {
	if err := e.ensureLive(); err != nil {
		return nil, err
	}

	start := e.live + sectorHeaderSize
	end := e.live + e.sectorSize
	pos := start

	var tags []uint16
	metaBuf := make([]byte, blockMetaSize)

	for pos < end {
		if pos+blockMetaSize > end {
			break
		}
		if err := e.dev.Read(pos, metaBuf); err != nil {
			return nil, err
		}
		meta := decodeBlockMeta(metaBuf)

		switch classifyMeta(meta, pos, end) {
		case metaEmpty:
			return tags, nil
		case metaCorrupt:
			pos += blockMetaSize
			continue
		default:
			if meta.Status == statusVerify {
				tags = append(tags, meta.Tag)
			}
			pos += blockMetaSize + uint32(meta.Length)
		}
	}

	return tags, nil
}
