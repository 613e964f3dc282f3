package flashtlv

// Stat is an operational snapshot of an Engine, for diagnostic tooling
// that needs to inspect state without reaching into unexported fields.
type Stat struct {
	LiveSector    uint32
	SectorVersion uint16
	DirtyBlocks   uint32
}

// Stat resolves the live sector (formatting virgin media if needed) and
// reports its address, on-flash version, and the dirty-block count from
// the most recent scan.
func (e *Engine) Stat() (Stat, error) {
	if err := e.ensureLive(); err != nil {
		return Stat{}, err
	}

	buf := make([]byte, sectorHeaderSize)
	if err := e.dev.Read(e.live, buf); err != nil {
		return Stat{}, err
	}

	return Stat{
		LiveSector:    e.live,
		SectorVersion: decodeSectorHeader(buf).Version,
		DirtyBlocks:   e.dirtyBlocks,
	}, nil
}

// Compact forces a reclaim pass over the live sector immediately,
// rather than waiting for a future Append to hit space pressure, and
// returns the free byte count in the resulting live sector. If the most
// recent scan counted no dirty blocks (same precondition as the
// internal gc Append falls back to), it does nothing and returns 0.
func (e *Engine) Compact() (uint32, error) {
	return e.gc()
}
