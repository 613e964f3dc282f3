package flashtlv

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Yanye0xFF/FlashTLV/pkg/crc8"
	"github.com/Yanye0xFF/FlashTLV/pkg/flashdrv"
)

// Engine is the handle for a two-sector TLV log bound to a [flashdrv.Device].
//
// Engine is single-threaded and non-reentrant per spec §5: it is
// designed for bare-metal or cooperative single-context use. Invoking
// any method while another call on the same Engine is in flight (e.g.
// from a signal handler) is undefined. Hosts needing concurrent access
// must serialize calls through an external mutex; Engine holds no lock
// of its own.
type Engine struct {
	dev        flashdrv.Device
	majorAddr  uint32
	minorAddr  uint32
	sectorSize uint32

	live        uint32 // invalidAddr until resolved by findLive/Format
	dirtyBlocks uint32

	cache recencyCache
}

// Init binds a new Engine to dev and geo. It performs no I/O: the live
// sector is resolved lazily on the first operation that needs it (spec
// §3 "Lifecycle").
func Init(dev flashdrv.Device, geo Geometry) (*Engine, error) {
	if geo.SectorSize <= sectorHeaderSize {
		return nil, fmt.Errorf("%w: sector size %d too small", ErrInvalidInput, geo.SectorSize)
	}
	if geo.MajorAddr == geo.MinorAddr {
		return nil, fmt.Errorf("%w: major and minor sector addresses must differ", ErrInvalidInput)
	}

	return &Engine{
		dev:        dev,
		majorAddr:  geo.MajorAddr,
		minorAddr:  geo.MinorAddr,
		sectorSize: geo.SectorSize,
		live:       invalidAddr,
	}, nil
}

// Format erases both sectors and programs the major sector's header
// with version 0, making major the live sector. The cache is
// invalidated. Format is not normally called directly - a freshly
// blank device is auto-formatted by the first operation that resolves
// the live sector - but is exposed for callers that want to
// deliberately wipe an existing log.
func (e *Engine) Format() error {
	if err := e.dev.Erase(e.majorAddr, e.sectorSize); err != nil {
		return fmt.Errorf("flashtlv: erasing major sector: %w", err)
	}
	if err := e.dev.Erase(e.minorAddr, e.sectorSize); err != nil {
		return fmt.Errorf("flashtlv: erasing minor sector: %w", err)
	}

	header := encodeSectorHeader(sectorHeader{Tag: sectorMagic, Version: versionMin})
	if err := e.dev.Program(e.majorAddr, header); err != nil {
		return fmt.Errorf("flashtlv: writing sector header: %w", err)
	}

	e.live = e.majorAddr
	e.dirtyBlocks = 0
	e.cache.invalidate()

	return nil
}

// findLive resolves the live sector by reading both sector headers. It
// performs no writes except the implicit Format of virgin media (spec
// §4.1 decision table).
func (e *Engine) findLive() error {
	majorBuf := make([]byte, sectorHeaderSize)
	minorBuf := make([]byte, sectorHeaderSize)

	if err := e.dev.Read(e.majorAddr, majorBuf); err != nil {
		return fmt.Errorf("%w: reading major header: %v", ErrNoValidSector, err)
	}
	if err := e.dev.Read(e.minorAddr, minorBuf); err != nil {
		return fmt.Errorf("%w: reading minor header: %v", ErrNoValidSector, err)
	}

	major := decodeSectorHeader(majorBuf)
	minor := decodeSectorHeader(minorBuf)

	majorOK := major.Tag == sectorMagic
	minorOK := minor.Tag == sectorMagic

	switch {
	case !majorOK && !minorOK:
		return e.Format()
	case majorOK && !minorOK:
		e.live = e.majorAddr
	case !majorOK && minorOK:
		e.live = e.minorAddr
	default:
		// Both formatted: the (max, min) / (min, max) special cases avoid
		// a redundant erase immediately after a version-wrap GC.
		switch {
		case major.Version == versionMax && minor.Version == versionMin:
			e.live = e.minorAddr
		case major.Version == versionMin && minor.Version == versionMax:
			e.live = e.majorAddr
		case major.Version > minor.Version:
			e.live = e.majorAddr
		default:
			e.live = e.minorAddr
		}
	}

	return nil
}

func (e *Engine) ensureLive() error {
	if e.live == invalidAddr {
		return e.findLive()
	}
	return nil
}

// scanResult carries the outcome of a single search pass (see search).
type scanResult struct {
	metaAddr uint32 // APPEND: allocation address. QUERY/DELETE: matched block's meta address.
	markAddr uint32 // APPEND only: prior same-tag twin's meta address, or invalidAddr.
	meta     blockMeta
}

// search implements spec §4.2.1: a single scan of the live sector from
// base+4 forward, classifying every block it passes and resetting
// dirtyBlocks to a fresh count. Mode selects allocation (APPEND),
// lookup (QUERY), or tombstoning (DELETE) behavior for a tag match.
func (e *Engine) search(tag uint16, mode searchMode, length uint16) (scanResult, error) {
	if err := e.ensureLive(); err != nil {
		return scanResult{}, err
	}

	start := e.live + sectorHeaderSize
	end := e.live + e.sectorSize
	pos := start

	e.dirtyBlocks = 0
	markAddr := invalidAddr
	markVerified := false

	metaBuf := make([]byte, blockMetaSize)

	for pos < end {
		if pos+blockMetaSize > end {
			return scanResult{}, ErrMetaSpaceLow
		}

		if err := e.dev.Read(pos, metaBuf); err != nil {
			return scanResult{}, fmt.Errorf("flashtlv: reading meta at 0x%X: %w", pos, err)
		}
		meta := decodeBlockMeta(metaBuf)

		switch classifyMeta(meta, pos, end) {
		case metaEmpty:
			if mode == modeAppend {
				if end-pos >= blockMetaSize+uint32(length) {
					return scanResult{metaAddr: pos, markAddr: markAddr}, nil
				}
				return scanResult{}, ErrDataSpaceLow
			}
			return scanResult{}, ErrNotFound

		case metaCorrupt:
			pos += blockMetaSize
			e.dirtyBlocks++
			continue
		}

		// metaValid.
		if meta.Status != statusVerify {
			e.dirtyBlocks++
		}

		if meta.Tag == tag {
			switch mode {
			case modeAppend:
				if meta.Status != statusDelete {
					// Two VERIFY twins (a crash between commit and
					// tombstone) converge here: the older one is retired
					// while the newer one keeps the tag live.
					if markVerified && meta.Status == statusVerify {
						if err := e.writeStatus(markAddr, statusDelete); err != nil {
							return scanResult{}, fmt.Errorf("flashtlv: tombstoning stale twin: %w", err)
						}
						e.dirtyBlocks++
					}
					markAddr = pos
					markVerified = meta.Status == statusVerify
				}
			case modeQuery:
				if meta.Status == statusVerify {
					return scanResult{metaAddr: pos, meta: meta}, nil
				}
			case modeDelete:
				if meta.Status != statusDelete {
					if err := e.writeStatus(pos, statusDelete); err != nil {
						return scanResult{}, fmt.Errorf("flashtlv: tombstoning block: %w", err)
					}
					e.dirtyBlocks++
					return scanResult{metaAddr: pos, meta: meta}, nil
				}
			}
		}

		pos += blockMetaSize + uint32(meta.Length)
	}

	return scanResult{}, ErrMetaSpaceLow
}

// metaClass classifies a block's meta area (spec §4.2.1 check_meta).
type metaClass int

const (
	metaCorrupt metaClass = iota
	metaEmpty
	metaValid
)

func classifyMeta(m blockMeta, pos, end uint32) metaClass {
	if m.Header == blockHeaderEmpty {
		return metaEmpty
	}
	if m.Header != blockHeaderValid {
		return metaCorrupt
	}
	if m.Status == statusNone || m.Length == 0xFFFF {
		return metaCorrupt
	}

	available := end - pos - blockMetaSize
	if uint32(m.Length) > available {
		return metaCorrupt
	}

	return metaValid
}

func (e *Engine) writeStatus(metaAddr uint32, status blockStatus) error {
	return e.dev.Program(metaAddr+2, []byte{byte(status)})
}

// Append writes data under tag, replacing any existing value for the
// same tag (spec §4.2.2). It triggers GC at most once, retrying the
// allocation exactly once afterward.
func (e *Engine) Append(tag uint16, data []byte) (bool, error) {
	if len(data) > 0xFFFF {
		return false, fmt.Errorf("%w: payload of %d bytes exceeds uint16 length", ErrInvalidInput, len(data))
	}
	length := uint16(len(data))

	if uint32(blockMetaSize)+uint32(length) > e.sectorSize-sectorHeaderSize {
		return false, fmt.Errorf("%w: payload of %d bytes cannot fit a single sector", ErrInvalidInput, length)
	}

	res, err := e.search(tag, modeAppend, length)
	if err != nil {
		if !errors.Is(err, ErrDataSpaceLow) && !errors.Is(err, ErrMetaSpaceLow) {
			return false, err
		}

		free, gcErr := e.gc()
		if gcErr != nil {
			return false, gcErr
		}
		if free < uint32(blockMetaSize)+uint32(length) {
			return false, ErrFull
		}

		res, err = e.search(tag, modeAppend, length)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrFull, err)
		}
	}

	return e.commitAppend(tag, data, res)
}

// commitAppend performs the write/readback/commit three-phase protocol
// (spec §4.2.2 steps 2-3) once allocation has succeeded.
func (e *Engine) commitAppend(tag uint16, data []byte, res scanResult) (bool, error) {
	length := uint16(len(data))

	crc := crc8.Update(0x00, []byte{byte(tag), byte(tag >> 8)})
	crc = crc8.Update(crc, []byte{byte(length), byte(length >> 8)})
	crc = crc8.Update(crc, data)

	meta := blockMeta{Header: blockHeaderValid, Status: statusWrite, CRC8: crc, Tag: tag, Length: length}
	metaBuf := encodeBlockMeta(meta)
	dataAddr := res.metaAddr + blockMetaSize

	if err := e.dev.Program(res.metaAddr, metaBuf); err != nil {
		return false, fmt.Errorf("flashtlv: programming meta: %w", err)
	}
	if length > 0 {
		if err := e.dev.Program(dataAddr, data); err != nil {
			return false, fmt.Errorf("flashtlv: programming data: %w", err)
		}
	}

	readBack := make([]byte, blockMetaSize)
	if err := e.dev.Read(res.metaAddr, readBack); err != nil {
		return false, fmt.Errorf("flashtlv: reading back meta: %w", err)
	}
	if !bytes.Equal(readBack, metaBuf) {
		return false, ErrWriteback
	}
	if err := e.verifyReadback(dataAddr, data); err != nil {
		return false, err
	}

	if err := e.writeStatus(res.metaAddr, statusVerify); err != nil {
		return false, fmt.Errorf("flashtlv: committing verify: %w", err)
	}

	if res.markAddr != invalidAddr {
		if err := e.writeStatus(res.markAddr, statusDelete); err != nil {
			return false, fmt.Errorf("flashtlv: tombstoning old twin: %w", err)
		}
	}

	e.cache.set(tag, dataAddr)

	return true, nil
}

// verifyReadback re-reads data in <=32-byte chunks and compares it
// against the bytes just programmed (spec §4.2.2 step 2).
func (e *Engine) verifyReadback(addr uint32, data []byte) error {
	buf := make([]byte, chunkSize)
	off := 0

	for off < len(data) {
		n := len(data) - off
		if n > chunkSize {
			n = chunkSize
		}

		if err := e.dev.Read(addr+uint32(off), buf[:n]); err != nil {
			return fmt.Errorf("flashtlv: reading back data: %w", err)
		}
		if !bytes.Equal(buf[:n], data[off:off+n]) {
			return ErrWriteback
		}

		off += n
	}

	return nil
}

// Query looks up tag, consulting the recency cache first (spec §4.2.3).
// A cache hit is validated only to the extent of re-reading the meta
// the cache points at; a stale cache entry can return a different
// tag's meta, which [Engine.Verify] (CRC mismatch) or a direct tag
// comparison by the caller will catch. ok is false only when tag is
// genuinely absent from the live sector.
func (e *Engine) Query(tag uint16) (Block, bool, error) {
	if offset, ok := e.cache.get(tag); ok {
		metaBuf := make([]byte, blockMetaSize)
		if err := e.dev.Read(offset-blockMetaSize, metaBuf); err != nil {
			return Block{}, false, fmt.Errorf("flashtlv: reading cached meta: %w", err)
		}
		meta := decodeBlockMeta(metaBuf)

		return Block{
			Tag:        meta.Tag,
			Length:     meta.Length,
			CRC8:       meta.CRC8,
			status:     meta.Status,
			DataOffset: offset,
		}, true, nil
	}

	res, err := e.search(tag, modeQuery, 0)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Block{}, false, nil
		}
		return Block{}, false, err
	}

	dataAddr := res.metaAddr + blockMetaSize
	block := Block{
		Tag:        res.meta.Tag,
		Length:     res.meta.Length,
		CRC8:       res.meta.CRC8,
		status:     res.meta.Status,
		DataOffset: dataAddr,
	}
	e.cache.set(tag, dataAddr)

	return block, true, nil
}

// Read copies length bytes starting at offset within block's data
// region (spec §4.2.4). It returns (nil, nil) - zero bytes, no error -
// when the requested range falls outside the block, matching the
// reference API's "0 on out-of-range" rather than raising an error for
// what is a caller bug, not a device fault.
func (e *Engine) Read(block Block, offset uint16, length uint16) ([]byte, error) {
	if offset >= block.Length || uint32(offset)+uint32(length) > uint32(block.Length) {
		return nil, nil
	}

	buf := make([]byte, length)
	if length == 0 {
		return buf, nil
	}

	if err := e.dev.Read(block.DataOffset+uint32(offset), buf); err != nil {
		return nil, fmt.Errorf("flashtlv: reading data: %w", err)
	}

	return buf, nil
}

// Verify recomputes the CRC-8 over (tag, length, data) read from flash
// and compares it to block.CRC8 (spec §4.2.5). It is side-effect free.
func (e *Engine) Verify(block Block) (bool, error) {
	crc := crc8.Update(0x00, []byte{byte(block.Tag), byte(block.Tag >> 8)})
	crc = crc8.Update(crc, []byte{byte(block.Length), byte(block.Length >> 8)})

	buf := make([]byte, chunkSize)
	remaining := block.Length
	addr := block.DataOffset

	for remaining > 0 {
		n := remaining
		if n > chunkSize {
			n = chunkSize
		}

		if err := e.dev.Read(addr, buf[:n]); err != nil {
			return false, fmt.Errorf("flashtlv: reading data for verify: %w", err)
		}

		crc = crc8.Update(crc, buf[:n])
		addr += uint32(n)
		remaining -= n
	}

	return crc == block.CRC8, nil
}

// Delete logically removes tag (spec §4.2.6): it is only ever
// tombstoned, not reclaimed, until the next GC. Returns false if tag
// was not present.
func (e *Engine) Delete(tag uint16) (bool, error) {
	e.cache.remove(tag)

	_, err := e.search(tag, modeDelete, 0)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
