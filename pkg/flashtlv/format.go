package flashtlv

import "encoding/binary"

// sectorHeader is the 4-byte header at the start of every sector.
type sectorHeader struct {
	Tag     uint16
	Version uint16
}

// encodeSectorHeader serializes h to a 4-byte little-endian slice.
func encodeSectorHeader(h sectorHeader) []byte {
	buf := make([]byte, sectorHeaderSize)
	binary.LittleEndian.PutUint16(buf[0:], h.Tag)
	binary.LittleEndian.PutUint16(buf[2:], h.Version)
	return buf
}

// decodeSectorHeader parses a 4-byte sector header.
func decodeSectorHeader(buf []byte) sectorHeader {
	return sectorHeader{
		Tag:     binary.LittleEndian.Uint16(buf[0:]),
		Version: binary.LittleEndian.Uint16(buf[2:]),
	}
}

// blockMeta is the decoded form of a block's 8-byte meta area (spec §3).
type blockMeta struct {
	Header uint16
	Status blockStatus
	CRC8   byte
	Tag    uint16
	Length uint16
}

// encodeBlockMeta serializes m to an 8-byte little-endian slice.
func encodeBlockMeta(m blockMeta) []byte {
	buf := make([]byte, blockMetaSize)
	binary.LittleEndian.PutUint16(buf[0:], m.Header)
	buf[2] = byte(m.Status)
	buf[3] = m.CRC8
	binary.LittleEndian.PutUint16(buf[4:], m.Tag)
	binary.LittleEndian.PutUint16(buf[6:], m.Length)
	return buf
}

// decodeBlockMeta parses an 8-byte block meta area.
func decodeBlockMeta(buf []byte) blockMeta {
	return blockMeta{
		Header: binary.LittleEndian.Uint16(buf[0:]),
		Status: blockStatus(buf[2]),
		CRC8:   buf[3],
		Tag:    binary.LittleEndian.Uint16(buf[4:]),
		Length: binary.LittleEndian.Uint16(buf[6:]),
	}
}
