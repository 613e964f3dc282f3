// Package flashtlv implements a fault-tolerant key/value log for
// NOR-flash-like storage on resource-constrained devices.
//
// Keys ("tags") are fixed-width 16-bit identifiers; values are
// variable-length byte blobs stored as TLV blocks in a two-sector,
// log-structured layout. The engine survives a power loss at any point
// without corrupting previously committed entries: every append is a
// three-phase commit (write, verify, tombstone-the-old-twin), and every
// Append, Delete and cache-missing Query scans the live sector,
// classifying every block it encounters.
//
// # Basic usage
//
//	dev := flashdrv.NewSim(2 * 4096)
//	eng, err := flashtlv.Init(dev, flashtlv.Geometry{
//	    MajorAddr:  0,
//	    MinorAddr:  4096,
//	    SectorSize: 4096,
//	})
//	if err != nil {
//	    // handle
//	}
//
//	eng.Append(0x1122, []byte("hello"))
//	block, ok, _ := eng.Query(0x1122)
//	data, _ := eng.Read(block, 0, block.Length)
//	ok, _ = eng.Verify(block)
//
// # Durability model
//
// flashtlv is not a general database: there is no multi-key transaction,
// no multi-writer concurrency, and no tag enumeration. A single
// [Engine] claims exclusive ownership of its two sectors and must not be
// used from more than one goroutine at a time (see [Engine] docs).
// Compaction (GC) runs automatically inside Append when a sector fills
// up; [Engine.Compact] also runs it on request.
//
// # Error handling
//
// Operations return a bare bool for the common success/failure case
// (matching the reference C API) plus an error for callers that want to
// distinguish "tag not found" from "sector unreadable" from "no space
// after GC". Classify with errors.Is against the Err* sentinels in
// errors.go.
package flashtlv
