package flashtlv

// cacheSize is the fixed number of entries the recency cache holds
// (reference design: 16).
const cacheSize = 16

// cacheEntry maps a tag to its last-known data offset. The cache never
// holds payload bytes, only locations, so it cannot disagree with flash
// semantically - it can only be stale (pointing at a now-deleted or
// relocated block), which callers handle by validating against flash on
// read (spec §3, "Cache item").
type cacheEntry struct {
	valid      bool
	tag        uint16
	age        uint8
	dataOffset uint32
}

// recencyCache is a small fixed-size associative table with a
// use-frequency ("age") eviction policy: entries that are looked up
// often accumulate high age and are protected from eviction, unlike a
// pure recency (timestamp) policy.
type recencyCache struct {
	entries [cacheSize]cacheEntry
	cursor  int // number of slots ever populated
}

// get returns the cached offset for tag, saturating-incrementing its
// age on a hit.
func (c *recencyCache) get(tag uint16) (offset uint32, ok bool) {
	for i := 0; i < c.cursor; i++ {
		e := &c.entries[i]
		if e.valid && e.tag == tag {
			e.bump()
			return e.dataOffset, true
		}
	}
	return 0, false
}

// set inserts or refreshes the entry for tag with dataOffset. If the
// table is full and tag is not already present, the entry with the
// lowest age is evicted (first-found wins on ties).
func (c *recencyCache) set(tag uint16, dataOffset uint32) {
	minAge := uint8(0xFF)
	minPos := 0

	for i := 0; i < c.cursor; i++ {
		e := &c.entries[i]
		if e.valid && e.tag == tag {
			e.bump()
			e.dataOffset = dataOffset
			return
		}
		if e.age < minAge {
			minAge = e.age
			minPos = i
		}
	}

	var index int
	if c.cursor < cacheSize {
		index = c.cursor
		c.cursor++
	} else {
		index = minPos
	}

	c.entries[index] = cacheEntry{valid: true, tag: tag, age: 1, dataOffset: dataOffset}
}

// remove invalidates the entry for tag, if present.
func (c *recencyCache) remove(tag uint16) {
	for i := 0; i < c.cursor; i++ {
		e := &c.entries[i]
		if e.valid && e.tag == tag {
			e.valid = false
			return
		}
	}
}

// invalidate clears every entry and resets the cursor. Called by
// Format (an Engine from Init starts with an empty cache); deliberately
// NOT called by GC (spec §3, §9): a stale entry is replaced by the next
// Append of that tag, or dropped by Delete or eviction. A Query that
// hits a stale entry returns it as is; it does not correct it.
func (c *recencyCache) invalidate() {
	*c = recencyCache{}
}

func (e *cacheEntry) bump() {
	if e.age < 0xFF {
		e.age++
	}
}
