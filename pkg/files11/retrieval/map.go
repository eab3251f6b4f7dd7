package retrieval

import (
	"fmt"

	"github.com/bgrewell/ods2-kit/pkg/files11/cursor"
	"github.com/bgrewell/ods2-kit/pkg/logging"
)

// Retrieval pointer format selectors. The selector lives in the top two bits
// of the second byte of every pointer, which is also the high byte of the
// count word in formats 2 and 3 and of the high-LBN byte in format 1 — the
// overlapped fields must be masked after reading.
const (
	FORMAT_PLACEHOLDER = 0
	FORMAT_COUNT8      = 1
	FORMAT_COUNT14     = 2
	FORMAT_COUNT30     = 3

	countMask   = 0x3FFF
	highLBNMask = 0x3F
)

// Extent is one contiguous run of logical blocks belonging to a file.
type Extent struct {
	// LBN of the first block of the run.
	LBN uint32 `json:"lbn"`
	// BlockCount is the number of 512-byte blocks in the run.
	BlockCount uint32 `json:"block_count"`
}

// Map is a file's decoded retrieval-pointer map: the ordered extent list that
// translates virtual block numbers to logical block numbers. Extents appear
// in VBN order; VBN 1 is the first block of the file.
type Map struct {
	// Extents in VBN order.
	Extents []Extent `json:"extents"`
	// TotalBlocks is the sum of all extent block counts.
	TotalBlocks uint32 `json:"total_blocks"`
}

// DecodeMap parses the map area of a file header: words*2 bytes of
// variable-length retrieval pointers starting at off. Placeholder pointers
// (format 0) are logged and skipped.
func DecodeMap(c *cursor.Cursor, off int64, words uint8, log *logging.Logger) (*Map, error) {
	m := &Map{}
	end := off + int64(words)*2

	for off < end {
		ext, consumed, err := decodePointer(c, off, log)
		if err != nil {
			return nil, fmt.Errorf("failed to decode retrieval pointer at offset %d: %w", off, err)
		}
		off += consumed
		if ext == nil {
			continue
		}
		m.Extents = append(m.Extents, *ext)
		m.TotalBlocks += ext.BlockCount
	}

	return m, nil
}

// decodePointer decodes a single retrieval pointer at off and returns the
// extent it describes together with the number of bytes consumed. A format-0
// placeholder yields a nil extent and consumes its two bytes.
func decodePointer(c *cursor.Cursor, off int64, log *logging.Logger) (*Extent, int64, error) {
	b1, err := c.Uint8(off + 1)
	if err != nil {
		return nil, 0, err
	}

	switch format := (b1 >> 6) & 0x3; format {
	case FORMAT_PLACEHOLDER:
		// Layout unknown; skipping the word may desynchronize the pointers
		// that follow, so leave a trail in the log.
		log.Info("placeholder retrieval pointer, skipping", "offset", off)
		return nil, 2, nil

	case FORMAT_COUNT8:
		// B_COUNT1 (u8), V_HIGHLBN in the low 6 bits of the format byte,
		// W_LOWLBN (u16).
		count, err := c.Uint8(off)
		if err != nil {
			return nil, 0, err
		}
		low, err := c.Uint16(off + 2)
		if err != nil {
			return nil, 0, err
		}
		lbn := uint32(b1&highLBNMask)<<16 | uint32(low)
		return &Extent{LBN: lbn, BlockCount: uint32(count)}, 4, nil

	case FORMAT_COUNT14:
		// W_COUNT2 (u14) sharing its word with the format bits, W_LBN2
		// (u16), then a pad word.
		w0, err := c.Uint16(off)
		if err != nil {
			return nil, 0, err
		}
		lbn, err := c.Uint16(off + 2)
		if err != nil {
			return nil, 0, err
		}
		return &Extent{LBN: uint32(lbn), BlockCount: uint32(w0 & countMask)}, 6, nil

	default: // FORMAT_COUNT30
		// W_COUNT2 (u14) holds the high count bits, W_LOWCOUNT (u16) the
		// low, L_LBN3 (u32) the full LBN.
		w0, err := c.Uint16(off)
		if err != nil {
			return nil, 0, err
		}
		lowCount, err := c.Uint16(off + 2)
		if err != nil {
			return nil, 0, err
		}
		lbn, err := c.Uint32(off + 4)
		if err != nil {
			return nil, 0, err
		}
		count := uint32(w0&countMask)<<16 | uint32(lowCount)
		return &Extent{LBN: lbn, BlockCount: count}, 8, nil
	}
}

// LBNForVBN translates a 1-based virtual block number to the logical block
// number it occupies on the volume. The second return is false when the VBN
// falls outside every extent.
func (m *Map) LBNForVBN(vbn uint32) (uint32, bool) {
	if vbn == 0 {
		return 0, false
	}
	idx := vbn - 1

	var base uint32
	for _, ext := range m.Extents {
		if idx >= base && idx-base < ext.BlockCount {
			return ext.LBN + (idx - base), true
		}
		base += ext.BlockCount
	}
	return 0, false
}

// TrimFront removes the first n extents and subtracts their blocks from the
// total. The index file starts with extents covering the boot and home
// blocks, which are not file headers and must be dropped before header VBNs
// are resolved.
func (m *Map) TrimFront(n int) {
	if n > len(m.Extents) {
		n = len(m.Extents)
	}
	for _, ext := range m.Extents[:n] {
		m.TotalBlocks -= ext.BlockCount
	}
	m.Extents = m.Extents[n:]
}
