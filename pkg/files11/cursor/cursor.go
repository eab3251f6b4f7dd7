package cursor

import (
	"encoding/binary"
	"fmt"
)

// Cursor provides bounds-checked little-endian field extraction from a volume
// image held in memory. All on-disk decoders read through a Cursor rather
// than slicing the image directly, so a truncated or corrupt image surfaces
// as an error instead of a panic.
type Cursor struct {
	data []byte
}

// New creates a Cursor over the given image bytes. The Cursor borrows the
// slice; it never copies or mutates it.
func New(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Len returns the total size of the underlying image in bytes.
func (c *Cursor) Len() int64 {
	return int64(len(c.data))
}

// Uint8 reads a single byte at the given offset.
func (c *Cursor) Uint8(off int64) (uint8, error) {
	if err := c.check(off, 1); err != nil {
		return 0, err
	}
	return c.data[off], nil
}

// Uint16 reads a little-endian 16-bit word at the given offset.
func (c *Cursor) Uint16(off int64) (uint16, error) {
	if err := c.check(off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(c.data[off : off+2]), nil
}

// Uint32 reads a little-endian 32-bit longword at the given offset.
func (c *Cursor) Uint32(off int64) (uint32, error) {
	if err := c.check(off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(c.data[off : off+4]), nil
}

// Uint64 reads a little-endian 64-bit quadword at the given offset.
func (c *Cursor) Uint64(off int64) (uint64, error) {
	if err := c.check(off, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(c.data[off : off+8]), nil
}

// Bytes returns a view of n bytes starting at the given offset. The returned
// slice aliases the image; callers that retain it must not modify it.
func (c *Cursor) Bytes(off, n int64) ([]byte, error) {
	if err := c.check(off, n); err != nil {
		return nil, err
	}
	return c.data[off : off+n], nil
}

func (c *Cursor) check(off, n int64) error {
	if off < 0 || n < 0 || off+n > int64(len(c.data)) {
		return fmt.Errorf("read of %d bytes at offset %d exceeds image size %d", n, off, len(c.data))
	}
	return nil
}
