// Package testvol synthesizes minimal ODS-2 volume images in memory for
// tests: a boot block, a home block with valid checksums, an index-file
// bitmap, a self-describing INDEXF.SYS header chain and caller-defined files
// and directories.
package testvol

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/bgrewell/ods2-kit/pkg/files11/encoding"
)

const BlockSize = 512

// DirEntrySpec is one directory record in a synthesized directory: a name
// (without version) resolving to a file number.
type DirEntrySpec struct {
	Name    string
	Number  uint32
	Version uint16
}

// DirEntry builds a version-1 DirEntrySpec.
func DirEntry(name string, number uint32) DirEntrySpec {
	return DirEntrySpec{Name: name, Number: number, Version: 1}
}

type fileSpec struct {
	name        string // identification-area name, including ";version"
	dir         bool
	content     []byte
	entries     []DirEntrySpec
	splitBlocks int // when > 0, force a second extent after this many blocks
}

// Builder assembles a volume image. File numbers 1 (INDEXF.SYS) and the
// header chain are synthesized automatically; gaps below the highest defined
// file number are filled with placeholder headers so the bootstrap scan does
// not stop early.
type Builder struct {
	volumeName    string
	structureName string
	ownerName     string
	format        string
	reservedFiles uint16
	maxFiles      uint32
	serialNumber  uint32
	created       time.Time
	files         map[uint32]*fileSpec
}

func New() *Builder {
	return &Builder{
		volumeName:    "SYSTEM",
		structureName: "DECFILE11B",
		ownerName:     "SYSTEM",
		format:        "DECFILE11B",
		reservedFiles: 15,
		maxFiles:      2000,
		serialNumber:  1,
		created:       time.Date(1992, time.July, 4, 12, 0, 0, 0, time.UTC),
		files:         make(map[uint32]*fileSpec),
	}
}

func (b *Builder) WithVolumeName(name string) *Builder {
	b.volumeName = name
	return b
}

func (b *Builder) WithReservedFiles(n uint16) *Builder {
	b.reservedFiles = n
	return b
}

func (b *Builder) WithCreated(t time.Time) *Builder {
	b.created = t
	return b
}

// AddFile defines a regular file. The name carries a version suffix, e.g.
// "LOGIN.COM;1".
func (b *Builder) AddFile(number uint32, name string, content []byte) *Builder {
	b.files[number] = &fileSpec{name: name, content: content}
	return b
}

// AddFileSplit defines a regular file whose map is forced into two extents,
// the first covering firstExtentBlocks blocks.
func (b *Builder) AddFileSplit(number uint32, name string, content []byte, firstExtentBlocks int) *Builder {
	b.files[number] = &fileSpec{name: name, content: content, splitBlocks: firstExtentBlocks}
	return b
}

// AddDirectory defines a directory and its records. The MFD is the directory
// at file number 4 named "000000.DIR;1"; by convention it lists itself.
func (b *Builder) AddDirectory(number uint32, name string, entries ...DirEntrySpec) *Builder {
	b.files[number] = &fileSpec{name: name, dir: true, entries: entries}
	return b
}

type extent struct {
	lbn   uint32
	count uint32
}

// Build lays out and returns the volume image.
func (b *Builder) Build() []byte {
	maxNum := uint32(1)
	for n := range b.files {
		if n > maxNum {
			maxNum = n
		}
	}

	// Fill header slots the caller left undefined so the bootstrap scan
	// walks past them.
	for n := uint32(2); n <= maxNum; n++ {
		if _, ok := b.files[n]; !ok {
			b.files[n] = &fileSpec{name: fmt.Sprintf("RESERVED%03d.SYS;1", n)}
		}
	}

	// Layout: LBN 0 boot, 1 home, 2 index bitmap, 2+n header of file n,
	// data region after the last header.
	headerBase := uint32(2)
	dataLBN := headerBase + maxNum + 1

	// Allocate data blocks in file-number order.
	numbers := make([]uint32, 0, len(b.files))
	for n := range b.files {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	type placed struct {
		spec    *fileSpec
		extents []extent
		data    []byte
	}
	placements := make(map[uint32]*placed)

	for _, n := range numbers {
		spec := b.files[n]
		data := spec.content
		if spec.dir {
			data = encodeDirectoryBlocks(spec.entries)
		}
		data = padToBlocks(data)
		blocks := uint32(len(data) / BlockSize)

		p := &placed{spec: spec, data: data}
		if blocks > 0 {
			if spec.splitBlocks > 0 && uint32(spec.splitBlocks) < blocks {
				first := uint32(spec.splitBlocks)
				p.extents = []extent{
					{lbn: dataLBN, count: first},
					{lbn: dataLBN + first + 1, count: blocks - first},
				}
				dataLBN += blocks + 1 // one unused gap block between extents
			} else {
				p.extents = []extent{{lbn: dataLBN, count: blocks}}
				dataLBN += blocks
			}
		}
		placements[n] = p
	}

	disk := make([]byte, int(dataLBN)*BlockSize)

	// Home block.
	writeHomeBlock(disk[BlockSize:2*BlockSize], b, maxNum)

	// INDEXF.SYS: three metadata extents (boot, home, backup home), then the
	// bitmap and header blocks.
	indexExtents := []extent{
		{lbn: 0, count: 1},
		{lbn: 1, count: 1},
		{lbn: 1, count: 1},
		{lbn: headerBase, count: 1 + maxNum},
	}
	writeHeader(headerSlot(disk, headerBase, 1), headerParams{
		number:  1,
		seq:     1,
		name:    "INDEXF.SYS;1",
		extents: indexExtents,
		created: b.created,
	})

	// Remaining headers and file data.
	for _, n := range numbers {
		if n == 1 {
			continue
		}
		p := placements[n]
		writeHeader(headerSlot(disk, headerBase, n), headerParams{
			number:  n,
			seq:     1,
			name:    p.spec.name,
			dir:     p.spec.dir,
			extents: p.extents,
			created: b.created,
		})
		for i, ext := range p.extents {
			var consumed uint32
			for j := 0; j < i; j++ {
				consumed += p.extents[j].count
			}
			copy(disk[int(ext.lbn)*BlockSize:], p.data[int(consumed)*BlockSize:int(consumed+ext.count)*BlockSize])
		}
	}

	return disk
}

func headerSlot(disk []byte, headerBase, number uint32) []byte {
	off := int(headerBase+number) * BlockSize
	return disk[off : off+BlockSize]
}

func padToBlocks(data []byte) []byte {
	if len(data)%BlockSize == 0 {
		return data
	}
	padded := make([]byte, (len(data)/BlockSize+1)*BlockSize)
	copy(padded, data)
	return padded
}

type headerParams struct {
	number  uint32
	seq     uint16
	name    string
	dir     bool
	extents []extent
	created time.Time
	// absent areas for corruption tests
	noIdent bool
	noMap   bool
}

// EncodeHeader returns a standalone 512-byte file header for decoder tests.
func EncodeHeader(number uint32, seq uint16, name string, dir bool, extents [][2]uint32, created time.Time) []byte {
	block := make([]byte, BlockSize)
	exts := make([]extent, len(extents))
	for i, e := range extents {
		exts[i] = extent{lbn: e[0], count: e[1]}
	}
	writeHeader(block, headerParams{number: number, seq: seq, name: name, dir: dir, extents: exts, created: created})
	return block
}

// EncodeHeaderWithoutAreas returns a header whose identification and map
// areas are marked absent.
func EncodeHeaderWithoutAreas(number uint32, seq uint16) []byte {
	block := make([]byte, BlockSize)
	writeHeader(block, headerParams{number: number, seq: seq, noIdent: true, noMap: true})
	return block
}

func writeHeader(block []byte, p headerParams) {
	const (
		idOffsetWords = 40  // identification area at byte 80
		mpOffsetWords = 100 // map area at byte 200
	)

	if p.noIdent {
		block[0] = 0xFF
	} else {
		block[0] = idOffsetWords
	}
	if p.noMap {
		block[1] = 0xFF
	} else {
		block[1] = mpOffsetWords
	}
	block[2] = 0xFF // no access control area
	block[3] = 0xFF // no reserved area
	binary.LittleEndian.PutUint16(block[6:8], 0x0201) // W_STRUCLEV

	// W_FID
	binary.LittleEndian.PutUint16(block[8:10], uint16(p.number&0xFFFF))
	binary.LittleEndian.PutUint16(block[10:12], p.seq)
	block[13] = uint8(p.number >> 16)

	// L_FILECHAR
	var characteristics uint32
	if p.dir {
		characteristics |= 0x2000
	}
	binary.LittleEndian.PutUint32(block[52:56], characteristics)

	if !p.noIdent {
		ident := block[80:]
		writePadded(ident[0:20], p.name)
		binary.LittleEndian.PutUint16(ident[20:22], 1) // W_REVISION
		ticks := encoding.MarshalVMSTime(p.created)
		binary.LittleEndian.PutUint64(ident[22:30], ticks) // Q_CREATE
		binary.LittleEndian.PutUint64(ident[30:38], ticks) // Q_REVDATE
		writePadded(ident[54:120], "")
	}

	if !p.noMap {
		words := writeMapArea(block[200:], p.extents)
		block[58] = words // B_MAP_INUSE
	}
}

// writeMapArea encodes the extents as retrieval pointers, picking format 1
// when the extent fits and format 3 otherwise. Returns the words used.
func writeMapArea(area []byte, extents []extent) uint8 {
	off := 0
	for _, ext := range extents {
		if ext.count <= 0xFF && ext.lbn <= 0x3FFFFF {
			area[off] = uint8(ext.count)
			area[off+1] = 0x40 | uint8(ext.lbn>>16)
			binary.LittleEndian.PutUint16(area[off+2:off+4], uint16(ext.lbn&0xFFFF))
			off += 4
		} else {
			binary.LittleEndian.PutUint16(area[off:off+2], 0xC000|uint16(ext.count>>16))
			binary.LittleEndian.PutUint16(area[off+2:off+4], uint16(ext.count&0xFFFF))
			binary.LittleEndian.PutUint32(area[off+4:off+8], ext.lbn)
			off += 8
		}
	}
	return uint8(off / 2)
}

// encodeDirectoryBlocks packs directory records into 512-byte blocks, each
// terminated by the 0xFFFF sentinel.
func encodeDirectoryBlocks(entries []DirEntrySpec) []byte {
	var blocks []byte
	block := newDirBlock()
	used := 0

	for _, e := range entries {
		rec := encodeDirRecord(e)
		if used+len(rec)+2 > BlockSize {
			blocks = append(blocks, block...)
			block = newDirBlock()
			used = 0
		}
		copy(block[used:], rec)
		used += len(rec)
		// re-assert the sentinel after the record
		block[used] = 0xFF
		block[used+1] = 0xFF
	}
	blocks = append(blocks, block...)
	return blocks
}

func newDirBlock() []byte {
	block := make([]byte, BlockSize)
	block[0] = 0xFF
	block[1] = 0xFF
	return block
}

func encodeDirRecord(e DirEntrySpec) []byte {
	pad := len(e.Name) % 2
	size := 6 + len(e.Name) + pad + 8

	b := make([]byte, size)
	binary.LittleEndian.PutUint16(b[0:2], uint16(size-2)) // W_SIZE
	binary.LittleEndian.PutUint16(b[2:4], 0)              // W_VERLIMIT
	b[5] = uint8(len(e.Name))
	copy(b[6:], e.Name)

	off := 6 + len(e.Name) + pad
	binary.LittleEndian.PutUint16(b[off:off+2], e.Version)
	binary.LittleEndian.PutUint16(b[off+2:off+4], uint16(e.Number&0xFFFF))
	binary.LittleEndian.PutUint16(b[off+4:off+6], 1) // W_SEQ
	b[off+7] = uint8(e.Number >> 16)
	return b
}

func writePadded(dst []byte, s string) {
	copy(dst, s)
	for i := len(s); i < len(dst); i++ {
		dst[i] = ' '
	}
}

// Home block field offsets used by writeHomeBlock.
func writeHomeBlock(block []byte, b *Builder, maxNum uint32) {
	binary.LittleEndian.PutUint32(block[0:4], 1)        // L_HOMELBN
	binary.LittleEndian.PutUint32(block[4:8], 1)        // L_ALHOMELBN
	binary.LittleEndian.PutUint32(block[8:12], 1)       // L_ALTIDXLBN
	binary.LittleEndian.PutUint16(block[12:14], 0x0201) // W_STRUCLEV
	binary.LittleEndian.PutUint16(block[14:16], 1)      // W_CLUSTER
	binary.LittleEndian.PutUint16(block[16:18], 2)      // W_HOMEVBN
	binary.LittleEndian.PutUint16(block[18:20], 2)      // W_ALHOMEVBN
	binary.LittleEndian.PutUint16(block[20:22], 3)      // W_ALTIDXVBN
	binary.LittleEndian.PutUint16(block[22:24], 4)      // W_IBMAPVBN
	binary.LittleEndian.PutUint32(block[24:28], 2)      // L_IBMAPLBN
	binary.LittleEndian.PutUint32(block[28:32], b.maxFiles)
	binary.LittleEndian.PutUint16(block[32:34], 1) // W_IBMAPSIZE
	binary.LittleEndian.PutUint16(block[34:36], b.reservedFiles)
	binary.LittleEndian.PutUint16(block[42:44], 1)     // W_VOLCHAR
	binary.LittleEndian.PutUint32(block[44:48], 0x104) // L_VOLOWNER
	binary.LittleEndian.PutUint16(block[52:54], 0xFAFF)
	binary.LittleEndian.PutUint16(block[54:56], 0xFFFF)
	binary.LittleEndian.PutUint64(block[60:68], encoding.MarshalVMSTime(b.created))
	block[68] = 7                                  // B_WINDOW
	block[69] = 16                                 // B_LRU_LIM
	binary.LittleEndian.PutUint16(block[70:72], 5) // W_EXTEND
	binary.LittleEndian.PutUint32(block[456:460], b.serialNumber)
	writePadded(block[460:472], b.structureName)
	writePadded(block[472:484], b.volumeName)
	writePadded(block[484:496], b.ownerName)
	writePadded(block[496:508], b.format)

	// W_CHECKSUM1 covers the preceding 29 words, W_CHECKSUM2 the preceding
	// 255 words.
	binary.LittleEndian.PutUint16(block[58:60], wordChecksum(block, 29))
	binary.LittleEndian.PutUint16(block[510:512], wordChecksum(block, 255))
}

func wordChecksum(block []byte, words int) uint16 {
	var sum uint16
	for i := 0; i < words; i++ {
		sum += binary.LittleEndian.Uint16(block[i*2 : i*2+2])
	}
	return sum
}
