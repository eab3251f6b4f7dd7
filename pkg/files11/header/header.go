package header

import (
	"fmt"
	"time"

	"github.com/bgrewell/ods2-kit/pkg/consts"
	"github.com/bgrewell/ods2-kit/pkg/files11/cursor"
	"github.com/bgrewell/ods2-kit/pkg/files11/directory"
	"github.com/bgrewell/ods2-kit/pkg/files11/encoding"
	"github.com/bgrewell/ods2-kit/pkg/files11/fid"
	"github.com/bgrewell/ods2-kit/pkg/files11/retrieval"
	"github.com/bgrewell/ods2-kit/pkg/logging"
)

// Byte offsets of the fixed header prefix, relative to the header block.
const (
	offIDOffset = 0  // B_IDOFFSET
	offMPOffset = 1  // B_MPOFFSET
	offACOffset = 2  // B_ACOFFSET
	offRSOffset = 3  // B_RSOFFSET
	offSegNum   = 4  // W_SEG_NUM
	offStrucLev = 6  // W_STRUCLEV
	offFID      = 8  // W_FID
	offExtFID   = 14 // W_EXT_FID
	offFileChar = 52 // L_FILECHAR, after the 32-byte record attribute area
	offMapInUse = 58 // B_MAP_INUSE, after a pad word
)

// Identification area offsets, relative to the area start.
const (
	identFileName    = 0  // T_FILENAME, 20 bytes
	identRevision    = 20 // W_REVISION
	identCreate      = 22 // Q_CREATE
	identRevDate     = 30 // Q_REVDATE
	identExpDate     = 38 // Q_EXPDATE
	identBakDate     = 46 // Q_BAKDATE
	identFileNameExt = 54 // T_FILENAMEEXT, 66 bytes
	identFileNameLen = 20
	identExtLen      = 66
)

// Characteristics wraps the L_FILECHAR longword.
type Characteristics uint32

// IsDirectory reports the directory bit (bit 13).
func (c Characteristics) IsDirectory() bool {
	return c&0x2000 != 0
}

// FileHeader is a decoded INDEXF.SYS file header: one 512-byte block
// describing a file's identity, timestamps and retrieval map. For
// directories the volume additionally attaches the decoded directory
// records.
type FileHeader struct {
	// ID is the header's own File ID; the file table is indexed by its
	// FileNumber.
	ID fid.FileID `json:"id"`
	// ExtensionID links to a continuation header for files whose map
	// overflows one block. It is decoded but never followed; files carrying
	// one are flagged through the logger at decode time.
	ExtensionID fid.FileID `json:"extension_id"`
	// SegmentNumber of this header within the file's header chain.
	SegmentNumber uint16 `json:"segment_number"`
	// StructureLevel of the filesystem that wrote the header.
	StructureLevel uint16 `json:"structure_level"`
	// Characteristics is the L_FILECHAR longword.
	Characteristics Characteristics `json:"characteristics"`
	// Name is the normalized filename from the identification area, with
	// the ";version" suffix and any trailing "." removed.
	Name string `json:"name"`
	// Revision is the W_REVISION count from the identification area.
	Revision uint16 `json:"revision"`
	// CreatedAt and RevisedAt are converted from the VMS quadword
	// timestamps. ExpiresAt and BackedUpAt are retained for inspection.
	CreatedAt  time.Time `json:"created_at"`
	RevisedAt  time.Time `json:"revised_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	BackedUpAt time.Time `json:"backed_up_at"`
	// Map is the decoded retrieval-pointer map. It is never nil; headers
	// without a map area get an empty map.
	Map *retrieval.Map `json:"map"`
	// Size is the file's size in bytes, Map.TotalBlocks * 512. The volume
	// overrides the MFD's size with a small sentinel.
	Size int64 `json:"size"`
	// Records holds the decoded directory records when the header describes
	// a directory. Populated by the volume, which owns block access.
	Records []*directory.Record `json:"records,omitempty"`
}

// IsDirectory reports whether the header describes a directory.
func (f *FileHeader) IsDirectory() bool {
	return f.Characteristics.IsDirectory()
}

// Decode parses the 512-byte file header starting at off in the image.
func Decode(c *cursor.Cursor, off int64, log *logging.Logger) (*FileHeader, error) {
	f := &FileHeader{Map: &retrieval.Map{}}

	idOffset, err := c.Uint8(off + offIDOffset)
	if err != nil {
		return nil, fmt.Errorf("failed to read header prefix: %w", err)
	}
	mpOffset, err := c.Uint8(off + offMPOffset)
	if err != nil {
		return nil, err
	}

	if f.SegmentNumber, err = c.Uint16(off + offSegNum); err != nil {
		return nil, err
	}
	if f.StructureLevel, err = c.Uint16(off + offStrucLev); err != nil {
		return nil, err
	}

	fidBytes, err := c.Bytes(off+offFID, fid.Size)
	if err != nil {
		return nil, err
	}
	if err = f.ID.Unmarshal(fidBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal header file ID: %w", err)
	}

	extBytes, err := c.Bytes(off+offExtFID, fid.Size)
	if err != nil {
		return nil, err
	}
	if err = f.ExtensionID.Unmarshal(extBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extension file ID: %w", err)
	}

	fileChar, err := c.Uint32(off + offFileChar)
	if err != nil {
		return nil, err
	}
	f.Characteristics = Characteristics(fileChar)

	mapInUse, err := c.Uint8(off + offMapInUse)
	if err != nil {
		return nil, err
	}

	// The area offsets are word offsets from the header start; 0xFF marks an
	// absent area.
	if idOffset != consts.ODS2_AREA_ABSENT {
		if err = f.decodeIdent(c, off+int64(idOffset)*2); err != nil {
			return nil, err
		}
	}

	if mpOffset != consts.ODS2_AREA_ABSENT {
		f.Map, err = retrieval.DecodeMap(c, off+int64(mpOffset)*2, mapInUse, log)
		if err != nil {
			return nil, fmt.Errorf("failed to decode map area of %s: %w", f.ID, err)
		}
	}
	f.Size = int64(f.Map.TotalBlocks) * consts.ODS2_BLOCK_SIZE

	if !f.ExtensionID.IsZero() {
		log.Info("file has an extension header, extents beyond this header are not visible",
			"file", f.ID, "extension", f.ExtensionID)
	}

	return f, nil
}

// decodeIdent parses the identification area at the given byte offset.
func (f *FileHeader) decodeIdent(c *cursor.Cursor, off int64) error {
	name, err := c.Bytes(off+identFileName, identFileNameLen)
	if err != nil {
		return fmt.Errorf("failed to read identification area: %w", err)
	}
	ext, err := c.Bytes(off+identFileNameExt, identExtLen)
	if err != nil {
		return fmt.Errorf("failed to read identification area: %w", err)
	}
	f.Name = encoding.FileName(name, ext)

	if f.Revision, err = c.Uint16(off + identRevision); err != nil {
		return err
	}

	create, err := c.Uint64(off + identCreate)
	if err != nil {
		return err
	}
	revised, err := c.Uint64(off + identRevDate)
	if err != nil {
		return err
	}
	expires, err := c.Uint64(off + identExpDate)
	if err != nil {
		return err
	}
	backedUp, err := c.Uint64(off + identBakDate)
	if err != nil {
		return err
	}

	f.CreatedAt = encoding.UnmarshalVMSTime(create)
	f.RevisedAt = encoding.UnmarshalVMSTime(revised)
	f.ExpiresAt = encoding.UnmarshalVMSTime(expires)
	f.BackedUpAt = encoding.UnmarshalVMSTime(backedUp)
	return nil
}

// RecordByName returns the directory record carrying the given name, or nil.
// Matching is exact, case-sensitive and versionless.
func (f *FileHeader) RecordByName(name string) *directory.Record {
	for _, r := range f.Records {
		if r.Name == name {
			return r
		}
	}
	return nil
}
