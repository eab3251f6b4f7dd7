package files11

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bgrewell/ods2-kit/pkg/consts"
	"github.com/bgrewell/ods2-kit/pkg/files11/cursor"
	"github.com/bgrewell/ods2-kit/pkg/files11/encoding"
)

// Home block field offsets, relative to the block start (LBN 1).
const (
	homeHomeLBN       = 0   // L_HOMELBN
	homeAlHomeLBN     = 4   // L_ALHOMELBN
	homeAltIdxLBN     = 8   // L_ALTIDXLBN
	homeStrucLev      = 12  // W_STRUCLEV
	homeCluster       = 14  // W_CLUSTER
	homeHomeVBN       = 16  // W_HOMEVBN
	homeAlHomeVBN     = 18  // W_ALHOMEVBN
	homeAltIdxVBN     = 20  // W_ALTIDXVBN
	homeIbmapVBN      = 22  // W_IBMAPVBN
	homeIbmapLBN      = 24  // L_IBMAPLBN
	homeMaxFiles      = 28  // L_MAXFILES
	homeIbmapSize     = 32  // W_IBMAPSIZE
	homeResFiles      = 34  // W_RESFILES
	homeDevType       = 36  // W_DEVTYPE
	homeRVN           = 38  // W_RVN
	homeSetCount      = 40  // W_SETCOUNT
	homeVolChar       = 42  // W_VOLCHAR
	homeVolOwner      = 44  // L_VOLOWNER
	homeProtect       = 52  // W_PROTECT, after a 4-byte pad
	homeFileProt      = 54  // W_FILEPROT
	homeChecksum1     = 58  // W_CHECKSUM1, after a 2-byte pad
	homeCreDate       = 60  // Q_CREDATE
	homeWindow        = 68  // B_WINDOW
	homeLRULimit      = 69  // B_LRU_LIM
	homeExtend        = 70  // W_EXTEND
	homeRetainMin     = 72  // Q_RETAINMIN
	homeRetainMax     = 80  // Q_RETAINMAX
	homeRevDate       = 88  // Q_REVDATE
	homeMinClass      = 96  // R_MIN_CLASS, 20 bytes
	homeMaxClass      = 116 // R_MAX_CLASS, 20 bytes
	homeSerialNum     = 456 // L_SERIALNUM, after a 320-byte pad
	homeStrucName     = 460 // T_STRUCNAME, 12 bytes
	homeVolName       = 472 // T_VOLNAME, 12 bytes
	homeOwnerName     = 484 // T_OWNERNAME, 12 bytes
	homeFormat        = 496 // T_FORMAT, 12 bytes
	homeChecksum2     = 510 // W_CHECKSUM2, after a 2-byte pad
	homeTextFieldSize = 12
	homeClassSize     = 20
)

// HomeBlock is the decoded volume superblock at LBN 1.
type HomeBlock struct {
	HomeLBN           uint32 `json:"home_lbn"`
	AlternateHomeLBN  uint32 `json:"alternate_home_lbn"`
	AlternateIndexLBN uint32 `json:"alternate_index_lbn"`
	// StructureLevel carries the structure level in its high byte and the
	// structure version in its low byte; 0x0201 for ODS-2.
	StructureLevel    uint16 `json:"structure_level"`
	Cluster           uint16 `json:"cluster"`
	HomeVBN           uint16 `json:"home_vbn"`
	AlternateHomeVBN  uint16 `json:"alternate_home_vbn"`
	AlternateIndexVBN uint16 `json:"alternate_index_vbn"`
	IndexBitmapVBN    uint16 `json:"index_bitmap_vbn"`
	// IndexBitmapLBN locates the index-file bitmap; the INDEXF.SYS header
	// follows immediately after the bitmap's IndexBitmapSize blocks.
	IndexBitmapLBN uint32 `json:"index_bitmap_lbn"`
	MaxFiles       uint32 `json:"max_files"`
	// IndexBitmapSize is the bitmap length in blocks.
	IndexBitmapSize uint16 `json:"index_bitmap_size"`
	// ReservedFiles counts the system files (INDEXF.SYS, BITMAP.SYS, ...)
	// occupying the low file numbers; directory listings hide them.
	ReservedFiles         uint16    `json:"reserved_files"`
	DeviceType            uint16    `json:"device_type"`
	RelativeVolumeNumber  uint16    `json:"relative_volume_number"`
	SetCount              uint16    `json:"set_count"`
	VolumeCharacteristics uint16    `json:"volume_characteristics"`
	VolumeOwner           uint32    `json:"volume_owner"`
	Protection            uint16    `json:"protection"`
	FileProtection        uint16    `json:"file_protection"`
	Checksum1             uint16    `json:"checksum1"`
	CreatedAt             time.Time `json:"created_at"`
	Window                uint8     `json:"window"`
	LRULimit              uint8     `json:"lru_limit"`
	Extend                uint16    `json:"extend"`
	// RetainMin and RetainMax are delta times, kept raw.
	RetainMin     uint64    `json:"retain_min"`
	RetainMax     uint64    `json:"retain_max"`
	RevisedAt     time.Time `json:"revised_at"`
	MinClass      []byte    `json:"min_class"`
	MaxClass      []byte    `json:"max_class"`
	SerialNumber  uint32    `json:"serial_number"`
	StructureName string    `json:"structure_name"`
	VolumeName    string    `json:"volume_name"`
	OwnerName     string    `json:"owner_name"`
	Format        string    `json:"format"`
	Checksum2     uint16    `json:"checksum2"`
}

// decodeHomeBlock parses the home block from the image.
func decodeHomeBlock(c *cursor.Cursor) (*HomeBlock, error) {
	base := int64(consts.ODS2_HOME_BLOCK_LBN * consts.ODS2_BLOCK_SIZE)

	block, err := c.Bytes(base, consts.ODS2_BLOCK_SIZE)
	if err != nil {
		return nil, fmt.Errorf("%w: image too small for a home block", ErrInvalidImage)
	}

	u16 := func(off int) uint16 { return binary.LittleEndian.Uint16(block[off : off+2]) }
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(block[off : off+4]) }
	u64 := func(off int) uint64 { return binary.LittleEndian.Uint64(block[off : off+8]) }

	h := &HomeBlock{
		HomeLBN:               u32(homeHomeLBN),
		AlternateHomeLBN:      u32(homeAlHomeLBN),
		AlternateIndexLBN:     u32(homeAltIdxLBN),
		StructureLevel:        u16(homeStrucLev),
		Cluster:               u16(homeCluster),
		HomeVBN:               u16(homeHomeVBN),
		AlternateHomeVBN:      u16(homeAlHomeVBN),
		AlternateIndexVBN:     u16(homeAltIdxVBN),
		IndexBitmapVBN:        u16(homeIbmapVBN),
		IndexBitmapLBN:        u32(homeIbmapLBN),
		MaxFiles:              u32(homeMaxFiles),
		IndexBitmapSize:       u16(homeIbmapSize),
		ReservedFiles:         u16(homeResFiles),
		DeviceType:            u16(homeDevType),
		RelativeVolumeNumber:  u16(homeRVN),
		SetCount:              u16(homeSetCount),
		VolumeCharacteristics: u16(homeVolChar),
		VolumeOwner:           u32(homeVolOwner),
		Protection:            u16(homeProtect),
		FileProtection:        u16(homeFileProt),
		Checksum1:             u16(homeChecksum1),
		CreatedAt:             encoding.UnmarshalVMSTime(u64(homeCreDate)),
		Window:                block[homeWindow],
		LRULimit:              block[homeLRULimit],
		Extend:                u16(homeExtend),
		RetainMin:             u64(homeRetainMin),
		RetainMax:             u64(homeRetainMax),
		RevisedAt:             encoding.UnmarshalVMSTime(u64(homeRevDate)),
		MinClass:              append([]byte{}, block[homeMinClass:homeMinClass+homeClassSize]...),
		MaxClass:              append([]byte{}, block[homeMaxClass:homeMaxClass+homeClassSize]...),
		SerialNumber:          u32(homeSerialNum),
		StructureName:         encoding.TrimPadded(block[homeStrucName : homeStrucName+homeTextFieldSize]),
		VolumeName:            encoding.TrimPadded(block[homeVolName : homeVolName+homeTextFieldSize]),
		OwnerName:             encoding.TrimPadded(block[homeOwnerName : homeOwnerName+homeTextFieldSize]),
		Format:                encoding.TrimPadded(block[homeFormat : homeFormat+homeTextFieldSize]),
		Checksum2:             u16(homeChecksum2),
	}

	return h, nil
}

// verify checks the structural sanity of the home block: the ODS-2 structure
// level and, when enabled, the additive checksum over the first 255 words.
func (h *HomeBlock) verify(c *cursor.Cursor, validateChecksums bool) error {
	if h.StructureLevel>>8 != consts.ODS2_STRUCTURE_LEVEL {
		return fmt.Errorf("%w: structure level %#04x is not ODS-2", ErrInvalidImage, h.StructureLevel)
	}

	if validateChecksums {
		block, err := c.Bytes(consts.ODS2_HOME_BLOCK_LBN*consts.ODS2_BLOCK_SIZE, consts.ODS2_BLOCK_SIZE)
		if err != nil {
			return err
		}
		var sum uint16
		for i := 0; i < (consts.ODS2_BLOCK_SIZE-2)/2; i++ {
			sum += binary.LittleEndian.Uint16(block[i*2 : i*2+2])
		}
		if sum != h.Checksum2 {
			return fmt.Errorf("%w: home block checksum mismatch (computed %#04x, stored %#04x)",
				ErrInvalidImage, sum, h.Checksum2)
		}
	}

	return nil
}
