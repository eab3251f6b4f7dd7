package fid

import (
	"encoding/binary"
	"fmt"
)

// Size is the on-disk size of a File ID in bytes.
const Size = 6

// FileID identifies a file on a Files-11 volume. On disk it is packed as
// W_NUM (u16), W_SEQ (u16), B_RVN (u8), B_NMX (u8), where B_NMX supplies the
// high 8 bits of the 24-bit file number.
type FileID struct {
	// FileNumber is the 24-bit index of the file's header within INDEXF.SYS.
	FileNumber uint32 `json:"file_number"`
	// SequenceNumber distinguishes reuses of the same file number.
	SequenceNumber uint16 `json:"sequence_number"`
	// RelativeVolumeNumber is non-zero only on multi-volume sets.
	RelativeVolumeNumber uint8 `json:"relative_volume_number"`
}

// Unmarshal decodes a FileID from its 6-byte on-disk form.
func (f *FileID) Unmarshal(data []byte) error {
	if len(data) < Size {
		return fmt.Errorf("data length %d is less than file ID size %d", len(data), Size)
	}
	wNum := binary.LittleEndian.Uint16(data[0:2])
	wSeq := binary.LittleEndian.Uint16(data[2:4])
	bRVN := data[4]
	bNMX := data[5]

	f.FileNumber = uint32(bNMX)<<16 | uint32(wNum)
	f.SequenceNumber = wSeq
	f.RelativeVolumeNumber = bRVN
	return nil
}

// Marshal encodes the FileID into its 6-byte on-disk form.
func (f FileID) Marshal() [Size]byte {
	var b [Size]byte
	binary.LittleEndian.PutUint16(b[0:2], uint16(f.FileNumber&0xFFFF))
	binary.LittleEndian.PutUint16(b[2:4], f.SequenceNumber)
	b[4] = f.RelativeVolumeNumber
	b[5] = uint8(f.FileNumber >> 16)
	return b
}

// IsZero reports whether the FileID is the all-zero "no file" value.
func (f FileID) IsZero() bool {
	return f.FileNumber == 0 && f.SequenceNumber == 0 && f.RelativeVolumeNumber == 0
}

// Compare orders FileIDs by (file number, sequence number). It returns a
// negative value if f sorts before o, zero if equal, positive otherwise.
func (f FileID) Compare(o FileID) int {
	if f.FileNumber != o.FileNumber {
		if f.FileNumber < o.FileNumber {
			return -1
		}
		return 1
	}
	if f.SequenceNumber != o.SequenceNumber {
		if f.SequenceNumber < o.SequenceNumber {
			return -1
		}
		return 1
	}
	return 0
}

func (f FileID) String() string {
	return fmt.Sprintf("%d/%d", f.FileNumber, f.SequenceNumber)
}
