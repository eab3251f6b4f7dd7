package directory

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/ods2-kit/pkg/consts"
	"github.com/bgrewell/ods2-kit/pkg/files11/encoding"
	"github.com/bgrewell/ods2-kit/pkg/files11/fid"
	"github.com/bgrewell/ods2-kit/pkg/logging"
)

const (
	// Fixed portion of a record: W_SIZE, W_VERLIMIT, B_FLAGS, B_NAMECOUNT.
	recordHeaderSize = 6
	// Each version entry: W_VERSION plus a 6-byte File ID.
	EntrySize = 8
)

// Entry is one version of a directory record's file: the version number and
// the File ID its header lives under. Entries are stored newest first.
type Entry struct {
	// Version of the file this entry points at.
	Version uint16 `json:"version"`
	// ID keys the file header in the volume's file table.
	ID fid.FileID `json:"id"`
}

// Record is a single directory record: a name and the list of versions
// carrying that name. A record occupies a single 512-byte block and never
// spans into the next.
type Record struct {
	// Size is the record's on-disk size in bytes, including the 2-byte
	// length prefix (W_SIZE + 2).
	Size int `json:"size"`
	// VersionLimit is the maximum number of versions retained for the name.
	VersionLimit uint16 `json:"version_limit"`
	// Flags is the B_FLAGS byte; not interpreted here.
	Flags uint8 `json:"flags"`
	// Name is the ASCII record name with any trailing "." removed. Directory
	// records store no version suffix.
	Name string `json:"name"`
	// Entries holds one Entry per version, newest first. Path resolution
	// always follows Entries[0].
	Entries []Entry `json:"entries"`
}

// Unmarshal decodes a Record from data, which must begin at the record's
// first byte and extend at least to the record's end.
func (r *Record) Unmarshal(data []byte) error {
	if len(data) < recordHeaderSize {
		return fmt.Errorf("data too short to contain a directory record header")
	}

	wSize := binary.LittleEndian.Uint16(data[0:2])
	r.Size = int(wSize) + 2
	r.VersionLimit = binary.LittleEndian.Uint16(data[2:4])
	r.Flags = data[4]
	nameCount := int(data[5])

	if r.Size < recordHeaderSize+nameCount {
		return fmt.Errorf("record size %d cannot hold a %d byte name", r.Size, nameCount)
	}
	if len(data) < r.Size {
		return fmt.Errorf("data length %d is less than record size %d", len(data), r.Size)
	}

	offset := recordHeaderSize
	r.Name = encoding.RecordName(data[offset : offset+nameCount])
	offset += nameCount

	// Version entries are word aligned; an odd-length name is followed by a
	// pad byte.
	if nameCount%2 == 1 {
		offset++
	}

	entryCount := (r.Size - recordHeaderSize - nameCount) / EntrySize
	if offset+entryCount*EntrySize > len(data) {
		return fmt.Errorf("record entries extend past the available data")
	}

	r.Entries = make([]Entry, 0, entryCount)
	for i := 0; i < entryCount; i++ {
		var e Entry
		e.Version = binary.LittleEndian.Uint16(data[offset : offset+2])
		if err := e.ID.Unmarshal(data[offset+2 : offset+2+fid.Size]); err != nil {
			return fmt.Errorf("failed to unmarshal entry %d file ID: %w", i, err)
		}
		r.Entries = append(r.Entries, e)
		offset += EntrySize
	}

	return nil
}

// DecodeBlock parses one 512-byte directory block into its records. Scanning
// stops at the end-of-block sentinel, a record size word whose signed
// interpretation is negative.
func DecodeBlock(block []byte, log *logging.Logger) ([]*Record, error) {
	var records []*Record

	offset := 0
	for i := 0; i < consts.ODS2_MAX_RECORDS_PER_BLOCK; i++ {
		if offset+2 > len(block) {
			break
		}
		if int16(binary.LittleEndian.Uint16(block[offset:offset+2])) < 0 {
			break
		}

		record := &Record{}
		if err := record.Unmarshal(block[offset:]); err != nil {
			return nil, fmt.Errorf("failed to parse directory record at block offset %d: %w", offset, err)
		}
		records = append(records, record)
		offset += record.Size
	}

	if len(records) > 0 {
		log.Trace("decoded directory block", "records", len(records))
	}
	return records, nil
}
