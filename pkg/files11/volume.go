package files11

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bgrewell/ods2-kit/pkg/consts"
	"github.com/bgrewell/ods2-kit/pkg/files11/cursor"
	"github.com/bgrewell/ods2-kit/pkg/files11/directory"
	"github.com/bgrewell/ods2-kit/pkg/files11/header"
	"github.com/bgrewell/ods2-kit/pkg/logging"
	"github.com/bgrewell/ods2-kit/pkg/option"
)

var (
	// ErrInvalidImage marks bootstrap failures: the buffer is not a usable
	// ODS-2 volume image.
	ErrInvalidImage = errors.New("not a valid ODS-2 volume image")
	// ErrFileNotFound is returned when path resolution finds no matching
	// directory record.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnalignedRead is returned for read offsets that are not a multiple
	// of the block size.
	ErrUnalignedRead = errors.New("read offset is not block aligned")
	// ErrNotDirectory is returned when a directory operation targets a
	// regular file.
	ErrNotDirectory = errors.New("not a directory")
)

// Volume is a read-only view of an ODS-2 volume image. It owns the image
// buffer; every decoded structure borrows from it. Apart from the mount point
// recorded by SetMountPoint, nothing is mutated after Open returns, so
// concurrent readers need no locking.
type Volume struct {
	disk       []byte
	cursor     *cursor.Cursor
	home       *HomeBlock
	indexFile  *header.FileHeader
	files      []*header.FileHeader
	mfd        *header.FileHeader
	mountPoint string
	options    *option.OpenOptions
	logger     *logging.Logger
}

// Open parses the volume image and builds the file table. The bootstrap
// decodes the home block, locates the INDEXF.SYS header immediately after
// the index-file bitmap, and walks the index file's header blocks until the
// first unused slot.
func Open(disk []byte, opts ...option.OpenOption) (*Volume, error) {
	options := option.NewOpenOptions(opts...)

	v := &Volume{
		disk:    disk,
		cursor:  cursor.New(disk),
		options: options,
		logger:  options.Logger,
	}

	if len(disk) < 2*consts.ODS2_BLOCK_SIZE {
		return nil, fmt.Errorf("%w: image of %d bytes cannot hold a home block", ErrInvalidImage, len(disk))
	}

	var err error
	if v.home, err = decodeHomeBlock(v.cursor); err != nil {
		return nil, err
	}
	if err = v.home.verify(v.cursor, options.ValidateChecksums); err != nil {
		return nil, err
	}

	v.logger.Info("home block decoded",
		"volume", v.home.VolumeName,
		"structure", v.home.StructureName,
		"owner", v.home.OwnerName,
		"format", v.home.Format)

	if err = v.ingestIndexFile(); err != nil {
		return nil, err
	}
	if err = v.scanFileHeaders(); err != nil {
		return nil, err
	}

	if v.mfd == nil {
		return nil, fmt.Errorf("%w: master file directory %s not found", ErrInvalidImage, consts.ODS2_MFD_NAME)
	}
	v.mfd.Size = consts.ODS2_MFD_SIZE_SENTINEL

	return v, nil
}

// ingestIndexFile decodes the INDEXF.SYS header, which sits at the LBN
// immediately after the index-file bitmap, and trims the leading extents
// that cover the boot and home blocks rather than file headers.
func (v *Volume) ingestIndexFile() error {
	lbn := int64(v.home.IndexBitmapLBN) + int64(v.home.IndexBitmapSize)

	indexFile, err := header.Decode(v.cursor, lbn*consts.ODS2_BLOCK_SIZE, v.logger)
	if err != nil {
		return fmt.Errorf("%w: failed to decode INDEXF.SYS header at LBN %d: %v", ErrInvalidImage, lbn, err)
	}

	indexFile.Map.TrimFront(consts.ODS2_INDEXF_METADATA_EXTENTS)
	indexFile.Size = int64(indexFile.Map.TotalBlocks) * consts.ODS2_BLOCK_SIZE

	v.indexFile = indexFile
	v.logger.Debug("index file ingested",
		"lbn", lbn,
		"header_blocks", indexFile.Map.TotalBlocks,
		"extents", len(indexFile.Map.Extents))
	return nil
}

// scanFileHeaders walks the index file's header blocks and fills the dense
// file table, indexed by file number - 1. Scanning stops at the first unused
// header slot.
func (v *Volume) scanFileHeaders() error {
	total := v.indexFile.Map.TotalBlocks
	v.files = make([]*header.FileHeader, total)

	bitmapBlocks := uint32(v.home.IndexBitmapSize)
	count := 0

	for vbn := uint32(1); vbn <= total; vbn++ {
		lbn, ok := v.indexFile.Map.LBNForVBN(bitmapBlocks + vbn)
		if !ok {
			v.logger.Debug("index file VBN not mapped, stopping header scan", "vbn", bitmapBlocks+vbn)
			break
		}
		offset := int64(lbn) * consts.ODS2_BLOCK_SIZE

		first, err := v.cursor.Uint8(offset)
		if err != nil {
			return fmt.Errorf("%w: header block at LBN %d out of range: %v", ErrInvalidImage, lbn, err)
		}
		if first == 0 {
			break
		}

		f, err := header.Decode(v.cursor, offset, v.logger)
		if err != nil {
			v.logger.Error(err, "skipping undecodable file header", "lbn", lbn)
			continue
		}
		if f.ID.FileNumber == 0 || f.ID.FileNumber > total {
			v.logger.Debug("file header with out-of-table file number", "id", f.ID)
			continue
		}

		if f.IsDirectory() {
			if f.Records, err = v.readDirectoryRecords(f); err != nil {
				v.logger.Error(err, "failed to decode directory records", "file", f.Name)
			}
		}

		v.files[f.ID.FileNumber-1] = f
		if f.Name == consts.ODS2_MFD_NAME {
			v.mfd = f
		}
		count++
	}

	v.logger.Info("file headers scanned", "files", count)
	return nil
}

// readDirectoryRecords decodes every directory block of f, VBN by VBN.
func (v *Volume) readDirectoryRecords(f *header.FileHeader) ([]*directory.Record, error) {
	var records []*directory.Record

	for vbn := uint32(1); vbn <= f.Map.TotalBlocks; vbn++ {
		lbn, ok := f.Map.LBNForVBN(vbn)
		if !ok {
			v.logger.Debug("directory VBN not mapped", "file", f.Name, "vbn", vbn)
			continue
		}
		block, err := v.cursor.Bytes(int64(lbn)*consts.ODS2_BLOCK_SIZE, consts.ODS2_BLOCK_SIZE)
		if err != nil {
			return records, err
		}

		recs, err := directory.DecodeBlock(block, v.logger)
		if err != nil {
			return records, err
		}
		records = append(records, recs...)
	}

	return records, nil
}

// FileByPath resolves a POSIX-style path to its file header, starting at the
// MFD and following the latest-version entry of each matching record.
func (v *Volume) FileByPath(path string) (*header.FileHeader, error) {
	trimmed := strings.Trim(path, "/")

	file := v.mfd
	if trimmed == "" {
		return file, nil
	}

	for _, component := range strings.Split(trimmed, "/") {
		record := file.RecordByName(component)
		if record == nil || len(record.Entries) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		next := v.FileByNumber(record.Entries[0].ID.FileNumber)
		if next == nil {
			return nil, fmt.Errorf("%w: %s points at missing header %s", ErrFileNotFound, path, record.Entries[0].ID)
		}
		file = next
	}

	return file, nil
}

// FileByNumber returns the header stored for the given file number, or nil.
func (v *Volume) FileByNumber(number uint32) *header.FileHeader {
	if number == 0 || int(number) > len(v.files) {
		return nil
	}
	return v.files[number-1]
}

// Read returns up to length bytes of f starting at offset. The offset must
// be block aligned; the length is clamped to the file size. Virtual blocks
// without a mapping read as zeroes.
func (v *Volume) Read(f *header.FileHeader, offset, length int64) ([]byte, error) {
	if offset%consts.ODS2_BLOCK_SIZE != 0 {
		v.logger.Info("rejecting unaligned read", "file", f.Name, "offset", offset)
		return nil, fmt.Errorf("%w: offset %d", ErrUnalignedRead, offset)
	}

	end := offset + length
	if end > f.Size {
		end = f.Size
	}
	if offset >= end {
		return []byte{}, nil
	}

	data := make([]byte, 0, end-offset)
	for off := offset; off < end; off += consts.ODS2_BLOCK_SIZE {
		n := int64(consts.ODS2_BLOCK_SIZE)
		if end-off < n {
			n = end - off
		}

		vbn := uint32(off/consts.ODS2_BLOCK_SIZE) + 1
		lbn, ok := f.Map.LBNForVBN(vbn)
		if !ok {
			v.logger.Debug("virtual block not mapped, reading as hole", "file", f.Name, "vbn", vbn)
			data = append(data, make([]byte, n)...)
			continue
		}

		block, err := v.cursor.Bytes(int64(lbn)*consts.ODS2_BLOCK_SIZE, n)
		if err != nil {
			v.logger.Error(err, "mapped block outside the image, reading as hole", "file", f.Name, "lbn", lbn)
			data = append(data, make([]byte, n)...)
			continue
		}
		data = append(data, block...)
	}

	return data, nil
}

// ReadDir lists the directory at path: ".", "..", then every record whose
// latest entry is outside the reserved file range (when hiding is enabled).
func (v *Volume) ReadDir(path string) ([]string, error) {
	f, err := v.FileByPath(path)
	if err != nil {
		return nil, err
	}
	if !f.IsDirectory() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}

	names := []string{".", ".."}
	for _, record := range f.Records {
		if len(record.Entries) == 0 {
			continue
		}
		number := record.Entries[0].ID.FileNumber
		if v.options.HideReservedFiles && number <= uint32(v.home.ReservedFiles) {
			v.logger.Trace("hiding reserved file", "name", record.Name, "number", number)
			continue
		}
		names = append(names, record.Name)
	}

	return names, nil
}

// ReadLink reports the symlink target of path. Only the MFD's self-reference
// resolves: it points back at the mount point so that listing the root does
// not recurse through 000000.DIR. Every other path yields "".
func (v *Volume) ReadLink(path string) string {
	if strings.Trim(path, "/") == consts.ODS2_MFD_NAME {
		return v.mountPoint
	}
	return ""
}

// SetMountPoint records where the volume is mounted; ReadLink reports it for
// the MFD self-reference.
func (v *Volume) SetMountPoint(mountPoint string) {
	v.mountPoint = mountPoint
}

// Home returns the decoded home block.
func (v *Volume) Home() *HomeBlock {
	return v.home
}

// MFD returns the master file directory header.
func (v *Volume) MFD() *header.FileHeader {
	return v.mfd
}

// IndexFile returns the INDEXF.SYS header with its metadata extents trimmed.
func (v *Volume) IndexFile() *header.FileHeader {
	return v.indexFile
}

// Label returns the volume label from the home block.
func (v *Volume) Label() string {
	return v.home.VolumeName
}

// StructureName returns the structure name from the home block.
func (v *Volume) StructureName() string {
	return v.home.StructureName
}

// OwnerName returns the owner name from the home block.
func (v *Volume) OwnerName() string {
	return v.home.OwnerName
}

// Format returns the volume format string from the home block.
func (v *Volume) Format() string {
	return v.home.Format
}

// ReservedFiles returns the reserved-file count from the home block.
func (v *Volume) ReservedFiles() uint16 {
	return v.home.ReservedFiles
}

// MaxFiles returns the volume's maximum file count from the home block.
func (v *Volume) MaxFiles() uint32 {
	return v.home.MaxFiles
}

// SerialNumber returns the volume serial number from the home block.
func (v *Volume) SerialNumber() uint32 {
	return v.home.SerialNumber
}

// CreatedAt returns the volume creation time from the home block.
func (v *Volume) CreatedAt() time.Time {
	return v.home.CreatedAt
}

// BlockCount returns the number of logical blocks in the image.
func (v *Volume) BlockCount() int64 {
	return int64(len(v.disk)) / consts.ODS2_BLOCK_SIZE
}

// FileCount returns the number of headers in the file table.
func (v *Volume) FileCount() int {
	count := 0
	for _, f := range v.files {
		if f != nil {
			count++
		}
	}
	return count
}
