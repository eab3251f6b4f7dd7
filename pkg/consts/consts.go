package consts

const (
	// Files-11 logical block size. Everything on an ODS-2 volume is addressed
	// in 512-byte blocks.
	ODS2_BLOCK_SIZE = 512

	// LBN of the Home Block.
	ODS2_HOME_BLOCK_LBN = 1

	// ODS-2 structure level (high byte of W_STRUCLEV; the low byte carries
	// the structure version).
	ODS2_STRUCTURE_LEVEL = 2

	// Reserved file numbers with fixed meaning on every ODS-2 volume.
	ODS2_INDEXF_FILE_NUMBER = 1
	ODS2_BITMAP_FILE_NUMBER = 2
	ODS2_BADBLK_FILE_NUMBER = 3
	ODS2_MFD_FILE_NUMBER    = 4

	// Name of the Master File Directory as recorded in its own file header.
	ODS2_MFD_NAME = "000000.DIR"

	// Value of a header area offset byte meaning the area is not present.
	ODS2_AREA_ABSENT = 0xFF

	// Upper bound on directory records within a single block. Records never
	// span a block boundary.
	ODS2_MAX_RECORDS_PER_BLOCK = 62

	// Size reported for the MFD. The MFD lists itself as a directory entry,
	// so its size is pinned to a small non-zero value to keep the mount-point
	// self-reference benign to POSIX tools.
	ODS2_MFD_SIZE_SENTINEL = 666

	// Number of leading index-file extents that cover the boot block, home
	// blocks and alternate home/index blocks rather than file headers.
	ODS2_INDEXF_METADATA_EXTENTS = 3
)
