package fuse

import (
	"context"
	"errors"
	"syscall"

	"github.com/bgrewell/ods2-kit/pkg/files11"
	"github.com/bgrewell/ods2-kit/pkg/files11/header"
	"github.com/bgrewell/ods2-kit/pkg/logging"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// ensure File implements the fs.Node* interfaces it relies on
var _ fs.NodeGetattrer = (*File)(nil)
var _ fs.NodeOpener = (*File)(nil)
var _ fs.NodeReader = (*File)(nil)

// File is a regular-file node of the mounted volume.
type File struct {
	fs.Inode
	vol    *files11.Volume
	path   string
	file   *header.FileHeader
	logger *logging.Logger
	uid    uint32
	gid    uint32
}

// Getattr implements fs.NodeGetattrer.
func (f *File) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	fillAttr(f.file, f.uid, f.gid, &out.Attr)
	return 0
}

// Open implements fs.NodeOpener. The volume is read-only.
func (f *File) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&syscall.O_ACCMODE != syscall.O_RDONLY {
		return nil, 0, syscall.EACCES
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

// Read implements fs.NodeReader. The core rejects unaligned offsets; the
// kernel issues block-aligned reads, so EINVAL here means a host bypassed
// the page cache with an odd offset.
func (f *File) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := f.vol.Read(f.file, off, int64(len(dest)))
	if err != nil {
		if errors.Is(err, files11.ErrUnalignedRead) {
			return nil, syscall.EINVAL
		}
		f.logger.Error(err, "read failed", "path", f.path, "offset", off)
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(data), 0
}
