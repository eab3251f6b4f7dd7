package fuse

import (
	"context"
	"errors"
	"path"
	"syscall"

	"github.com/bgrewell/ods2-kit/pkg/files11"
	"github.com/bgrewell/ods2-kit/pkg/logging"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// ensure Dir implements the fs.Node* interfaces it relies on
var _ fs.NodeGetattrer = (*Dir)(nil)
var _ fs.NodeLookuper = (*Dir)(nil)
var _ fs.NodeReaddirer = (*Dir)(nil)
var _ fs.NodeReadlinker = (*Dir)(nil)

// Dir is a directory node of the mounted volume. The path is relative to the
// volume root; the empty path is the MFD.
type Dir struct {
	fs.Inode
	vol    *files11.Volume
	path   string
	logger *logging.Logger
	uid    uint32
	gid    uint32
}

// NewRootDir creates the root directory node for a mount.
func NewRootDir(vol *files11.Volume, logger *logging.Logger, uid, gid uint32) *Dir {
	return &Dir{vol: vol, path: "", logger: logger, uid: uid, gid: gid}
}

// Getattr implements fs.NodeGetattrer.
func (d *Dir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	f, err := d.vol.FileByPath(d.path)
	if err != nil {
		return syscall.ENOENT
	}
	fillAttr(f, d.uid, d.gid, &out.Attr)
	return 0
}

// Lookup implements fs.NodeLookuper.
func (d *Dir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	fullPath := path.Join(d.path, name)

	f, err := d.vol.FileByPath(fullPath)
	if err != nil {
		if errors.Is(err, files11.ErrFileNotFound) {
			return nil, syscall.ENOENT
		}
		d.logger.Error(err, "lookup failed", "path", fullPath)
		return nil, syscall.EIO
	}

	fillAttr(f, d.uid, d.gid, &out.Attr)

	if f.IsDirectory() {
		node := &Dir{vol: d.vol, path: fullPath, logger: d.logger, uid: d.uid, gid: d.gid}
		return d.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFDIR}), 0
	}

	node := &File{vol: d.vol, path: fullPath, file: f, logger: d.logger, uid: d.uid, gid: d.gid}
	return d.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFREG}), 0
}

// Readdir implements fs.NodeReaddirer.
func (d *Dir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := d.vol.ReadDir(d.path)
	if err != nil {
		if errors.Is(err, files11.ErrFileNotFound) {
			return nil, syscall.ENOENT
		}
		d.logger.Error(err, "readdir failed", "path", d.path)
		return nil, syscall.EIO
	}

	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		mode := uint32(fuse.S_IFREG)
		if name == "." || name == ".." {
			mode = fuse.S_IFDIR
		} else if f, err := d.vol.FileByPath(path.Join(d.path, name)); err == nil && f.IsDirectory() {
			mode = fuse.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: mode})
	}

	return fs.NewListDirStream(entries), 0
}

// Readlink implements fs.NodeReadlinker. Only the MFD's self-reference has a
// target: the mount point itself.
func (d *Dir) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	return []byte(d.vol.ReadLink("/" + d.path)), 0
}
