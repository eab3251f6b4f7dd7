package fuse

import (
	"os"
	"syscall"

	"github.com/bgrewell/ods2-kit/pkg/files11/header"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// fillAttr translates a file header into FUSE attributes. Everything on the
// volume is read-only: directories report 0555, files 0444, and the link
// count is pinned to zero.
func fillAttr(f *header.FileHeader, uid, gid uint32, out *fuse.Attr) {
	out.Size = uint64(f.Size)
	out.Mode = fuse.S_IFREG | 0o444
	if f.IsDirectory() {
		out.Mode = fuse.S_IFDIR | 0o555
	}
	out.Nlink = 0
	out.Uid = uid
	out.Gid = gid

	revised := f.RevisedAt
	created := f.CreatedAt
	out.SetTimes(&revised, &revised, &created)
}

// imageOwner returns the uid and gid of the underlying image file, which the
// mounted tree inherits. Falls back to the current process owner if the stat
// result carries no ownership information.
func imageOwner(imagePath string) (uint32, uint32) {
	info, err := os.Stat(imagePath)
	if err == nil {
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			return st.Uid, st.Gid
		}
	}
	return uint32(os.Getuid()), uint32(os.Getgid())
}
