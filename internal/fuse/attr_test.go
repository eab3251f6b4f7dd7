package fuse

import (
	"testing"
	"time"

	"github.com/bgrewell/ods2-kit/pkg/files11/header"
	"github.com/bgrewell/ods2-kit/pkg/files11/retrieval"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/require"
)

func TestFillAttr(t *testing.T) {
	created := time.Date(1990, time.May, 1, 6, 0, 0, 0, time.UTC)
	revised := time.Date(1991, time.June, 2, 7, 30, 0, 0, time.UTC)

	t.Run("regular file", func(t *testing.T) {
		f := &header.FileHeader{
			Map:       &retrieval.Map{TotalBlocks: 3},
			Size:      3 * 512,
			CreatedAt: created,
			RevisedAt: revised,
		}

		var out fuse.Attr
		fillAttr(f, 1000, 1000, &out)

		require.Equal(t, uint64(3*512), out.Size)
		require.Equal(t, uint32(fuse.S_IFREG|0o444), out.Mode)
		require.Equal(t, uint32(0), out.Nlink)
		require.Equal(t, uint32(1000), out.Uid)
		require.Equal(t, uint32(1000), out.Gid)
		require.Equal(t, uint64(revised.Unix()), out.Mtime)
		require.Equal(t, uint64(revised.Unix()), out.Atime)
		require.Equal(t, uint64(created.Unix()), out.Ctime)
	})

	t.Run("directory", func(t *testing.T) {
		f := &header.FileHeader{
			Characteristics: header.Characteristics(0x2000),
			Map:             &retrieval.Map{TotalBlocks: 1},
			Size:            666,
		}

		var out fuse.Attr
		fillAttr(f, 0, 0, &out)

		require.Equal(t, uint32(fuse.S_IFDIR|0o555), out.Mode)
		require.Equal(t, uint64(666), out.Size, "directory size must stay non-zero")
	})
}
