package files11

import (
	"bytes"
	"testing"
	"time"

	"github.com/bgrewell/ods2-kit/internal/testvol"
	"github.com/bgrewell/ods2-kit/pkg/consts"
	"github.com/bgrewell/ods2-kit/pkg/option"
	"github.com/stretchr/testify/require"
)

// systemVolume builds the image used by most tests: reserved files 1..15,
// a user file, a subdirectory with a nested file, and the MFD listing the
// classic system files plus the user entries.
func systemVolume(t *testing.T) ([]byte, []byte, []byte) {
	t.Helper()

	loginContent := bytes.Repeat([]byte("$ SET DEFAULT SYS$LOGIN:\n"), 30) // > 1 block
	notesContent := []byte("meeting notes\n")

	image := testvol.New().
		WithVolumeName("SYSTEM").
		WithReservedFiles(15).
		AddDirectory(4, "000000.DIR;1",
			testvol.DirEntry("000000.DIR", 4),
			testvol.DirEntry("BADBLK.SYS", 3),
			testvol.DirEntry("BITMAP.SYS", 2),
			testvol.DirEntry("CORIMG.SYS", 5),
			testvol.DirEntry("INDEXF.SYS", 1),
			testvol.DirEntry("LOGIN.COM", 16),
			testvol.DirEntry("USERS.DIR", 17),
		).
		AddFile(16, "LOGIN.COM;1", loginContent).
		AddDirectory(17, "USERS.DIR;1",
			testvol.DirEntry("NOTES.TXT", 18),
		).
		AddFile(18, "NOTES.TXT;1", notesContent).
		Build()

	return image, loginContent, notesContent
}

func TestOpenBootstrap(t *testing.T) {
	image, _, _ := systemVolume(t)

	v, err := Open(image)
	require.NoError(t, err)

	t.Run("home block", func(t *testing.T) {
		require.Equal(t, "SYSTEM", v.Label())
		require.Equal(t, "DECFILE11B", v.StructureName())
		require.Equal(t, "SYSTEM", v.OwnerName())
		require.Equal(t, "DECFILE11B", v.Format())
		require.Equal(t, uint16(15), v.ReservedFiles())
		require.Equal(t, uint32(2000), v.MaxFiles())
		require.Equal(t, uint32(1), v.SerialNumber())
	})

	t.Run("index file self-description", func(t *testing.T) {
		idx := v.IndexFile()
		require.Equal(t, uint32(consts.ODS2_INDEXF_FILE_NUMBER), idx.ID.FileNumber)
		require.Equal(t, "INDEXF.SYS", idx.Name)
		// The INDEXF.SYS header is also indexed under its own file number.
		require.Equal(t, "INDEXF.SYS", v.FileByNumber(1).Name)
	})

	t.Run("mfd", func(t *testing.T) {
		mfd := v.MFD()
		require.NotNil(t, mfd)
		require.True(t, mfd.IsDirectory())
		require.Equal(t, uint32(consts.ODS2_MFD_FILE_NUMBER), mfd.ID.FileNumber)
		// The MFD's table slot holds the MFD itself.
		require.Same(t, mfd, v.FileByNumber(mfd.ID.FileNumber))
		// Size is pinned to the sentinel, never zero.
		require.Equal(t, int64(consts.ODS2_MFD_SIZE_SENTINEL), mfd.Size)
	})

	t.Run("every directory entry resolves to its own header", func(t *testing.T) {
		for _, record := range v.MFD().Records {
			f := v.FileByNumber(record.Entries[0].ID.FileNumber)
			require.NotNil(t, f, "record %s", record.Name)
			require.Equal(t, record.Entries[0].ID.FileNumber, f.ID.FileNumber)
		}
	})

	t.Run("mfd self-reference", func(t *testing.T) {
		record := v.MFD().RecordByName(consts.ODS2_MFD_NAME)
		require.NotNil(t, record)
		require.Same(t, v.MFD(), v.FileByNumber(record.Entries[0].ID.FileNumber))
	})
}

func TestOpenRejectsBadImages(t *testing.T) {
	t.Run("too small", func(t *testing.T) {
		_, err := Open(make([]byte, 100))
		require.ErrorIs(t, err, ErrInvalidImage)
	})

	t.Run("corrupted checksum", func(t *testing.T) {
		image, _, _ := systemVolume(t)
		image[512+472]++ // flip a byte of T_VOLNAME without fixing the checksum
		_, err := Open(image)
		require.ErrorIs(t, err, ErrInvalidImage)
	})

	t.Run("checksum validation can be disabled", func(t *testing.T) {
		image, _, _ := systemVolume(t)
		image[512+472] = 'X'
		_, err := Open(image, option.WithValidateChecksums(false))
		require.NoError(t, err)
	})

	t.Run("wrong structure level", func(t *testing.T) {
		image, _, _ := systemVolume(t)
		image[512+13] = 0x01 // ODS-1
		_, err := Open(image, option.WithValidateChecksums(false))
		require.ErrorIs(t, err, ErrInvalidImage)
	})
}

func TestFileByPath(t *testing.T) {
	image, _, _ := systemVolume(t)
	v, err := Open(image)
	require.NoError(t, err)

	t.Run("root is the mfd", func(t *testing.T) {
		f, err := v.FileByPath("/")
		require.NoError(t, err)
		require.Same(t, v.MFD(), f)
	})

	t.Run("top level file", func(t *testing.T) {
		f, err := v.FileByPath("/LOGIN.COM")
		require.NoError(t, err)
		require.Equal(t, "LOGIN.COM", f.Name)
		require.False(t, f.IsDirectory())
	})

	t.Run("nested file", func(t *testing.T) {
		f, err := v.FileByPath("/USERS.DIR/NOTES.TXT")
		require.NoError(t, err)
		require.Equal(t, "NOTES.TXT", f.Name)
	})

	t.Run("trailing slash", func(t *testing.T) {
		f, err := v.FileByPath("/USERS.DIR/")
		require.NoError(t, err)
		require.True(t, f.IsDirectory())
	})

	t.Run("unknown component", func(t *testing.T) {
		_, err := v.FileByPath("/NO.SUCH")
		require.ErrorIs(t, err, ErrFileNotFound)

		_, err = v.FileByPath("/USERS.DIR/NO.SUCH")
		require.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("matching is case sensitive", func(t *testing.T) {
		_, err := v.FileByPath("/login.com")
		require.ErrorIs(t, err, ErrFileNotFound)
	})
}

func TestRead(t *testing.T) {
	image, loginContent, notesContent := systemVolume(t)
	v, err := Open(image)
	require.NoError(t, err)

	login, err := v.FileByPath("/LOGIN.COM")
	require.NoError(t, err)

	t.Run("full read returns block-padded contents", func(t *testing.T) {
		data, err := v.Read(login, 0, login.Size)
		require.NoError(t, err)
		require.Equal(t, login.Size, int64(len(data)))
		require.Equal(t, loginContent, data[:len(loginContent)])
		// Padding past the payload is zero.
		for _, b := range data[len(loginContent):] {
			require.Zero(t, b)
		}
	})

	t.Run("small file", func(t *testing.T) {
		notes, err := v.FileByPath("/USERS.DIR/NOTES.TXT")
		require.NoError(t, err)
		data, err := v.Read(notes, 0, notes.Size)
		require.NoError(t, err)
		require.Equal(t, notesContent, data[:len(notesContent)])
	})

	t.Run("tiled block reads equal one read", func(t *testing.T) {
		whole, err := v.Read(login, 0, login.Size)
		require.NoError(t, err)

		var tiled []byte
		for off := int64(0); off < login.Size; off += consts.ODS2_BLOCK_SIZE {
			part, err := v.Read(login, off, consts.ODS2_BLOCK_SIZE)
			require.NoError(t, err)
			tiled = append(tiled, part...)
		}
		require.Equal(t, whole, tiled)
	})

	t.Run("length is clamped to the file size", func(t *testing.T) {
		data, err := v.Read(login, 0, login.Size+4096)
		require.NoError(t, err)
		require.Equal(t, login.Size, int64(len(data)))
	})

	t.Run("read at the file size is empty", func(t *testing.T) {
		data, err := v.Read(login, login.Size, 512)
		require.NoError(t, err)
		require.Empty(t, data)
	})

	t.Run("unaligned offset is rejected", func(t *testing.T) {
		_, err := v.Read(login, 100, 512)
		require.ErrorIs(t, err, ErrUnalignedRead)
	})
}

func TestReadMultiExtent(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789abcdef"), 32*3) // 3 blocks
	image := testvol.New().
		AddDirectory(4, "000000.DIR;1",
			testvol.DirEntry("000000.DIR", 4),
			testvol.DirEntry("SPLIT.DAT", 16),
		).
		AddFileSplit(16, "SPLIT.DAT;1", content, 1).
		Build()

	v, err := Open(image)
	require.NoError(t, err)

	f, err := v.FileByPath("/SPLIT.DAT")
	require.NoError(t, err)
	require.Len(t, f.Map.Extents, 2, "map should carry two extents")
	require.Equal(t, uint32(3), f.Map.TotalBlocks)

	data, err := v.Read(f, 0, f.Size)
	require.NoError(t, err)
	require.Equal(t, content, data)

	// Reading the second extent alone crosses the gap correctly.
	tail, err := v.Read(f, consts.ODS2_BLOCK_SIZE, 2*consts.ODS2_BLOCK_SIZE)
	require.NoError(t, err)
	require.Equal(t, content[consts.ODS2_BLOCK_SIZE:], tail)
}

func TestReadDir(t *testing.T) {
	image, _, _ := systemVolume(t)
	v, err := Open(image)
	require.NoError(t, err)

	t.Run("root hides reserved files", func(t *testing.T) {
		names, err := v.ReadDir("/")
		require.NoError(t, err)
		require.Equal(t, []string{".", "..", "LOGIN.COM", "USERS.DIR"}, names)
		require.NotContains(t, names, "INDEXF.SYS")
		require.NotContains(t, names, "BITMAP.SYS")
		require.NotContains(t, names, "BADBLK.SYS")
		require.NotContains(t, names, "CORIMG.SYS")
		require.NotContains(t, names, "000000.DIR")
	})

	t.Run("subdirectory", func(t *testing.T) {
		names, err := v.ReadDir("/USERS.DIR")
		require.NoError(t, err)
		require.Equal(t, []string{".", "..", "NOTES.TXT"}, names)
	})

	t.Run("reserved files can be shown", func(t *testing.T) {
		vAll, err := Open(image, option.WithHideReservedFiles(false))
		require.NoError(t, err)
		names, err := vAll.ReadDir("/")
		require.NoError(t, err)
		require.Contains(t, names, "INDEXF.SYS")
		require.Contains(t, names, "000000.DIR")
	})

	t.Run("not a directory", func(t *testing.T) {
		_, err := v.ReadDir("/LOGIN.COM")
		require.ErrorIs(t, err, ErrNotDirectory)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := v.ReadDir("/NOWHERE.DIR")
		require.ErrorIs(t, err, ErrFileNotFound)
	})
}

func TestReadLink(t *testing.T) {
	image, _, _ := systemVolume(t)
	v, err := Open(image)
	require.NoError(t, err)

	v.SetMountPoint("/mnt/vax")
	require.Equal(t, "/mnt/vax", v.ReadLink("/000000.DIR"))
	require.Equal(t, "", v.ReadLink("/LOGIN.COM"))
	require.Equal(t, "", v.ReadLink("/"))
}

func TestVBNInvariants(t *testing.T) {
	image, _, _ := systemVolume(t)
	v, err := Open(image)
	require.NoError(t, err)

	login, err := v.FileByPath("/LOGIN.COM")
	require.NoError(t, err)

	var sum uint32
	for _, ext := range login.Map.Extents {
		sum += ext.BlockCount
	}
	require.Equal(t, login.Map.TotalBlocks, sum)
	require.Equal(t, int64(login.Map.TotalBlocks)*consts.ODS2_BLOCK_SIZE, login.Size)

	for vbn := uint32(1); vbn <= login.Map.TotalBlocks; vbn++ {
		_, ok := login.Map.LBNForVBN(vbn)
		require.True(t, ok, "vbn %d must be mapped", vbn)
	}
}

func TestEntries(t *testing.T) {
	image, _, notesContent := systemVolume(t)
	v, err := Open(image)
	require.NoError(t, err)

	entries := v.Entries()
	byPath := make(map[string]bool)
	for _, e := range entries {
		byPath[e.FullPath] = e.IsDir
	}

	require.Equal(t, map[string]bool{
		"LOGIN.COM":           false,
		"USERS.DIR":           true,
		"USERS.DIR/NOTES.TXT": false,
	}, byPath)

	for _, e := range entries {
		if e.FullPath != "USERS.DIR/NOTES.TXT" {
			continue
		}
		data, err := e.Bytes()
		require.NoError(t, err)
		require.Equal(t, notesContent, data[:len(notesContent)])
	}
}

func TestVolumeCreatedAt(t *testing.T) {
	created := time.Date(1988, time.November, 8, 9, 0, 0, 0, time.UTC)
	image := testvol.New().
		WithCreated(created).
		AddDirectory(4, "000000.DIR;1", testvol.DirEntry("000000.DIR", 4)).
		Build()

	v, err := Open(image)
	require.NoError(t, err)
	require.Equal(t, created, v.Home().CreatedAt)
	require.Equal(t, created, v.MFD().CreatedAt)
}
