package header

import (
	"testing"
	"time"

	"github.com/bgrewell/ods2-kit/internal/testvol"
	"github.com/bgrewell/ods2-kit/pkg/files11/cursor"
	"github.com/bgrewell/ods2-kit/pkg/files11/retrieval"
	"github.com/bgrewell/ods2-kit/pkg/logging"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	log := logging.DefaultLogger()
	created := time.Date(1993, time.March, 1, 8, 30, 0, 0, time.UTC)

	t.Run("regular file", func(t *testing.T) {
		block := testvol.EncodeHeader(0x021234, 7, "PAYROLL.DAT;3", false,
			[][2]uint32{{100, 3}, {200, 2}}, created)

		f, err := Decode(cursor.New(block), 0, log)
		require.NoError(t, err)

		require.Equal(t, uint32(0x021234), f.ID.FileNumber)
		require.Equal(t, uint16(7), f.ID.SequenceNumber)
		require.Equal(t, "PAYROLL.DAT", f.Name, "version suffix is stripped")
		require.False(t, f.IsDirectory())
		require.Equal(t, created, f.CreatedAt)
		require.Equal(t, created, f.RevisedAt)
		require.True(t, f.ExpiresAt.IsZero())

		require.Equal(t, []retrieval.Extent{{LBN: 100, BlockCount: 3}, {LBN: 200, BlockCount: 2}}, f.Map.Extents)
		require.Equal(t, uint32(5), f.Map.TotalBlocks)
		require.Equal(t, int64(5*512), f.Size)
	})

	t.Run("directory bit", func(t *testing.T) {
		block := testvol.EncodeHeader(4, 4, "000000.DIR;1", true, [][2]uint32{{50, 1}}, created)

		f, err := Decode(cursor.New(block), 0, log)
		require.NoError(t, err)
		require.True(t, f.IsDirectory())
		require.Equal(t, "000000.DIR", f.Name)
	})

	t.Run("absent areas", func(t *testing.T) {
		block := testvol.EncodeHeaderWithoutAreas(9, 1)

		f, err := Decode(cursor.New(block), 0, log)
		require.NoError(t, err)
		require.Equal(t, "", f.Name)
		require.NotNil(t, f.Map)
		require.Empty(t, f.Map.Extents)
		require.Equal(t, int64(0), f.Size)
	})

	t.Run("size follows the extent sum", func(t *testing.T) {
		block := testvol.EncodeHeader(10, 1, "BIG.BIN;1", false,
			[][2]uint32{{100, 1}, {300, 4}, {900, 2}}, created)

		f, err := Decode(cursor.New(block), 0, log)
		require.NoError(t, err)
		require.Equal(t, uint32(7), f.Map.TotalBlocks)
		require.Equal(t, int64(7*512), f.Size)
	})

	t.Run("truncated header fails", func(t *testing.T) {
		block := testvol.EncodeHeader(10, 1, "BIG.BIN;1", false, [][2]uint32{{100, 1}}, created)
		_, err := Decode(cursor.New(block[:40]), 0, log)
		require.Error(t, err)
	})
}

func TestRecordByName(t *testing.T) {
	f := &FileHeader{}
	require.Nil(t, f.RecordByName("MISSING.TXT"))
}

func TestCharacteristics(t *testing.T) {
	require.True(t, Characteristics(0x2000).IsDirectory())
	require.True(t, Characteristics(0xFFFF).IsDirectory())
	require.False(t, Characteristics(0x1FFF).IsDirectory())
}
