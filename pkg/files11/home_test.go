package files11

import (
	"testing"

	"github.com/bgrewell/ods2-kit/internal/testvol"
	"github.com/bgrewell/ods2-kit/pkg/files11/cursor"
	"github.com/stretchr/testify/require"
)

func homeBlockImage(t *testing.T) []byte {
	t.Helper()
	return testvol.New().
		WithVolumeName("USERDISK").
		WithReservedFiles(9).
		AddDirectory(4, "000000.DIR;1", testvol.DirEntry("000000.DIR", 4)).
		Build()
}

func TestDecodeHomeBlock(t *testing.T) {
	image := homeBlockImage(t)

	h, err := decodeHomeBlock(cursor.New(image))
	require.NoError(t, err)

	require.Equal(t, uint32(1), h.HomeLBN)
	require.Equal(t, uint16(0x0201), h.StructureLevel)
	require.Equal(t, uint16(1), h.Cluster)
	require.Equal(t, uint32(2), h.IndexBitmapLBN)
	require.Equal(t, uint16(1), h.IndexBitmapSize)
	require.Equal(t, uint16(9), h.ReservedFiles)
	require.Equal(t, uint32(2000), h.MaxFiles)
	require.Equal(t, "USERDISK", h.VolumeName)
	require.Equal(t, "DECFILE11B", h.StructureName)
	require.Equal(t, "SYSTEM", h.OwnerName)
	require.Equal(t, "DECFILE11B", h.Format)
	require.Equal(t, uint32(1), h.SerialNumber)
	require.Equal(t, uint8(7), h.Window)
	require.Equal(t, uint8(16), h.LRULimit)
	require.Equal(t, uint16(5), h.Extend)
	require.NotZero(t, h.Checksum1)
	require.NotZero(t, h.Checksum2)
	require.False(t, h.CreatedAt.IsZero())
	require.Len(t, h.MinClass, 20)
	require.Len(t, h.MaxClass, 20)
}

func TestHomeBlockVerify(t *testing.T) {
	t.Run("valid image passes", func(t *testing.T) {
		image := homeBlockImage(t)
		c := cursor.New(image)
		h, err := decodeHomeBlock(c)
		require.NoError(t, err)
		require.NoError(t, h.verify(c, true))
	})

	t.Run("checksum mismatch fails", func(t *testing.T) {
		image := homeBlockImage(t)
		image[512+100]++
		c := cursor.New(image)
		h, err := decodeHomeBlock(c)
		require.NoError(t, err)
		require.ErrorIs(t, h.verify(c, true), ErrInvalidImage)
		require.NoError(t, h.verify(c, false), "mismatch ignored when validation is off")
	})

	t.Run("truncated image fails to decode", func(t *testing.T) {
		_, err := decodeHomeBlock(cursor.New(make([]byte, 700)))
		require.ErrorIs(t, err, ErrInvalidImage)
	})
}
