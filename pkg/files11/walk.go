package files11

import (
	"github.com/bgrewell/ods2-kit/pkg/files11/header"
	"github.com/bgrewell/ods2-kit/pkg/filesystem"
)

// Entries flattens the directory graph into a list of filesystem entries,
// rooted at the MFD. Reserved system files are skipped when hiding is
// enabled, and the MFD's own self-reference is skipped (neither listed nor
// descended into); a visited set guards against any other cycle in the
// directory records.
func (v *Volume) Entries() []*filesystem.Entry {
	var entries []*filesystem.Entry
	visited := make(map[uint32]bool)

	var walk func(dir *header.FileHeader, parentPath string)
	walk = func(dir *header.FileHeader, parentPath string) {
		if visited[dir.ID.FileNumber] {
			return
		}
		visited[dir.ID.FileNumber] = true

		for _, record := range dir.Records {
			if len(record.Entries) == 0 {
				continue
			}
			number := record.Entries[0].ID.FileNumber
			if v.options.HideReservedFiles && number <= uint32(v.home.ReservedFiles) {
				continue
			}

			f := v.FileByNumber(number)
			if f == nil || f == v.mfd {
				continue
			}

			fullPath := record.Name
			if parentPath != "" {
				fullPath = parentPath + "/" + record.Name
			}

			size := f.Size
			if f.IsDirectory() {
				size = 0
			}

			file := f
			entries = append(entries, filesystem.NewEntry(
				record.Name,
				fullPath,
				f.IsDirectory(),
				size,
				f.ID,
				f.CreatedAt,
				f.RevisedAt,
				func(offset, length int64) ([]byte, error) {
					return v.Read(file, offset, length)
				},
			))

			if f.IsDirectory() {
				walk(f, fullPath)
			}
		}
	}

	walk(v.mfd, "")
	return entries
}
