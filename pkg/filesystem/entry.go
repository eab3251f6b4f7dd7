package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bgrewell/ods2-kit/pkg/files11/fid"
)

// ReadFunc reads a byte range of the entry's file from the volume image.
type ReadFunc func(offset, length int64) ([]byte, error)

// NewEntry initializes an Entry with a read function bound to its header
func NewEntry(name, fullPath string, isDir bool, size int64, id fid.FileID, createTime, modTime time.Time, read ReadFunc) *Entry {
	return &Entry{
		Name:       name,
		FullPath:   fullPath,
		IsDir:      isDir,
		Size:       size,
		ID:         id,
		CreateTime: createTime,
		ModTime:    modTime,
		read:       read,
	}
}

// Entry is one file or directory of the volume, flattened out of the
// directory graph for listing and extraction.
type Entry struct {
	// The name of the file or directory, without version
	Name string `json:"name"`
	// Full path, e.g. "SYSEXE.DIR/AUTHORIZE.EXE"
	FullPath string `json:"full_path"`
	// IsDir, true if it's a directory
	IsDir bool `json:"is_dir"`
	// Size of the file in bytes, 0 if it's a directory
	Size int64 `json:"size"`
	// ID is the file's File ID on the volume
	ID fid.FileID `json:"id"`
	// CreateTime
	CreateTime time.Time `json:"create_time"`
	// ModTime
	ModTime time.Time `json:"mod_time"`
	// read pulls file contents out of the volume image
	read ReadFunc
}

// Bytes returns the full contents of the entry's file.
func (e *Entry) Bytes() ([]byte, error) {
	if e.IsDir {
		return nil, fmt.Errorf("entry %s is a directory", e.FullPath)
	}
	if e.read == nil {
		return nil, fmt.Errorf("entry %s has no reader", e.FullPath)
	}
	return e.read(0, e.Size)
}

// ExtractToDisk writes the entry under outputDir, preserving its relative
// path and timestamps.
func (e *Entry) ExtractToDisk(outputDir string) error {
	outputPath := filepath.Join(outputDir, filepath.FromSlash(e.FullPath))

	if e.IsDir {
		return os.MkdirAll(outputPath, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directories for %s: %w", outputPath, err)
	}

	data, err := e.Bytes()
	if err != nil {
		return fmt.Errorf("failed to read %s from the volume: %w", e.FullPath, err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	if !e.ModTime.IsZero() {
		if err := os.Chtimes(outputPath, e.ModTime, e.ModTime); err != nil {
			return fmt.Errorf("failed to set timestamps on %s: %w", outputPath, err)
		}
	}

	return nil
}
