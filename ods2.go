// Package ods2 provides read-only access to Files-11 ODS-2 volume images,
// the native on-disk structure of VAX/VMS and OpenVMS disks. The image is
// loaded fully into memory; decoded volumes expose path resolution,
// block-aligned reads and directory listings, and can be served through a
// user-space filesystem mount.
package ods2

import (
	"fmt"
	"os"

	"github.com/bgrewell/ods2-kit/pkg/files11"
	"github.com/bgrewell/ods2-kit/pkg/option"
)

// Open reads the disk image at location into memory and parses it as an
// ODS-2 volume.
func Open(location string, opts ...option.OpenOption) (*files11.Volume, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume image %s: %w", location, err)
	}
	return files11.Open(data, opts...)
}

// OpenImage parses an ODS-2 volume from an in-memory image.
func OpenImage(data []byte, opts ...option.OpenOption) (*files11.Volume, error) {
	return files11.Open(data, opts...)
}
