// Package fuse adapts a decoded ODS-2 volume to a user-space filesystem
// mount. The adaptor is a thin forwarding layer: getattr, readdir, read and
// readlink all resolve through the volume's path resolver and block reader.
package fuse

import (
	"fmt"
	"path/filepath"

	"github.com/bgrewell/ods2-kit/pkg/files11"
	"github.com/bgrewell/ods2-kit/pkg/logging"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Config describes a mount.
type Config struct {
	// Volume is the parsed ODS-2 volume to expose.
	Volume *files11.Volume
	// MountPoint is the directory the volume is mounted on.
	MountPoint string
	// ImagePath is the underlying image file; the mounted tree inherits its
	// uid and gid.
	ImagePath string
	// Debug enables FUSE protocol tracing.
	Debug bool
	// Logger receives adaptor diagnostics.
	Logger *logging.Logger
}

// Mount serves the volume at the configured mount point and returns the
// running server. Callbacks run single-threaded; nothing in the volume is
// mutated after bootstrap, so the serial loop is purely a simplicity choice.
// The caller waits on the server and unmounts it.
func Mount(cfg Config) (*fuse.Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	mountPoint, err := filepath.Abs(cfg.MountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mount point %s: %w", cfg.MountPoint, err)
	}
	cfg.Volume.SetMountPoint(mountPoint)

	uid, gid := imageOwner(cfg.ImagePath)
	root := NewRootDir(cfg.Volume, logger, uid, gid)

	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:           "ods2",
			FsName:         cfg.ImagePath,
			Debug:          cfg.Debug,
			SingleThreaded: true,
			DisableXAttrs:  true,
		},
	}

	server, err := fs.Mount(mountPoint, root, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to mount %s: %w", mountPoint, err)
	}

	logger.Info("volume mounted", "mountpoint", mountPoint, "volume", cfg.Volume.Label())
	return server, nil
}
