package option

import (
	"github.com/bgrewell/ods2-kit/pkg/logging"
	"github.com/go-logr/logr"
)

// OpenOptions represents the options for opening an ODS-2 volume image
type OpenOptions struct {
	// ValidateChecksums controls whether the home block checksum is verified
	// before the volume is accepted.
	ValidateChecksums bool
	// HideReservedFiles controls whether directory listings omit entries
	// whose file number falls within the reserved range (INDEXF.SYS,
	// BITMAP.SYS and friends).
	HideReservedFiles bool
	// Logger receives decode diagnostics.
	Logger *logging.Logger
}

// OpenOption represents a function that modifies the OpenOptions
type OpenOption func(*OpenOptions)

// NewOpenOptions returns the default options with any overrides applied.
func NewOpenOptions(opts ...OpenOption) *OpenOptions {
	options := &OpenOptions{
		ValidateChecksums: true,
		HideReservedFiles: true,
		Logger:            logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithLogger sets the logger for the volume
func WithLogger(logger logr.Logger) OpenOption {
	return func(o *OpenOptions) {
		o.Logger = logging.NewLogger(logger)
	}
}

// WithValidateChecksums sets whether the home block checksum is verified on open
func WithValidateChecksums(enabled bool) OpenOption {
	return func(o *OpenOptions) {
		o.ValidateChecksums = enabled
	}
}

// WithHideReservedFiles sets whether reserved system files are hidden from
// directory listings
func WithHideReservedFiles(enabled bool) OpenOption {
	return func(o *OpenOptions) {
		o.HideReservedFiles = enabled
	}
}
