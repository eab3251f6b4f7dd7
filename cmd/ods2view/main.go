package main

import (
	"fmt"
	"os"

	"github.com/bgrewell/ods2-kit"
	"github.com/bgrewell/ods2-kit/pkg/files11"
	"github.com/bgrewell/ods2-kit/pkg/logging"
	"github.com/bgrewell/ods2-kit/pkg/option"
	"github.com/bgrewell/usage"
	"github.com/go-logr/logr"
)

// DisplayVolumeInfo prints general information about the volume image.
func DisplayVolumeInfo(vol *files11.Volume, verbose bool) {
	home := vol.Home()

	fmt.Println("=== ODS-2 Volume Information ===")
	fmt.Printf("Volume Name: %s\n", vol.Label())
	fmt.Printf("Structure Name: %s\n", vol.StructureName())
	fmt.Printf("Owner Name: %s\n", vol.OwnerName())
	fmt.Printf("Format: %s\n", vol.Format())
	fmt.Printf("Serial Number: %d\n", vol.SerialNumber())
	fmt.Printf("Created: %s\n", home.CreatedAt)
	fmt.Printf("Logical Blocks: %d\n", vol.BlockCount())
	fmt.Printf("Maximum Files: %d\n", vol.MaxFiles())
	fmt.Printf("Reserved Files: %d\n", vol.ReservedFiles())
	fmt.Printf("Files In Use: %d\n", vol.FileCount())

	if verbose {
		fmt.Println("\n=== Verbose Information ===")
		fmt.Printf("Structure Level: %#04x\n", home.StructureLevel)
		fmt.Printf("Cluster Factor: %d\n", home.Cluster)
		fmt.Printf("Index Bitmap LBN: %d\n", home.IndexBitmapLBN)
		fmt.Printf("Index Bitmap Size: %d blocks\n", home.IndexBitmapSize)
		fmt.Printf("Volume Owner: %#x\n", home.VolumeOwner)
		fmt.Printf("Header Blocks: %d\n", vol.IndexFile().Map.TotalBlocks)
	}

	fmt.Println("================================")
}

// DisplayFileListing prints every entry reachable from the MFD, except the
// reserved system files and the MFD's own self-entry.
func DisplayFileListing(vol *files11.Volume) {
	entries := vol.Entries()

	fmt.Println("=== File Listing ===")
	var total int64
	for _, entry := range entries {
		if entry.IsDir {
			fmt.Printf("%-40s <DIR>\n", entry.FullPath)
			continue
		}
		fmt.Printf("%-40s %10d  %s\n", entry.FullPath, entry.Size, entry.ModTime.Format("02-Jan-2006 15:04"))
		total += entry.Size
	}
	fmt.Printf("Total: %d entries, %d bytes\n", len(entries), total)
	fmt.Println("====================")
}

func main() {

	u := usage.NewUsage(
		usage.WithApplicationName("ods2view"),
		usage.WithApplicationDescription("ods2view is a command-line tool for inspecting Files-11 ODS-2 disk images. It decodes the home block and index file, and lists the files and directories reachable from the Master File Directory."),
	)

	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Print verbose output", "", nil)
	list := u.AddBooleanOption("l", "list", false, "List files and directories", "", nil)
	debug := u.AddBooleanOption("d", "debug", false, "Enable debug logging", "", nil)
	path := u.AddArgument(1, "image-path", "Path to the ODS-2 disk image", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if path == nil || *path == "" {
		u.PrintError(fmt.Errorf("location of the disk image <image-path> must be provided"))
		os.Exit(1)
	}

	opts := []option.OpenOption{}
	if *debug {
		opts = append(opts, option.WithLogger(logr.New(logging.NewSimpleLogSink(os.Stdout, logging.LEVEL_DEBUG, true))))
	}

	vol, err := ods2.Open(*path, opts...)
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}

	DisplayVolumeInfo(vol, *verbose)

	if *list {
		DisplayFileListing(vol)
	}
}
