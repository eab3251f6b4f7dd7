package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bgrewell/ods2-kit"
	"github.com/bgrewell/ods2-kit/internal/fuse"
	"github.com/bgrewell/ods2-kit/pkg/logging"
	"github.com/bgrewell/ods2-kit/pkg/option"
	"github.com/bgrewell/usage"
	"github.com/go-logr/logr"
)

func main() {

	u := usage.NewUsage(
		usage.WithApplicationName("ods2mount"),
		usage.WithApplicationDescription("ods2mount exposes a Files-11 ODS-2 disk image (the native filesystem of VAX/VMS and OpenVMS) as a read-only filesystem. The image is parsed fully in memory and served through FUSE in the foreground until interrupted."),
	)

	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Enable debug logging", "", nil)
	trace := u.AddBooleanOption("t", "trace", false, "Enable trace logging", "", nil)
	debug := u.AddBooleanOption("d", "debug", false, "Enable FUSE protocol tracing", "", nil)
	showAll := u.AddBooleanOption("a", "all", false, "Show reserved system files in listings", "", nil)
	imagePath := u.AddArgument(1, "image-file", "Path to the ODS-2 disk image", "")
	mountPoint := u.AddArgument(2, "mount-point", "Directory to mount the volume on", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if imagePath == nil || *imagePath == "" || mountPoint == nil || *mountPoint == "" {
		u.PrintError(fmt.Errorf("both <image-file> and <mount-point> must be provided"))
		os.Exit(1)
	}

	level := logging.LEVEL_INFO
	if *verbose {
		level = logging.LEVEL_DEBUG
	}
	if *trace {
		level = logging.LEVEL_TRACE
	}
	log := logr.New(logging.NewSimpleLogSink(os.Stdout, level, true))

	vol, err := ods2.Open(*imagePath,
		option.WithLogger(log),
		option.WithHideReservedFiles(!*showAll),
	)
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}

	fmt.Printf("Volume Name: %s\n", vol.Label())
	fmt.Printf("Structure Name: %s\n", vol.StructureName())
	fmt.Printf("Owner Name: %s\n", vol.OwnerName())
	fmt.Printf("Format: %s\n", vol.Format())
	fmt.Printf("Disk has %d logical blocks, %d files\n", vol.BlockCount(), vol.FileCount())

	server, err := fuse.Mount(fuse.Config{
		Volume:     vol,
		MountPoint: *mountPoint,
		ImagePath:  *imagePath,
		Debug:      *debug,
		Logger:     logging.NewLogger(log),
	})
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		_ = server.Unmount()
	}()

	server.Wait()
}
