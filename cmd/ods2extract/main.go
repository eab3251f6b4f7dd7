package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bgrewell/ods2-kit"
	"github.com/bgrewell/ods2-kit/pkg/logging"
	"github.com/bgrewell/ods2-kit/pkg/option"
	"github.com/go-logr/logr"
	"github.com/theckman/yacspin"
	"golang.org/x/term"
)

func main() {
	// Logging level flags
	debug := flag.Bool("v", false, "Enable verbose (debug) logging")
	trace := flag.Bool("vv", false, "Enable trace logging")

	// Extraction options
	showAll := flag.Bool("all", false, "Extract reserved system files too")

	// Output directory
	outputDir := flag.String("o", "./extracted", "Output directory for extracted files")

	// Parse flags
	flag.Parse()

	// Ensure we have an image path
	if flag.NArg() < 1 {
		fmt.Println("Usage: ods2extract [options] <path-to-image>")
		fmt.Println("  -v               Enable verbose (debug) logging")
		fmt.Println("  -vv              Enable trace logging")
		fmt.Println("  -all             Extract reserved system files too")
		fmt.Println("  -o <directory>   Output directory (default './extracted')")
		os.Exit(1)
	}

	imagePath := flag.Arg(0)

	// Configure logging
	level := logging.LEVEL_INFO
	if *debug {
		level = logging.LEVEL_DEBUG
	}
	if *trace {
		level = logging.LEVEL_TRACE
	}
	log := logr.New(logging.NewSimpleLogSink(os.Stdout, level, true))

	vol, err := ods2.Open(imagePath,
		option.WithLogger(log),
		option.WithHideReservedFiles(!*showAll),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}

	// Spin only when attached to a terminal
	var spinner *yacspin.Spinner
	if term.IsTerminal(int(os.Stdout.Fd())) {
		spinner, err = yacspin.New(yacspin.Config{
			Frequency:       100 * time.Millisecond,
			CharSet:         yacspin.CharSets[14],
			Suffix:          " extracting",
			SuffixAutoColon: true,
			StopCharacter:   "✓",
			StopColors:      []string{"fgGreen"},
		})
		if err == nil {
			_ = spinner.Start()
		}
	}

	entries := vol.Entries()

	// Directories first so files always land in an existing tree
	extracted := 0
	for _, pass := range []bool{true, false} {
		for _, entry := range entries {
			if entry.IsDir != pass {
				continue
			}
			if spinner != nil {
				spinner.Message(entry.FullPath)
			}
			if err := entry.ExtractToDisk(*outputDir); err != nil {
				if spinner != nil {
					_ = spinner.StopFail()
				}
				fmt.Fprintf(os.Stderr, "Failed to extract %s: %v\n", entry.FullPath, err)
				os.Exit(1)
			}
			if !entry.IsDir {
				extracted++
			}
		}
	}

	if spinner != nil {
		_ = spinner.Stop()
	}

	fmt.Printf("Extracted %d files from volume %s to '%s'.\n", extracted, vol.Label(), *outputDir)
}
