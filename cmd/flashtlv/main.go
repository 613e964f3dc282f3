// flashtlv is a demo CLI for exercising pkg/flashtlv against a simulated
// NOR-flash image.
//
// Usage:
//
//	flashtlv [--image path] [--config path] [--major addr] [--minor addr] [--sector-size n]
//	flashtlv demo [--image path]
//
// With no subcommand, flashtlv opens (or creates) the image and drops
// into an interactive REPL. "demo" instead runs a fixed, scripted
// append/gc/read/delete sequence against a fresh image and exits,
// mirroring the original reference firmware's self-test main().
//
// REPL commands:
//
//	append <tag-hex> <text>     Append/replace a UTF-8 value under tag
//	query <tag-hex>             Look up a tag, printing its block descriptor
//	read <tag-hex>              Read and print a tag's full value
//	verify <tag-hex>            Recompute and check a tag's CRC-8
//	delete <tag-hex>            Tombstone a tag
//	gc                          Force a compaction pass
//	stat                        Print live sector, version, and dirty count
//	save                        Persist the image to its backing file
//	help                        Show this help
//	exit / quit / q             Exit (saving first)
package main

import (
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/Yanye0xFF/FlashTLV/pkg/flashdrv"
	"github.com/Yanye0xFF/FlashTLV/pkg/flashtlv"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	demoMode := false
	if len(args) > 0 && args[0] == "demo" {
		demoMode = true
		args = args[1:]
	}

	flagSet := flag.NewFlagSet("flashtlv", flag.ContinueOnError)
	image := flagSet.String("image", "flashtlv.img", "path to the backing flash image file")
	configPath := flagSet.String("config", "", "optional JSONC geometry config file")
	major := flagSet.Uint32("major", 0, "major sector base address (overrides --config when set)")
	minor := flagSet.Uint32("minor", 0x1000, "minor sector base address (overrides --config when set)")
	sectorSize := flagSet.Uint32("sector-size", 4096, "sector size in bytes (overrides --config when set)")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := loadGeometryConfig(*configPath)
	if err != nil {
		return err
	}
	if !flagSet.Changed("major") {
		major = cfg.MajorAddr
	}
	if !flagSet.Changed("minor") {
		minor = cfg.MinorAddr
	}
	if !flagSet.Changed("sector-size") {
		sectorSize = cfg.SectorSize
	}
	if !flagSet.Changed("image") && cfg.Image != "" {
		*image = cfg.Image
	}

	geo := flashtlv.Geometry{MajorAddr: *major, MinorAddr: *minor, SectorSize: *sectorSize}

	if demoMode {
		return runDemo(*image, geo)
	}

	sim, err := openOrCreateImage(*image, geo)
	if err != nil {
		return err
	}

	eng, err := flashtlv.Init(sim, geo)
	if err != nil {
		return err
	}

	repl := &REPL{eng: eng, sim: sim, image: *image}
	return repl.Run()
}

// openOrCreateImage loads an existing image file, or creates a fresh
// one sized for exactly the two configured sectors if none exists yet.
func openOrCreateImage(path string, geo flashtlv.Geometry) (*flashdrv.Sim, error) {
	sim, err := flashdrv.Load(path)
	if err == nil {
		return sim, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	top := geo.MajorAddr
	if geo.MinorAddr > top {
		top = geo.MinorAddr
	}
	return flashdrv.NewSim(top + geo.SectorSize), nil
}
