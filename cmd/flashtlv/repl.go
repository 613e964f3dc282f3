package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/Yanye0xFF/FlashTLV/pkg/flashdrv"
	"github.com/Yanye0xFF/FlashTLV/pkg/flashtlv"
)

// REPL is the interactive command loop over a single open image.
type REPL struct {
	eng   *flashtlv.Engine
	sim   *flashdrv.Sim
	image string
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flashtlv_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("flashtlv - image %s\n", r.image)
	fmt.Println("Type 'help' for available commands.")

	for {
		line, err := r.liner.Prompt("flashtlv> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nbye")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			r.saveHistory()
			return r.cmdSave()

		case "help", "?":
			r.printHelp()

		case "append":
			r.cmdAppend(args)

		case "query":
			r.cmdQuery(args)

		case "read":
			r.cmdRead(args)

		case "verify":
			r.cmdVerify(args)

		case "delete":
			r.cmdDelete(args)

		case "gc":
			r.cmdGC()

		case "stat":
			r.cmdStat()

		case "save":
			if err := r.cmdSave(); err != nil {
				fmt.Printf("error: %v\n", err)
			}

		default:
			fmt.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()
	return nil
}

func (r *REPL) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		r.liner.WriteHistory(f)
		f.Close()
	}
}

func (r *REPL) printHelp() {
	fmt.Println(`  append <tag-hex> <text>     Append/replace a value under tag
  query <tag-hex>             Look up a tag
  read <tag-hex>              Read and print a tag's value
  verify <tag-hex>            Recheck a tag's CRC-8
  delete <tag-hex>            Tombstone a tag
  gc                          Force a compaction pass
  stat                        Show live sector, version, dirty count
  save                        Persist the image to its backing file
  exit / quit / q             Exit (saves first)`)
}

func parseTag(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid tag %q: %w", s, err)
	}
	return uint16(v), nil
}

func (r *REPL) cmdAppend(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: append <tag-hex> <text>")
		return
	}
	tag, err := parseTag(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}

	value := strings.Join(args[1:], " ")
	if _, err := r.eng.Append(tag, []byte(value)); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("appended 0x%04X (%d bytes)\n", tag, len(value))
}

func (r *REPL) cmdQuery(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: query <tag-hex>")
		return
	}
	tag, err := parseTag(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}

	block, found, err := r.eng.Query(tag)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if !found {
		fmt.Println("not found")
		return
	}
	fmt.Printf("tag=0x%04X length=%d crc8=0x%02X offset=0x%X\n", block.Tag, block.Length, block.CRC8, block.DataOffset)
}

func (r *REPL) cmdRead(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: read <tag-hex>")
		return
	}
	tag, err := parseTag(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}

	block, found, err := r.eng.Query(tag)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if !found {
		fmt.Println("not found")
		return
	}

	data, err := r.eng.Read(block, 0, block.Length)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%q\n", string(data))
}

func (r *REPL) cmdVerify(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: verify <tag-hex>")
		return
	}
	tag, err := parseTag(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}

	block, found, err := r.eng.Query(tag)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if !found {
		fmt.Println("not found")
		return
	}

	ok, err := r.eng.Verify(block)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(ok)
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: delete <tag-hex>")
		return
	}
	tag, err := parseTag(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}

	deleted, err := r.eng.Delete(tag)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(deleted)
}

func (r *REPL) cmdGC() {
	free, err := r.eng.Compact()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("free bytes in new live sector: %d\n", free)
}

func (r *REPL) cmdStat() {
	stat, err := r.eng.Stat()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("live sector: 0x%X\n", stat.LiveSector)
	fmt.Printf("sector version: %d\n", stat.SectorVersion)
	fmt.Printf("dirty blocks: %d\n", stat.DirtyBlocks)
}

func (r *REPL) cmdSave() error {
	if err := r.sim.Save(r.image); err != nil {
		return err
	}
	fmt.Printf("saved image to %s\n", r.image)
	return nil
}
