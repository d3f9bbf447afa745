//go:build ignore

package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/opengrill/pitboss/grills"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: decode-frames <hex-frame> [<hex-frame>...]")
		fmt.Println("       decode-frames -f <capture-file>")
		fmt.Println("Example: decode-frames fe0b0101c800000000000000000000000000000101010001000000000100000000")
		fmt.Println("         decode-frames -f captures/status-push.txt")
		os.Exit(1)
	}

	var frames []string
	var err error
	if os.Args[1] == "-f" {
		if len(os.Args) < 3 {
			fmt.Println("Error: -f needs a file argument")
			os.Exit(1)
		}
		frames, err = readFrames(os.Args[2])
		if err != nil {
			fmt.Printf("Error reading capture file: %v\n", err)
			os.Exit(1)
		}
	} else {
		frames = os.Args[1:]
	}

	boards, err := distinctBoards()
	if err != nil {
		fmt.Printf("Error loading grill registry: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Pit Boss Frame Decoder ===\n")
	fmt.Printf("Frames: %d\n", len(frames))
	fmt.Printf("Control boards: ")
	for i, b := range boards {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Print(b.Name)
	}
	fmt.Printf("\n\n")

	for i, frame := range frames {
		decodeFrame(i+1, frame, boards)
	}
}

// readFrames loads one hex frame per line. Blank lines and lines starting
// with # are skipped, so annotated capture files work as-is.
func readFrames(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var frames []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		frames = append(frames, line)
	}
	return frames, scanner.Err()
}

// distinctBoards collects every control board referenced by the registry,
// sorted by name so runs are deterministic.
func distinctBoards() ([]*grills.ControlBoard, error) {
	models, err := grills.List("")
	if err != nil {
		return nil, err
	}
	seen := map[string]*grills.ControlBoard{}
	for _, g := range models {
		seen[g.ControlBoard.Name] = g.ControlBoard
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	boards := make([]*grills.ControlBoard, 0, len(names))
	for _, name := range names {
		boards = append(boards, seen[name])
	}
	return boards, nil
}

func decodeFrame(num int, frame string, boards []*grills.ControlBoard) {
	fmt.Printf("========================================\n")
	fmt.Printf("Frame #%d - %d hex chars\n", num, len(frame))
	fmt.Printf("========================================\n")

	matched := 0
	for _, b := range boards {
		if st := b.ParseStatus(frame); st != nil {
			matched++
			fmt.Printf("\n%s status:\n", b.Name)
			printState(st)
		}
		if st := b.ParseTemperatures(frame); st != nil {
			matched++
			fmt.Printf("\n%s temperatures:\n", b.Name)
			printState(st)
		}
	}
	if matched == 0 {
		fmt.Println("\n  ❌ No control board recognizes this frame.")
		fmt.Println("  Check the two-byte prefix and the frame length.")
	}
	fmt.Println()
}

func printState(st grills.State) {
	keys := make([]string, 0, len(st))
	width := 0
	for k := range st {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := st[k]
		if v == nil {
			fmt.Printf("  %-*s  -- (probe disconnected)\n", width, k)
			continue
		}
		fmt.Printf("  %-*s  %v\n", width, k, v)
	}
}
