// espressodbg is a minimal interactive register inspector: load a
// flat big-endian PowerPC image, then step a single core one
// instruction at a time, dumping or poking registers between steps.
// It is a thin external tool over the core, not part of its API
// surface (the core itself has no CLI).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	espresso "github.com/decaf-emu/espresso"
)

func main() {
	loadAddr := flag.Uint64("base", 0, "address the image is loaded at")
	entry := flag.Uint64("entry", 0, "initial cia")
	memSize := flag.Uint64("mem", 0x2000000, "guest address space size in bytes")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: espressodbg [options] image.bin\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	image, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "espressodbg: %v\n", err)
		os.Exit(1)
	}

	mem := espresso.NewFlatGuestMemory(uint32(*memSize))
	for i, b := range image {
		mem.WriteU8(uint32(*loadAddr)+uint32(i), b)
	}

	core := espresso.NewCore(mem)
	core.CIA = uint32(*entry)
	core.NIA = uint32(*entry)

	runLoop(core)
}

func runLoop(core *espresso.Core) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		runBatch(core, os.Stdin)
		return
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "espressodbg: raw mode: %v\n", err)
		os.Exit(1)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(os.Stdin, "(espressodbg) ")
	for {
		line, err := t.ReadLine()
		if err != nil {
			return
		}
		if !dispatchCommand(core, line, t) {
			return
		}
	}
}

// runBatch is used when stdin is not a terminal (pipes, test harnesses):
// commands come one per line with no raw-mode line editing.
func runBatch(core *espresso.Core, in *os.File) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !dispatchCommand(core, scanner.Text(), os.Stdout) {
			return
		}
	}
}

type lineWriter interface {
	Write(p []byte) (int, error)
}

// dispatchCommand executes one debugger command, writing any output
// to out, and returns false when the session should end.
func dispatchCommand(core *espresso.Core, line string, out lineWriter) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	switch fields[0] {
	case "step", "s":
		n := 1
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil {
				n = v
			}
		}
		for i := 0; i < n; i++ {
			if err := core.Step(); err != nil {
				fmt.Fprintf(out, "%v\n", err)
				return true
			}
		}
		fmt.Fprintf(out, "cia=%#08x nia=%#08x\n", core.CIA, core.NIA)

	case "regs", "r":
		for i := 0; i < 32; i += 4 {
			fmt.Fprintf(out, "r%-2d=%#08x r%-2d=%#08x r%-2d=%#08x r%-2d=%#08x\n",
				i, core.GPR[i], i+1, core.GPR[i+1], i+2, core.GPR[i+2], i+3, core.GPR[i+3])
		}
		fmt.Fprintf(out, "cia=%#08x nia=%#08x lr=%#08x ctr=%#08x cr=%#08x xer=%#08x\n",
			core.CIA, core.NIA, core.LR, core.CTR, core.CR.Value, core.XER.Value)

	case "set":
		if len(fields) != 3 || !strings.HasPrefix(fields[1], "r") {
			fmt.Fprintf(out, "usage: set rN value\n")
			return true
		}
		idx, err := strconv.Atoi(fields[1][1:])
		if err != nil || idx < 0 || idx > 31 {
			fmt.Fprintf(out, "bad register %q\n", fields[1])
			return true
		}
		value, err := strconv.ParseUint(fields[2], 0, 32)
		if err != nil {
			fmt.Fprintf(out, "bad value %q\n", fields[2])
			return true
		}
		core.GPR[idx] = uint32(value)

	case "quit", "q", "exit":
		return false

	default:
		fmt.Fprintf(out, "commands: step [n], regs, set rN value, quit\n")
	}

	return true
}
