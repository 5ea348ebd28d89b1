package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/mongoose-os/pico2swd-riscv/target"
)

// runRepl drops into an interactive command console over a target
// session: connect/disconnect, halt/resume/step/reset a hart, read or
// write a GPR or a memory word, and inspect the resource tracker.
func runRepl(cfg target.Config) error {
	tg, err := target.New(cfg, newTransport())
	if err != nil {
		return err
	}
	defer tg.Destroy()

	infof("swddbg REPL -- type 'help' for commands, 'quit' to exit")
	parser := shellwords.NewParser()
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "swddbg> ")
		if !sc.Scan() {
			return nil
		}
		args, err := parser.Parse(sc.Text())
		if err != nil {
			errorf("parse error: %s", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}
		if err := dispatch(tg, args); err != nil {
			errorf("%s", err)
		}
	}
}

func dispatch(tg *target.Target, args []string) error {
	switch args[0] {
	case "help":
		printReplHelp()
	case "connect":
		if err := tg.Connect(); err != nil {
			return err
		}
		idcode, _ := tg.ReadIDCode()
		infof("connected, IDCODE=0x%08x", idcode)
	case "disconnect":
		return tg.Disconnect()
	case "halt":
		h, err := hartArg(args)
		if err != nil {
			return err
		}
		return tg.DM().Halt(h)
	case "resume":
		h, err := hartArg(args)
		if err != nil {
			return err
		}
		return tg.DM().Resume(h)
	case "step":
		h, err := hartArg(args)
		if err != nil {
			return err
		}
		return tg.DM().Step(h)
	case "reset":
		h, err := hartArg(args)
		if err != nil {
			return err
		}
		return tg.DM().Reset(h, true)
	case "regs":
		h, err := hartArg(args)
		if err != nil {
			return err
		}
		regs, err := tg.DM().ReadAllGPRs(h)
		if err != nil {
			return err
		}
		printGPRs(regs)
	case "rw": // rw <hart> <n>
		h, n, err := hartAndIndex(args)
		if err != nil {
			return err
		}
		v, err := tg.DM().ReadGPR(h, uint8(n))
		if err != nil {
			return err
		}
		infof("x%d = 0x%08x", n, v)
	case "ww": // ww <hart> <n> <value>
		if len(args) != 4 {
			return fmt.Errorf("usage: ww <hart> <n> <value>")
		}
		h, n, err := hartAndIndex(args[:3])
		if err != nil {
			return err
		}
		value, err := parseUint32(args[3])
		if err != nil {
			return err
		}
		return tg.DM().WriteGPR(h, uint8(n), value)
	case "rm": // rm <hart> <addr>
		if len(args) != 3 {
			return fmt.Errorf("usage: rm <hart> <addr>")
		}
		h, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		addr, err := parseUint32(args[2])
		if err != nil {
			return err
		}
		v, err := tg.DM().ReadMem32(h, addr)
		if err != nil {
			return err
		}
		infof("[0x%08x] = 0x%08x", addr, v)
	case "wm": // wm <hart> <addr> <value>
		if len(args) != 4 {
			return fmt.Errorf("usage: wm <hart> <addr> <value>")
		}
		h, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		addr, err := parseUint32(args[2])
		if err != nil {
			return err
		}
		value, err := parseUint32(args[3])
		if err != nil {
			return err
		}
		return tg.DM().WriteMem32(h, addr, value)
	case "resources":
		info := target.ResourceUsage()
		infof("active targets: %d  PIO0=%v  PIO1=%v", info.ActiveTargets, info.PIO0Used, info.PIO1Used)
	default:
		return fmt.Errorf("unknown command %q, try 'help'", args[0])
	}
	return nil
}

func printReplHelp() {
	fmt.Fprint(out, `commands:
  connect / disconnect
  halt <hart> / resume <hart> / step <hart> / reset <hart>
  regs <hart>
  rw <hart> <n>              read GPR n
  ww <hart> <n> <value>      write GPR n
  rm <hart> <addr>           read memory word
  wm <hart> <addr> <value>   write memory word
  resources
  quit
`)
}

func hartArg(args []string) (int, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("usage: %s <hart>", args[0])
	}
	return strconv.Atoi(args[1])
}

func hartAndIndex(args []string) (int, int, error) {
	if len(args) != 3 {
		return 0, 0, fmt.Errorf("usage: %s <hart> <n>", args[0])
	}
	h, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, err
	}
	n, err := strconv.Atoi(args[2])
	if err != nil {
		return 0, 0, err
	}
	return h, n, nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), hexOrDec(s), 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func hexOrDec(s string) int {
	if strings.HasPrefix(s, "0x") {
		return 16
	}
	return 10
}
