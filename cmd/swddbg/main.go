// Command swddbg is a small interactive front end for the SWD/RISC-V
// debug stack: connect to a target, drive the Debug Module by hand or
// via the default example sequence, and drop into a command REPL.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
	flag "github.com/spf13/pflag"

	"github.com/mongoose-os/pico2swd-riscv/target"
)

var (
	configFlag = flag.StringP("config", "c", "", "Path to a YAML target config; defaults to swddbg.yml next to the binary")
	pioFlag    = flag.Uint8("pio", target.AutoSlot, "PIO block (0 or 1); default auto-allocates")
	smFlag     = flag.Uint8("sm", target.AutoSlot, "PIO state machine (0-3); default auto-allocates")
	clkFlag    = flag.Uint8("swclk", 2, "GPIO driving SWCLK")
	dioFlag    = flag.Uint8("swdio", 3, "GPIO driving SWDIO")
	freqFlag   = flag.Uint32("freq", 1000, "SWCLK frequency in kHz")
	versionFlag = flag.Bool("version", false, "Print version and exit")
)

var out = colorable.NewColorableStdout()

func infof(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(out, format+"\n", args...)
}

func errorf(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(out, format+"\n", args...)
}

func loadConfig() (target.Config, error) {
	if *configFlag != "" {
		return target.LoadConfig(*configFlag)
	}
	if path, err := target.DefaultConfigPath(); err == nil {
		if cfg, err := target.LoadConfig(path); err == nil {
			return cfg, nil
		}
	}
	cfg := target.DefaultConfig()
	cfg.PIOBlock, cfg.StateMachine = *pioFlag, *smFlag
	cfg.PinSWCLK, cfg.PinSWDIO = *clkFlag, *dioFlag
	cfg.FreqKHz = *freqFlag
	return cfg, cfg.Validate()
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("swddbg %s\n", target.LibraryVersion)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		errorf("config: %s", err)
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "version":
		fmt.Printf("swddbg %s\n", target.LibraryVersion)
	case "run":
		if err := runBasicSequence(cfg); err != nil {
			errorf("%s", err)
			os.Exit(1)
		}
	case "repl", "":
		if err := runRepl(cfg); err != nil {
			errorf("%s", err)
			os.Exit(1)
		}
	default:
		errorf("unknown command %q (want: run, repl, version)", flag.Arg(0))
		os.Exit(2)
	}
}
