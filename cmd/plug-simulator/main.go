// Package main is a line-oriented console for memdevice.Controller, grounded
// in the teacher's cmd/weather-station-simulator / cmd/live-data-simulator
// pattern of a standalone harness a human can drive during a local run. It
// is a test/demo harness, not a production transport: it never claims to
// speak the real smart-plug wire protocol.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chrissnell/plugscheduler/internal/devicecontrol/memdevice"
	"github.com/chrissnell/plugscheduler/internal/types"
)

func main() {
	flag.Parse()

	ctrl := memdevice.New()
	ctx := context.Background()

	fmt.Println("plug-simulator console. Commands:")
	fmt.Println("  init <device>")
	fmt.Println("  on <device> | off <device>")
	fmt.Println("  state <device>")
	fmt.Println("  fail <device> <none|init-timeout|init-error|command|unreachable>")
	fmt.Println("  quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return
		case "init":
			if len(fields) != 2 {
				fmt.Println("usage: init <device>")
				continue
			}
			err := ctrl.Init(ctx, types.Device{Name: fields[1]})
			report("init", err)
		case "on", "off":
			if len(fields) != 2 {
				fmt.Printf("usage: %s <device>\n", fields[0])
				continue
			}
			desired := types.StateOff
			if fields[0] == "on" {
				desired = types.StateOn
			}
			group := types.Group{Devices: []types.Device{{Name: fields[1]}}}
			err := ctrl.Set(ctx, group, desired)
			report(fields[0], err)
		case "state":
			if len(fields) != 2 {
				fmt.Println("usage: state <device>")
				continue
			}
			group := types.Group{Devices: []types.Device{{Name: fields[1]}}}
			gs, err := ctrl.State(ctx, group)
			if err != nil {
				report("state", err)
				continue
			}
			fmt.Printf("  on=%v online=%v per_outlet=%v\n", gs.IsOn, gs.Online, gs.PerOutlet)
		case "fail":
			if len(fields) != 3 {
				fmt.Println("usage: fail <device> <none|init-timeout|init-error|command|unreachable>")
				continue
			}
			mode, ok := parseFailureMode(fields[2])
			if !ok {
				fmt.Println("unknown failure mode:", fields[2])
				continue
			}
			ctrl.SetFailureMode(fields[1], mode)
			fmt.Println("ok")
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func parseFailureMode(s string) (memdevice.FailureMode, bool) {
	switch s {
	case "none":
		return memdevice.FailNone, true
	case "init-timeout":
		return memdevice.FailInitTimeout, true
	case "init-error":
		return memdevice.FailInitError, true
	case "command":
		return memdevice.FailCommand, true
	case "unreachable":
		return memdevice.FailUnreachable, true
	default:
		return 0, false
	}
}

func report(op string, err error) {
	if err != nil {
		fmt.Printf("%s failed: %v\n", op, err)
		return
	}
	fmt.Printf("%s ok (%s)\n", op, time.Now().Format(time.RFC3339))
}
