// Package main provides the plugscheduler daemon: weather-aware, schedule-
// driven control of smart-plug groups, following the teacher's single
// cmd/remoteweather entry point but with cobra subcommands (run,
// validate-config) in place of a bare flag set.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chrissnell/plugscheduler/internal/core"
	"github.com/chrissnell/plugscheduler/internal/devicecontrol/memdevice"
	"github.com/chrissnell/plugscheduler/internal/log"
	"github.com/chrissnell/plugscheduler/internal/weather"
	"github.com/chrissnell/plugscheduler/pkg/config"
)

var (
	cfgFile string
	baseDir string
	debug   bool
)

func main() {
	root := &cobra.Command{
		Use:   "plugscheduler",
		Short: "weather-aware scheduler for networked smart plugs",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&baseDir, "state-dir", "./state", "directory for persisted runtime/override/cache state")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(runCmd(), validateConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the scheduler daemon until a shutdown signal is received",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Init(debug); err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer log.Sync()
			logger := log.GetSugaredLogger()

			provider := weather.NewSyntheticProvider(55, 60)
			controller := memdevice.New()

			c, err := core.New(cfgFile, core.DefaultPaths(baseDir), provider, controller, logger)
			if err != nil {
				return fmt.Errorf("initializing scheduler: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			reload := make(chan os.Signal, 1)
			signal.Notify(reload, syscall.SIGHUP)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-reload:
						if err := c.ReloadConfiguration(); err != nil {
							logger.Warnw("configuration reload failed", "error", err)
						}
					}
				}
			}()

			return c.Run(ctx)
		},
	}
}

func validateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "load and validate the configuration file, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("config OK: %d group(s), check interval %s\n", len(snap.Groups), snap.CheckInterval)
			return nil
		},
	}
}
