package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-i2p/go-onion/lib/config"
	"github.com/go-i2p/go-onion/lib/router"
	"github.com/go-i2p/go-onion/lib/util"
	"github.com/go-i2p/go-onion/lib/util/signals"
	"github.com/go-i2p/go-onion/lib/util/status"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	log     = logger.GetGoI2PLogger()
	cfgFile string
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			status.Critical(fmt.Errorf("%v", r))
			util.CloseAll()
			os.Exit(2)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		status.Critical(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "go-onion",
		Short:         "Onion relay node",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runNode,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "set path for the config file (default $HOME/.go-onion/config.yaml)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the relay node until interrupted",
		RunE:  runNode,
	}

	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect the node configuration",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE:  showConfig,
	})

	root.AddCommand(run, cfg)
	return root
}

func runNode(cmd *cobra.Command, _ []string) error {
	status.Status("Reading configuration")
	settings, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	r, err := router.CreateRouter(settings)
	if err != nil {
		return err
	}
	util.RegisterCloser(r)
	defer util.CloseAll()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	listener := signals.NewListener()
	defer listener.Stop()
	listener.OnInterrupt(func() {
		status.Status("Shutting down")
		cancel()
	})
	listener.OnReload(func() {
		status.Report("Node", r.Report())
	})
	go listener.Run(ctx)

	err = r.Run(ctx, func(r *router.Router) {
		status.Report("Node started", r.Report())
		status.Status("Waiting for stream")
	})
	log.Debug("node stopped")
	return err
}

func showConfig(cmd *cobra.Command, _ []string) error {
	settings, err := config.Read(cfgFile)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		status.Problem(err)
	}
	out, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
