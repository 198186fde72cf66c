// Package main implements the transfer CLI: upload and download files
// against the cluster, list what is stored, and inspect file and node
// state.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/cluster"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/config"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/transfer"
)

var (
	flagConfig      string
	flagCoordinator string
	flagConcurrency int
)

var rootCmd = &cobra.Command{
	Use:   "dfsctl",
	Short: "Client for the distributed chunk file store",
	Long: `dfsctl splits files into chunks, distributes them across the
cluster's storage nodes in parallel, and reassembles them on download.

The coordinator address comes from --coordinator, the COORDINATOR_ADDR
environment variable, or an optional YAML config file, in that order of
precedence.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "optional YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagCoordinator, "coordinator", "", "coordinator base URL")
	rootCmd.PersistentFlags().IntVar(&flagConcurrency, "concurrency", 0, "parallel chunk transfers (default 5)")
}

// clientSetup resolves configuration and builds the coordinator client
// and transfer engine shared by all commands.
func clientSetup() (*cluster.Client, *transfer.Engine, error) {
	cfg, err := config.LoadClient(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagCoordinator != "" {
		cfg.CoordinatorURL = flagCoordinator
	}
	if flagConcurrency > 0 {
		cfg.Concurrency = flagConcurrency
	}
	coord := cluster.NewClient(cfg.CoordinatorURL)
	return coord, transfer.NewEngine(coord, cfg.Concurrency), nil
}
