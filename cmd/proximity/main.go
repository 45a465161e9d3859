// Command proximity runs cache workloads against a memory or Qdrant
// backend and publishes invalidations to other cache processes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/proximity/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "proximity",
		Short:         "Approximate query cache for vector databases",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (YAML)")

	var bench benchFlags
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Replay a query workload through the cache and report hit ratio, recall and latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			rep, err := runBench(cmd.Context(), cfg, bench)
			if err != nil {
				return err
			}
			return rep.write(cmd.OutOrStdout(), bench.json)
		},
	}
	benchCmd.Flags().IntVar(&bench.queries, "queries", 10000, "Number of queries")
	benchCmd.Flags().IntVar(&bench.workers, "workers", 8, "Concurrent clients")
	benchCmd.Flags().StringVar(&bench.queryFile, "query-file", "", "Queries as .fvecs (path, s3:// or minio:// URI)")
	benchCmd.Flags().Float64Var(&bench.noise, "noise", 0.01, "Stddev of the perturbation applied to synthetic queries")
	benchCmd.Flags().Float64Var(&bench.skew, "skew", 1.1, "Zipf exponent of synthetic query popularity")
	benchCmd.Flags().IntVar(&bench.clusters, "clusters", 64, "Clusters in the synthetic dataset")
	benchCmd.Flags().Float64Var(&bench.verify, "verify", 0, "Fraction of queries re-run against the backend to measure recall")
	benchCmd.Flags().BoolVar(&bench.json, "json", false, "Output the report as JSON")

	var inv invalidateFlags
	invalidateCmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Publish an invalidation to every subscribed cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			n, err := runInvalidate(cmd.Context(), cfg, inv)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "delivered to %d subscriber(s)\n", n)
			return err
		},
	}
	invalidateCmd.Flags().BoolVar(&inv.all, "all", false, "Invalidate every entry")
	invalidateCmd.Flags().Float32SliceVar(&inv.center, "center", nil, "Region center, comma separated")
	invalidateCmd.Flags().Float64Var(&inv.radius, "radius", 0, "Region radius")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(benchCmd, invalidateCmd, configCmd, versionCmd)

	return rootCmd
}
