// Package main provides the graphgrad CLI: render, plot and gradient-check the
// bundled sample computation graphs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

var (
	configPath string
	config     Config
)

var rootCmd = &cobra.Command{
	Use:   "graphgrad",
	Short: "Inspect autodiff computation graphs",
	Long: `graphgrad builds sample computation graphs, runs back-propagation on them and
renders the result as Graphviz DOT.

Examples:
  graphgrad list
  graphgrad render square-sum --verbose
  graphgrad plot rosenbrock -o rosenbrock.png
  graphgrad check all`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = LoadConfig(configPath, cmd.Flags().Changed("config"))
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "graphgrad %s\n", version)
	},
}

func init() {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", DefaultConfigPath, "path to the YAML configuration file")

	rootCmd.AddCommand(versionCmd, listCmd, renderCmd, plotCmd, checkCmd, gradsCmd)
}

func main() {
	defer klog.Flush()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
