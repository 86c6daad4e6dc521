package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/autodiff/gradcheck"
	"github.com/born-ml/graphgrad/internal/backend/cpu"
	"github.com/born-ml/graphgrad/internal/demos"
	"github.com/born-ml/graphgrad/internal/dotgraph"
)

var (
	renderVerbose bool
	renderRankDir string
	renderOutput  string

	plotOutput  string
	plotTimeout time.Duration
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the sample graphs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), styles.Title.Render("Sample graphs"))
		for _, name := range demos.Names() {
			d, _ := demos.Lookup(name)
			fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n",
				styles.Name.Render(fmt.Sprintf("%-12s", name)), styles.Muted.Render(d.Description))
		}
	},
}

var renderCmd = &cobra.Command{
	Use:   "render DEMO",
	Short: "Print the DOT description of a sample graph",
	Long: `Build a sample graph and print its Graphviz DOT description, starting from the
graph's output and walking back through every operation that produced it.

Examples:
  graphgrad render square-sum
  graphgrad render broadcast --verbose --rankdir LR
  graphgrad render taylor-sin -o taylor.dot`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var plotCmd = &cobra.Command{
	Use:   "plot DEMO",
	Short: "Render a sample graph to an image with Graphviz",
	Long: `Build a sample graph and lay it out with the Graphviz dot program. The image
format follows the output extension (png, svg, pdf).

Examples:
  graphgrad plot rosenbrock
  graphgrad plot sum-axis -o graphs/sum-axis.svg --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runPlot,
}

var checkCmd = &cobra.Command{
	Use:   "check [DEMO|all]",
	Short: "Compare back-propagated gradients with finite differences",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	renderCmd.Flags().BoolVar(&renderVerbose, "verbose", false, "append shapes and dtypes to node labels")
	renderCmd.Flags().StringVar(&renderRankDir, "rankdir", "", "Graphviz rank direction (TB, LR, ...)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "write DOT to this file instead of stdout")

	plotCmd.Flags().BoolVar(&renderVerbose, "verbose", false, "append shapes and dtypes to node labels")
	plotCmd.Flags().StringVar(&renderRankDir, "rankdir", "", "Graphviz rank direction (TB, LR, ...)")
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "", "image path (default <output_dir>/<demo>.png)")
	plotCmd.Flags().DurationVar(&plotTimeout, "timeout", 30*time.Second, "maximum time allowed for Graphviz")
}

// buildDemo builds the named sample graph.
func buildDemo(name string) (*autodiff.Graph, autodiff.NodeID, error) {
	d, err := demos.Lookup(name)
	if err != nil {
		return nil, 0, err
	}
	g := autodiff.NewGraph(cpu.New())
	y, err := d.Build(g)
	if err != nil {
		return nil, 0, errors.WithMessagef(err, "building %s", name)
	}
	klog.V(1).Infof("built %s: %d nodes, %d operations", name, g.NumNodes(), g.NumOps())
	return g, y, nil
}

// renderOptions merges command-line flags over the configuration.
func renderOptions(cmd *cobra.Command) dotgraph.Options {
	opts := config.RenderOptions()
	if cmd.Flags().Changed("verbose") {
		opts.Verbose = renderVerbose
	}
	if renderRankDir != "" {
		opts.RankDir = strings.ToUpper(renderRankDir)
	}
	return opts
}

func runRender(cmd *cobra.Command, args []string) error {
	g, y, err := buildDemo(args[0])
	if err != nil {
		return err
	}
	text, err := dotgraph.Render(g, y, renderOptions(cmd))
	if err != nil {
		return err
	}
	if renderOutput == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(renderOutput, []byte(text), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", renderOutput)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", styles.OK.Render("wrote"), renderOutput,
		humanize.Bytes(uint64(len(text))))
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	g, y, err := buildDemo(args[0])
	if err != nil {
		return err
	}
	image := plotOutput
	if image == "" {
		image = filepath.Join(config.OutputDir, args[0]+".png")
	}

	ctx, cancel := context.WithTimeout(context.Background(), plotTimeout)
	defer cancel()
	plotter := &dotgraph.Plotter{
		DotBinary: config.DotBinary,
		KeepDOT:   config.KeepDOT,
		Options:   renderOptions(cmd),
	}
	result, err := plotter.Plot(ctx, g, y, image)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %d operations, %d nodes)\n", styles.OK.Render("wrote"),
		result.Image, humanize.Bytes(uint64(result.Size)), len(result.Stats.Ops), len(result.Stats.Nodes))
	if result.DOTFile != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styles.Muted.Render("dot source"), result.DOTFile)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	names := demos.Names()
	if len(args) == 1 && args[0] != "all" {
		names = []string{args[0]}
	}

	failed := 0
	for _, name := range names {
		d, err := demos.Lookup(name)
		if err != nil {
			return err
		}
		inputs, err := d.Tensors()
		if err != nil {
			return err
		}
		err = gradcheck.Check(cpu.New(), d.Fn, inputs, config.Tolerance())
		switch {
		case err == nil:
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styles.OK.Render("ok  "), name)
		case errors.Is(err, gradcheck.ErrGradientMismatch):
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", styles.Fail.Render("FAIL"), name, err)
		default:
			return errors.WithMessagef(err, "checking %s", name)
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d gradient checks failed", failed, len(names))
	}
	return nil
}
