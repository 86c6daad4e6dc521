package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/backend/cpu"
	"github.com/born-ml/graphgrad/internal/demos"
	"github.com/born-ml/graphgrad/internal/serialization"
	"github.com/born-ml/graphgrad/internal/tensor"
)

var gradsOutput string

var gradsCmd = &cobra.Command{
	Use:   "grads DEMO",
	Short: "Back-propagate through a sample graph and save the gradients",
	Long: `Build a sample graph, run back-propagation from its output and write the
gradient of every input (plus the output value) to a SafeTensors file.

Examples:
  graphgrad grads broadcast
  graphgrad grads rosenbrock -o graphs/rosenbrock.safetensors`,
	Args: cobra.ExactArgs(1),
	RunE: runGrads,
}

func init() {
	gradsCmd.Flags().StringVarP(&gradsOutput, "output", "o", "",
		"SafeTensors path (default <output_dir>/<demo>.safetensors)")
}

func runGrads(cmd *cobra.Command, args []string) error {
	d, err := demos.Lookup(args[0])
	if err != nil {
		return err
	}
	xs, err := d.Tensors()
	if err != nil {
		return err
	}
	g := autodiff.NewGraph(cpu.New())
	ids := make([]autodiff.NodeID, len(xs))
	for i, x := range xs {
		ids[i] = g.Variable(d.Inputs[i].Name, x)
	}
	y, err := d.Fn(g, ids)
	if err != nil {
		return errors.WithMessagef(err, "building %s", d.Name)
	}
	if err := g.Backward(y); err != nil {
		return errors.WithMessagef(err, "back-propagating %s", d.Name)
	}

	tensors := make(map[string]*tensor.RawTensor, len(ids)+1)
	for i, id := range ids {
		n := g.MustNode(id)
		if n.Grad == nil {
			klog.Warningf("%s: input %s does not reach the output", d.Name, d.Inputs[i].Name)
			continue
		}
		tensors["grad."+d.Inputs[i].Name] = n.Grad
	}
	tensors["output"] = g.MustNode(y).Data

	path := gradsOutput
	if path == "" {
		path = filepath.Join(config.OutputDir, d.Name+".safetensors")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	if err := serialization.WriteFile(path, tensors, map[string]string{"demo": d.Name}); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d tensors, %s)\n", styles.OK.Render("wrote"), path,
		len(tensors), humanize.Bytes(uint64(info.Size())))
	return nil
}
