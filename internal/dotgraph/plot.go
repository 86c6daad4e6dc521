package dotgraph

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphgrad/internal/autodiff"
)

// ErrDotNotFound is returned when the Graphviz binary cannot be located.
var ErrDotNotFound = errors.New("graphviz dot binary not found")

// DefaultDotBinary is the Graphviz layout program invoked by Plotter.
const DefaultDotBinary = "dot"

// Plotter turns rendered graphs into images by handing the DOT text to Graphviz.
type Plotter struct {
	// DotBinary is the layout program; empty means DefaultDotBinary looked up in PATH.
	DotBinary string

	// TempDir holds the intermediate .dot files; empty means os.TempDir().
	TempDir string

	// KeepDOT leaves the intermediate .dot file in TempDir after plotting.
	KeepDOT bool

	Options Options
}

// PlotResult describes a produced image.
type PlotResult struct {
	Image   string // Path of the written image
	DOTFile string // Intermediate file; removed unless Plotter.KeepDOT is set
	Size    int64  // Image size in bytes
	Stats   Stats
}

// Plot renders the graph reachable from out and writes it to image. The image
// format is taken from the file extension (".png", ".svg", ".pdf"); no extension
// means PNG.
func (p *Plotter) Plot(ctx context.Context, g GraphView, out autodiff.NodeID, image string) (PlotResult, error) {
	text, stats, err := Walk(g, out, p.Options)
	if err != nil {
		return PlotResult{}, err
	}
	return p.PlotText(ctx, text, image, stats)
}

// PlotText writes already rendered DOT text to image.
func (p *Plotter) PlotText(ctx context.Context, text, image string, stats Stats) (PlotResult, error) {
	bin, err := p.lookPath()
	if err != nil {
		return PlotResult{}, err
	}

	tmpDir := p.TempDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return PlotResult{}, errors.Wrapf(err, "creating %s", tmpDir)
	}
	dotFile := filepath.Join(tmpDir, "graphgrad-"+uuid.NewString()+".dot")
	if err := os.WriteFile(dotFile, []byte(text), 0o644); err != nil {
		return PlotResult{}, errors.Wrapf(err, "writing %s", dotFile)
	}
	if !p.KeepDOT {
		defer func() {
			if rmErr := os.Remove(dotFile); rmErr != nil {
				klog.Warningf("dotgraph: failed to remove %s: %v", dotFile, rmErr)
			}
		}()
	}

	if dir := filepath.Dir(image); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return PlotResult{}, errors.Wrapf(err, "creating %s", dir)
		}
	}

	format := Format(image)
	klog.V(1).Infof("dotgraph: %s %s -T%s -o %s", bin, dotFile, format, image)
	cmd := exec.CommandContext(ctx, bin, dotFile, "-T"+format, "-o", image)
	if output, err := cmd.CombinedOutput(); err != nil {
		return PlotResult{}, errors.Wrapf(err, "running %s: %s", bin, strings.TrimSpace(string(output)))
	}

	info, err := os.Stat(image)
	if err != nil {
		return PlotResult{}, errors.Wrapf(err, "%s produced no output", bin)
	}
	result := PlotResult{Image: image, Size: info.Size(), Stats: stats}
	if p.KeepDOT {
		result.DOTFile = dotFile
	}
	return result, nil
}

func (p *Plotter) lookPath() (string, error) {
	bin := p.DotBinary
	if bin == "" {
		bin = DefaultDotBinary
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", errors.Wrapf(ErrDotNotFound, "%s: %v", bin, err)
	}
	return path, nil
}

// Format returns the Graphviz output format for an image path.
func Format(image string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(image), "."))
	if ext == "" {
		return "png"
	}
	return ext
}
