package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphgrad/internal/autodiff/gradcheck"
	"github.com/born-ml/graphgrad/internal/dotgraph"
)

// DefaultConfigPath is read when --config is not given; a missing file there is not an error.
const DefaultConfigPath = "graphgrad.yaml"

// Config is the CLI configuration file.
//
// Example graphgrad.yaml:
//
//	verbose: true
//	rankdir: LR
//	dot_binary: /usr/local/bin/dot
//	output_dir: graphs
//	gradcheck:
//	  eps: 1e-4
//	  rtol: 1e-4
//	  atol: 1e-5
type Config struct {
	Verbose   bool            `yaml:"verbose"`
	RankDir   string          `yaml:"rankdir"`
	DotBinary string          `yaml:"dot_binary"`
	OutputDir string          `yaml:"output_dir"`
	KeepDOT   bool            `yaml:"keep_dot"`
	GradCheck GradCheckConfig `yaml:"gradcheck"`
}

// GradCheckConfig holds the tolerances of the check command.
type GradCheckConfig struct {
	Eps  float64 `yaml:"eps"`
	RTol float64 `yaml:"rtol"`
	ATol float64 `yaml:"atol"`
}

// DefaultConfig returns the settings used when no configuration file exists.
func DefaultConfig() Config {
	tol := gradcheck.DefaultTolerance()
	return Config{
		RankDir:   dotgraph.DefaultOptions().RankDir,
		DotBinary: dotgraph.DefaultDotBinary,
		OutputDir: ".",
		GradCheck: GradCheckConfig{Eps: tol.Eps, RTol: tol.RTol, ATol: tol.ATol},
	}
}

// LoadConfig reads path over the defaults. A missing file is an error only when
// required is set.
func LoadConfig(path string, required bool) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			klog.V(1).Infof("config %s not found, using defaults", path)
			return config, nil
		}
		return config, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "parsing config %s", path)
	}
	klog.V(1).Infof("loaded config %s", path)
	return config, nil
}

// RenderOptions converts the configuration into walker options.
func (c Config) RenderOptions() dotgraph.Options {
	return dotgraph.Options{Verbose: c.Verbose, RankDir: c.RankDir}
}

// Tolerance converts the configuration into gradient-check tolerances.
func (c Config) Tolerance() gradcheck.Tolerance {
	return gradcheck.Tolerance{Eps: c.GradCheck.Eps, RTol: c.GradCheck.RTol, ATol: c.GradCheck.ATol}
}
