package optim

import (
	"github.com/pkg/errors"

	"github.com/born-ml/graphgrad/internal/serialization"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// ErrMissingParameter is returned by LoadParameters when the file lacks a parameter.
var ErrMissingParameter = errors.New("parameter not found in checkpoint")

// SaveParameters writes the parameter values to a SafeTensors file, keyed by name.
func SaveParameters(path string, params []*Parameter, metadata map[string]string) error {
	tensors := make(map[string]*tensor.RawTensor, len(params))
	for _, p := range params {
		if _, dup := tensors[p.Name]; dup {
			return errors.Errorf("save parameters: name %q used twice", p.Name)
		}
		tensors[p.Name] = p.Data
	}
	return serialization.WriteFile(path, tensors, metadata)
}

// LoadParameters overwrites the parameter values in place from a file written by
// SaveParameters. Graphs that already bound a parameter see the loaded values.
func LoadParameters(path string, params []*Parameter) (map[string]string, error) {
	f, err := serialization.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		t, ok := f.Tensors[p.Name]
		if !ok {
			return nil, errors.Wrapf(ErrMissingParameter, "%q in %s", p.Name, path)
		}
		if !t.Shape().Equal(p.Data.Shape()) {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch, "parameter %q has shape %v, checkpoint %v",
				p.Name, p.Data.Shape(), t.Shape())
		}
		p.Data.SetFloat64s(t.Float64s())
	}
	return f.Metadata, nil
}
