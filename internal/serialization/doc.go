// Package serialization saves and loads named tensors in the SafeTensors format.
//
// It is used to export back-propagated gradients and optimizer parameters so
// they can be inspected with other tools (NumPy, PyTorch):
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON object, tensor name -> {dtype, shape, data_offsets}]
//	  [Tensor data: raw little-endian bytes, in name order]
//
// Example usage:
//
//	err := serialization.WriteFile("grads.safetensors", map[string]*tensor.RawTensor{
//	    "x0": gx0,
//	    "x1": gx1,
//	}, map[string]string{"demo": "rosenbrock"})
//
//	file, err := serialization.ReadFile("grads.safetensors")
//	gx0 := file.Tensors["x0"]
package serialization
