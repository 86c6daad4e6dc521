package serialization

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ChecksumKey is the metadata key holding the hex SHA-256 of the data section.
const ChecksumKey = "graphgrad.sha256"

const metadataKey = "__metadata__"

// TensorHeader describes one tensor in the JSON header.
type TensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// File is the decoded content of a SafeTensors file.
type File struct {
	Tensors  map[string]*tensor.RawTensor
	Metadata map[string]string
}

// Names returns the tensor names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteFile writes tensors to path. The SHA-256 of the data section is added
// to the metadata under ChecksumKey.
func WriteFile(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	//nolint:gosec // G304: path comes from the user
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := Write(file, tensors, metadata); err != nil {
		_ = file.Close()
		return errors.WithMessagef(err, "writing %s", path)
	}
	return errors.Wrapf(file.Close(), "closing %s", path)
}

// Write encodes tensors to w. Tensors are laid out in alphabetical order by name.
func Write(w io.Writer, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	if len(tensors) > MaxTensorCount {
		return errors.Wrapf(ErrTooManyTensors, "got %d, max %d", len(tensors), MaxTensorCount)
	}
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	hash := sha256.New()
	var offset int64
	for _, name := range names {
		raw := tensors[name]
		dtype, err := dtypeToSafeTensors(raw.DType())
		if err != nil {
			return errors.WithMessagef(err, "tensor %q", name)
		}
		shape := make([]int64, len(raw.Shape()))
		for i, dim := range raw.Shape() {
			shape[i] = int64(dim)
		}
		size := int64(raw.ByteSize())
		header[name] = TensorHeader{DType: dtype, Shape: shape, DataOffsets: [2]int64{offset, offset + size}}
		offset += size
		_, _ = hash.Write(raw.Bytes())
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[ChecksumKey] = hex.EncodeToString(hash.Sum(nil))
	header[metadataKey] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshaling header")
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "writing header size")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, name := range names {
		if _, err := w.Write(tensors[name].Bytes()); err != nil {
			return errors.Wrapf(err, "writing tensor %q", name)
		}
	}
	klog.V(2).Infof("wrote %d tensors (%d data bytes)", len(names), offset)
	return nil
}

// ReadFile reads and validates a SafeTensors file.
func ReadFile(path string) (*File, error) {
	//nolint:gosec // G304: path comes from the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	f, err := Read(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing %s", path)
	}
	return f, nil
}

// Read decodes a SafeTensors stream. Offsets are checked for overlap and bounds,
// and the data section is verified against ChecksumKey when present.
func Read(r io.Reader) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, errors.Wrap(err, "reading header size")
	}
	if headerSize > MaxHeaderSize {
		return nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading data section")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return nil, errors.Wrapf(ErrMalformedFile, "header is not a JSON object: %v", err)
	}

	f := &File{Tensors: make(map[string]*tensor.RawTensor, len(raw)), Metadata: map[string]string{}}
	if meta, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(meta, &f.Metadata); err != nil {
			return nil, errors.Wrapf(ErrMalformedFile, "metadata: %v", err)
		}
		delete(raw, metadataKey)
	}
	if len(raw) > MaxTensorCount {
		return nil, errors.Wrapf(ErrTooManyTensors, "got %d, max %d", len(raw), MaxTensorCount)
	}

	headers := make(map[string]TensorHeader, len(raw))
	for name, msg := range raw {
		if err := ValidateTensorName(name); err != nil {
			return nil, err
		}
		var h TensorHeader
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, errors.Wrapf(ErrMalformedFile, "tensor %q: %v", name, err)
		}
		headers[name] = h
	}
	if err := validateOffsets(headers, int64(len(data))); err != nil {
		return nil, err
	}

	if want, ok := f.Metadata[ChecksumKey]; ok {
		sum := sha256.Sum256(data)
		if got := hex.EncodeToString(sum[:]); got != want {
			return nil, errors.Wrapf(ErrChecksumMismatch, "got %s, want %s", got, want)
		}
	}

	for name, h := range headers {
		dtype, err := dtypeFromSafeTensors(h.DType)
		if err != nil {
			return nil, errors.WithMessagef(err, "tensor %q", name)
		}
		shape := make(tensor.Shape, len(h.Shape))
		for i, dim := range h.Shape {
			shape[i] = int(dim)
		}
		t, err := tensor.FromBytes(data[h.DataOffsets[0]:h.DataOffsets[1]], shape, dtype)
		if err != nil {
			return nil, errors.WithMessagef(err, "tensor %q", name)
		}
		f.Tensors[name] = t
	}
	klog.V(2).Infof("read %d tensors (%d data bytes)", len(f.Tensors), len(data))
	return f, nil
}

// validateOffsets checks for negative, out-of-bounds and overlapping tensor regions.
func validateOffsets(headers map[string]TensorHeader, dataSize int64) error {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return headers[names[i]].DataOffsets[0] < headers[names[j]].DataOffsets[0]
	})

	for i, name := range names {
		begin, end := headers[name].DataOffsets[0], headers[name].DataOffsets[1]
		if begin < 0 || end < begin {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  name,
				Details: fmt.Sprintf("offsets [%d, %d]", begin, end),
			}
		}
		if end > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  name,
				Details: fmt.Sprintf("end %d > data_size %d", end, dataSize),
			}
		}
		if i < len(names)-1 {
			next := names[i+1]
			if end > headers[next].DataOffsets[0] {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  name,
					Tensor2: next,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						begin, end, headers[next].DataOffsets[0], headers[next].DataOffsets[1]),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName rejects empty, oversized and path-like names.
func ValidateTensorName(name string) error {
	switch {
	case name == "" || name == metadataKey:
		return errors.Wrapf(ErrInvalidTensorName, "%q is reserved", name)
	case len(name) > MaxTensorNameLen:
		return errors.Wrapf(ErrInvalidTensorName, "length %d > max %d", len(name), MaxTensorNameLen)
	case strings.Contains(name, ".."), strings.ContainsAny(name, "/\\\x00"):
		return errors.Wrapf(ErrInvalidTensorName, "%q", name)
	}
	return nil
}

func dtypeToSafeTensors(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	default:
		return "", errors.Wrapf(ErrUnsupportedDType, "%s", dt)
	}
}

func dtypeFromSafeTensors(s string) (tensor.DataType, error) {
	switch s {
	case "F32":
		return tensor.Float32, nil
	case "F64":
		return tensor.Float64, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedDType, "%q", s)
	}
}
