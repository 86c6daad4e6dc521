package autodiff

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphgrad/internal/autodiff/ops"
	"github.com/born-ml/graphgrad/internal/backend/cpu"
	"github.com/born-ml/graphgrad/internal/tensor"
)

func scalar(v float64) *tensor.RawTensor {
	return tensor.Scalar(v, tensor.Float64)
}

func array(t *testing.T, values []float64, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromFloat64s(values, shape, tensor.Float64)
	require.NoError(t, err)
	return r
}

func apply(t *testing.T, g *Graph, fn ops.Function, inputs ...NodeID) NodeID {
	t.Helper()
	id, err := g.Apply1(fn, inputs...)
	require.NoError(t, err)
	return id
}

func TestNodeAndOpKeys(t *testing.T) {
	assert.Equal(t, "n0", NodeID(0).Key())
	assert.Equal(t, "n12", NodeID(12).Key())
	assert.Equal(t, "f0", OpID(0).Key())
	assert.NotEqual(t, NodeID(3).Key(), OpID(3).Key())
}

func TestApplyRecordsCreatorAndGeneration(t *testing.T) {
	g := NewGraph(cpu.New())
	x0 := g.Variable("x0", scalar(1))
	x1 := g.Variable("x1", scalar(2))
	s := apply(t, g, ops.Add{}, x0, x1)
	y := apply(t, g, ops.Square{}, s)

	assert.Equal(t, 4, g.NumNodes())
	assert.Equal(t, 2, g.NumOps())

	sn := g.MustNode(s)
	require.True(t, sn.HasCreator())
	assert.Equal(t, 1, sn.Generation)
	op, err := g.Op(sn.Creator)
	require.NoError(t, err)
	assert.Equal(t, "Add", op.Kind())
	assert.Equal(t, []NodeID{x0, x1}, op.Inputs)
	assert.Equal(t, []NodeID{s}, op.Outputs)
	assert.Equal(t, 0, op.Generation)

	yn := g.MustNode(y)
	assert.Equal(t, 2, yn.Generation)
	assert.InDelta(t, 9.0, yn.Data.Item(), 1e-12)
	assert.False(t, g.MustNode(x0).HasCreator())
}

func TestBackwardSquareOfSum(t *testing.T) {
	g := NewGraph(cpu.New())
	x0 := g.Variable("x0", scalar(1))
	x1 := g.Variable("x1", scalar(1))
	y := apply(t, g, ops.Square{}, apply(t, g, ops.Add{}, x0, x1))

	require.NoError(t, g.Backward(y))
	assert.InDelta(t, 4.0, g.MustNode(x0).Grad.Item(), 1e-12)
	assert.InDelta(t, 4.0, g.MustNode(x1).Grad.Item(), 1e-12)
}

func TestBackwardGenerationOrder(t *testing.T) {
	// y = a² + a² with a = x², so dy/dx = 8x³.
	g := NewGraph(cpu.New())
	x := g.Variable("x", scalar(2))
	a := apply(t, g, ops.Square{}, x)
	y := apply(t, g, ops.Add{}, apply(t, g, ops.Square{}, a), apply(t, g, ops.Square{}, a))

	require.NoError(t, g.Backward(y))
	assert.InDelta(t, 32.0, g.MustNode(y).Data.Item(), 1e-12)
	assert.InDelta(t, 64.0, g.MustNode(x).Grad.Item(), 1e-12)
}

func TestBackwardSameInputTwice(t *testing.T) {
	g := NewGraph(cpu.New())
	x := g.Variable("x", scalar(3))
	y := apply(t, g, ops.Mul{}, x, x)

	require.NoError(t, g.Backward(y))
	assert.InDelta(t, 6.0, g.MustNode(x).Grad.Item(), 1e-12)
}

func TestBackwardBroadcastReducesGradient(t *testing.T) {
	g := NewGraph(cpu.New())
	x := g.Variable("x", array(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3))
	b := g.Variable("b", array(t, []float64{10, 20, 30}, 3))
	y := apply(t, g, ops.Sum{}, apply(t, g, ops.Add{}, x, b))

	require.NoError(t, g.Backward(y))
	bGrad := g.MustNode(b).Grad
	assert.Equal(t, tensor.Shape{3}, bGrad.Shape())
	assert.Equal(t, []float64{2, 2, 2}, bGrad.Float64s())
	xGrad := g.MustNode(x).Grad
	assert.Equal(t, tensor.Shape{2, 3}, xGrad.Shape())
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, xGrad.Float64s())
}

func TestBackwardSumAxis(t *testing.T) {
	g := NewGraph(cpu.New())
	x := g.Variable("x", array(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3))
	y := apply(t, g, ops.Sum{Axes: []int{0}}, x)
	assert.Equal(t, []float64{5, 7, 9}, g.MustNode(y).Data.Float64s())

	require.NoError(t, g.Backward(y))
	assert.Equal(t, tensor.Shape{2, 3}, g.MustNode(x).Grad.Shape())
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, g.MustNode(x).Grad.Float64s())
}

func TestBackwardRetainGrad(t *testing.T) {
	build := func() (*Graph, NodeID, NodeID, NodeID) {
		g := NewGraph(cpu.New())
		x := g.Variable("x", scalar(2))
		a := apply(t, g, ops.Square{}, x)
		y := apply(t, g, ops.Exp{}, a)
		return g, x, a, y
	}

	g, x, a, y := build()
	require.NoError(t, g.Backward(y))
	assert.NotNil(t, g.MustNode(x).Grad)
	assert.Nil(t, g.MustNode(a).Grad)
	assert.Nil(t, g.MustNode(y).Grad)

	g, x, a, y = build()
	require.NoError(t, g.Backward(y, RetainGrad()))
	assert.NotNil(t, g.MustNode(x).Grad)
	assert.NotNil(t, g.MustNode(a).Grad)
	assert.InDelta(t, 1.0, g.MustNode(y).Grad.Item(), 1e-12)
}

func TestBackwardAccumulatesAcrossCalls(t *testing.T) {
	g := NewGraph(cpu.New())
	x := g.Variable("x", scalar(3))
	y := apply(t, g, ops.Square{}, x)

	require.NoError(t, g.Backward(y))
	require.NoError(t, g.Backward(y))
	assert.InDelta(t, 12.0, g.MustNode(x).Grad.Item(), 1e-12)

	g.ClearGrads()
	assert.Nil(t, g.MustNode(x).Grad)
	require.NoError(t, g.Backward(y))
	assert.InDelta(t, 6.0, g.MustNode(x).Grad.Item(), 1e-12)
	require.NoError(t, g.ClearGrad(x))
	assert.Nil(t, g.MustNode(x).Grad)
}

func TestBackwardFromLeaf(t *testing.T) {
	g := NewGraph(cpu.New())
	x := g.Variable("x", array(t, []float64{1, 2}, 2))
	require.NoError(t, g.Backward(x))
	assert.Equal(t, []float64{1, 1}, g.MustNode(x).Grad.Float64s())
}

func TestNoGrad(t *testing.T) {
	g := NewGraph(cpu.New())
	x := g.Variable("x", scalar(2))
	var y NodeID
	g.NoGrad(func() {
		y = apply(t, g, ops.Square{}, x)
	})
	assert.Equal(t, 0, g.NumOps())
	assert.False(t, g.MustNode(y).HasCreator())
	assert.InDelta(t, 4.0, g.MustNode(y).Data.Item(), 1e-12)

	// Recording is restored afterwards.
	apply(t, g, ops.Square{}, x)
	assert.Equal(t, 1, g.NumOps())
}

func TestSetName(t *testing.T) {
	g := NewGraph(cpu.New())
	x := g.Variable("", scalar(1))
	require.NoError(t, g.SetName(x, "x"))
	assert.Equal(t, "x", g.MustNode(x).Name)
	assert.ErrorIs(t, g.SetName(NodeID(7), "y"), ErrUnknownNode)
}

func TestUnknownHandles(t *testing.T) {
	g := NewGraph(cpu.New())
	_, err := g.Node(NodeID(0))
	assert.ErrorIs(t, err, ErrUnknownNode)
	_, err = g.Op(OpID(0))
	assert.ErrorIs(t, err, ErrUnknownOp)
	_, err = g.Op(NoOp)
	assert.ErrorIs(t, err, ErrUnknownOp)
	assert.ErrorIs(t, g.Backward(NodeID(3)), ErrUnknownNode)
	assert.Panics(t, func() { g.MustNode(NodeID(1)) })
}

func TestApplyErrors(t *testing.T) {
	g := NewGraph(cpu.New())
	x := g.Variable("x", array(t, []float64{1, 2}, 2))
	z := g.Variable("z", array(t, []float64{1, 2, 3}, 3))
	empty := g.Variable("empty", nil)

	_, err := g.Apply1(ops.Add{}, x)
	assert.ErrorIs(t, err, ops.ErrArity)

	// Kernel panics come back as errors.
	_, err = g.Apply1(ops.Add{}, x, z)
	assert.Error(t, err)

	_, err = g.Apply1(ops.Square{}, empty)
	assert.ErrorIs(t, err, ErrMalformedGraph)

	_, err = g.Apply1(ops.Square{}, NodeID(42))
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.Equal(t, 0, g.NumOps())
}

func TestBackwardMalformedGraph(t *testing.T) {
	g := NewGraph(cpu.New())
	x := g.Variable("x", scalar(2))
	y := apply(t, g, ops.Square{}, x)
	g.nodes[y].Creator = OpID(9)

	err := g.Backward(y)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedGraph))

	g = NewGraph(cpu.New())
	x = g.Variable("x", scalar(2))
	y = apply(t, g, ops.Square{}, x)
	g.ops[0].Inputs = []NodeID{NodeID(5)}
	assert.ErrorIs(t, g.Backward(y), ErrUnknownNode)
}

type badGradient struct{ ops.Square }

func (badGradient) Backward(_ tensor.Backend, _, _, _ []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return []*tensor.RawTensor{tensor.Scalar(1, tensor.Float64)}, nil
}

func TestBackwardRejectsMisshapenGradient(t *testing.T) {
	g := NewGraph(cpu.New())
	x := g.Variable("x", array(t, []float64{1, 2}, 2))
	y := apply(t, g, badGradient{}, x)
	assert.ErrorIs(t, g.Backward(y), tensor.ErrShapeMismatch)
}
