package bitvec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomVector(r *rand.Rand, n int, span uint64) *Vector {
	v := New(0)
	for i := 0; i < n; i++ {
		v.Set(uint64(r.Int63n(int64(span))))
	}
	return v
}

func TestCombineOr(t *testing.T) {
	bvA := FromPositions(1, 2, 3)
	bvB := FromPositions(1, 2, 4)
	bvA.Or(bvB)
	require.Equal(t, []uint64{1, 2, 3, 4}, bvA.ToSlice())
}

func TestCombineAnd(t *testing.T) {
	bvA := FromPositions(1, 2, 3)
	bvB := FromPositions(1, 2, 4)
	bvA.And(bvB)
	require.Equal(t, []uint64{1, 2}, bvA.ToSlice())
}

func TestCombineSizeExtends(t *testing.T) {
	bvA := FromPositions(1, 2, 3)
	bvB := FromPositions(1, 2, 4)
	bvA.Resize(5)
	bvB.Resize(10)

	bvA.Or(bvB)
	require.EqualValues(t, 10, bvA.Size())
	require.Equal(t, []uint64{1, 2, 3, 4}, bvA.ToSlice())

	bvC := FromPositions(1, 2, 3)
	bvC.Resize(5)
	bvC.And(bvB)
	require.EqualValues(t, 10, bvC.Size())
	require.Equal(t, []uint64{1, 2}, bvC.ToSlice())
}

func TestCombineXorAndNot(t *testing.T) {
	bvA := FromPositions(1, 2, 3)
	bvB := FromPositions(1, 2, 4)

	x := bvA.Clone()
	x.Xor(bvB)
	require.Equal(t, []uint64{3, 4}, x.ToSlice())

	d := bvA.Clone()
	d.AndNot(bvB)
	require.Equal(t, []uint64{3}, d.ToSlice())
}

func TestIdentityLaws(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	a := randomVector(r, 500, 3*BlockBits)
	empty := New(0)

	// A OR empty == A
	or := a.Clone()
	or.Or(empty)
	require.True(t, or.Equal(a))

	// A AND empty == empty (of A's size)
	and := a.Clone()
	and.And(empty)
	require.True(t, and.IsEmpty())
	require.Equal(t, a.Size(), and.Size())

	// A XOR A == empty
	x := a.Clone()
	x.Xor(x)
	require.True(t, x.IsEmpty())
}

func TestCommutativityAndAssociativity(t *testing.T) {
	r := rand.New(rand.NewSource(10))
	a := randomVector(r, 800, 2*BlockBits)
	b := randomVector(r, 800, 4*BlockBits)
	c := randomVector(r, 800, 3*BlockBits)

	for _, op := range []Operator{OpOr, OpAnd} {
		t.Run(op.String(), func(t *testing.T) {
			ab := a.Clone()
			require.NoError(t, ab.CombineOperation(b, op))
			ba := b.Clone()
			require.NoError(t, ba.CombineOperation(a, op))
			require.True(t, ab.Equal(ba), "%s must be commutative", op)

			// (a op b) op c == a op (b op c)
			left := ab.Clone()
			require.NoError(t, left.CombineOperation(c, op))
			bc := b.Clone()
			require.NoError(t, bc.CombineOperation(c, op))
			right := a.Clone()
			require.NoError(t, right.CombineOperation(bc, op))
			require.True(t, left.Equal(right), "%s must be associative", op)
		})
	}
}

func TestCombineAgainstReference(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	span := uint64(2 * BlockBits)
	a := randomVector(r, 1000, span)
	b := randomVector(r, 1000, span)

	inA := make(map[uint64]bool)
	for _, p := range a.ToSlice() {
		inA[p] = true
	}
	inB := make(map[uint64]bool)
	for _, p := range b.ToSlice() {
		inB[p] = true
	}

	eval := func(op Operator, p uint64) bool {
		switch op {
		case OpOr:
			return inA[p] || inB[p]
		case OpAnd:
			return inA[p] && inB[p]
		case OpXor:
			return inA[p] != inB[p]
		default:
			return inA[p] && !inB[p]
		}
	}

	for _, op := range []Operator{OpOr, OpAnd, OpXor, OpAndNot} {
		t.Run(op.String(), func(t *testing.T) {
			got := a.Clone()
			require.NoError(t, got.CombineOperation(b, op))
			for p := uint64(0); p < span; p += 13 {
				require.Equal(t, eval(op, p), got.Test(p), "position %d", p)
			}
		})
	}
}

func TestCombineOperationInvalidOpcode(t *testing.T) {
	a := FromPositions(1)
	b := FromPositions(2)
	err := a.CombineOperation(b, Operator(42))
	require.ErrorIs(t, err, ErrInvalidOperator)
	// Failed dispatch must not touch the target.
	require.Equal(t, []uint64{1}, a.ToSlice())
}

func TestSelfCombine(t *testing.T) {
	a := FromPositions(1, 2, 3)

	or := a.Clone()
	or.Or(or)
	require.Equal(t, []uint64{1, 2, 3}, or.ToSlice())

	and := a.Clone()
	and.And(and)
	require.Equal(t, []uint64{1, 2, 3}, and.ToSlice())

	x := a.Clone()
	x.Xor(x)
	require.True(t, x.IsEmpty())

	d := a.Clone()
	d.AndNot(d)
	require.True(t, d.IsEmpty())
}

func TestCombineMixedRepresentations(t *testing.T) {
	r := rand.New(rand.NewSource(12))

	// Dense vector forced into Bit blocks, runny vector in Gap blocks, and a
	// full One block: dispatch must be representation-agnostic.
	dense := New(0)
	for i := 0; i < 30000; i++ {
		dense.Set(uint64(r.Intn(BlockBits)))
	}
	runny := New(0)
	runny.SetRange(100, 50000)
	full := New(0)
	full.SetRange(0, BlockBits-1)

	got := dense.Clone()
	got.And(runny)
	for p := uint64(0); p < BlockBits; p += 7 {
		require.Equal(t, dense.Test(p) && runny.Test(p), got.Test(p))
	}

	got = dense.Clone()
	got.Or(full)
	require.Equal(t, BlockBits, got.Count())
}
