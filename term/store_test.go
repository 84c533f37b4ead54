package term_test

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barracuda156/uwaindex/term"
)

func TestStore_InternSharesStructurallyEqualTerms(t *testing.T) {
	s := term.NewStore()
	intSort := s.InternAtomicSort("Int")

	a := s.MustIntern("a", nil, intSort)
	a2 := s.MustIntern("a", nil, intSort)
	assert.Same(t, a, a2, "structurally equal constants must be the same value")

	x := s.Variable(0, intSort)
	f1 := s.MustIntern("f", []term.Term{x}, intSort)
	f2 := s.MustIntern("f", []term.Term{s.Variable(0, intSort)}, intSort)
	assert.Same(t, f1, f2)
}

func TestStore_DistinctShapesAreDistinct(t *testing.T) {
	s := term.NewStore()
	intSort := s.InternAtomicSort("Int")
	a := s.MustIntern("a", nil, intSort)
	b := s.MustIntern("b", nil, intSort)
	assert.NotSame(t, a, b)

	f1 := s.MustIntern("f", []term.Term{a}, intSort)
	f2 := s.MustIntern("f", []term.Term{b}, intSort)
	assert.NotSame(t, f1, f2)
}

func TestStore_NumeralInterning(t *testing.T) {
	s := term.NewStore()
	intSort := s.InternAtomicSort("Int")

	var d apd.Decimal
	_, _, err := d.SetString("1")
	require.NoError(t, err)

	n1 := s.Numeral(&d, intSort)
	n2 := s.Numeral(&d, intSort)
	assert.Same(t, n1, n2)
	assert.Equal(t, 0, n1.Value().Cmp(&d))
}

func TestStore_IsInterpreted(t *testing.T) {
	s := term.NewStore()
	intSort := s.InternAtomicSort("Int")
	var one apd.Decimal
	_, _, _ = one.SetString("1")
	n := s.Numeral(&one, intSort)

	plus := s.MustIntern("+", []term.Term{n, n}, intSort)
	assert.True(t, plus.IsInterpreted())

	uninterpreted := s.MustIntern("f", []term.Term{n}, intSort)
	assert.False(t, uninterpreted.IsInterpreted())
}

func TestStore_ArrowSortAndApply(t *testing.T) {
	s := term.NewStore()
	intSort := s.InternAtomicSort("Int")
	arrow := s.InternArrowSort(intSort, intSort)
	require.True(t, arrow.IsArrow())

	h := s.Variable(0, arrow)
	arg := s.MustIntern("a", nil, intSort)
	app, err := s.Apply(h, arg)
	require.NoError(t, err)
	assert.True(t, app.IsApply())
	assert.Same(t, intSort, app.Sort())
}

func TestStore_MemoryLimitFailureIsErrOutOfMemory(t *testing.T) {
	s := term.NewStore(term.WithMemoryLimit(1))
	intSort := s.InternAtomicSort("Int")
	// A limit this tight only matters if the runtime genuinely reports
	// negative headroom; this test documents the contract rather than
	// forcing OOM (which depends on runtime.MemStats at test time).
	_, err := s.Intern("a", nil, intSort)
	if err != nil {
		assert.ErrorIs(t, err, term.ErrOutOfMemory)
	}
}

func TestCompareSeq_OrdersByInterningSequence(t *testing.T) {
	s := term.NewStore()
	intSort := s.InternAtomicSort("Int")
	a := s.MustIntern("a", nil, intSort)
	b := s.MustIntern("b", nil, intSort)
	assert.Equal(t, -1, term.CompareSeq(a, b))
	assert.Equal(t, 1, term.CompareSeq(b, a))
	assert.Equal(t, 0, term.CompareSeq(a, a))
}
