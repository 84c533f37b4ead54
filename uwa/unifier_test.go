package uwa_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barracuda156/uwaindex/subst"
	"github.com/barracuda156/uwaindex/term"
	"github.com/barracuda156/uwaindex/uwa"
)

type fixture struct {
	store   *term.Store
	intSort *term.Sort
}

func newFixture() *fixture {
	s := term.NewStore()
	return &fixture{store: s, intSort: s.InternAtomicSort("Int")}
}

func (f *fixture) v(idx int) *term.Var { return f.store.Variable(idx, f.intSort) }
func (f *fixture) c(functor string, args ...term.Term) *term.Compound {
	return f.store.MustIntern(functor, args, f.intSort)
}
func (f *fixture) plus(a, b term.Term) term.Term { return f.c("+", a, b) }

func (f *fixture) num(s string) *term.Numeral {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		panic(err)
	}
	return f.store.Numeral(&d, f.intSort)
}

func newUnifier(f *fixture, policy uwa.UnificationWithAbstraction, fixedPoint bool) *uwa.AbstractingUnifier {
	h := uwa.NewHandler(policy, f.store)
	return uwa.NewAbstractingUnifier(f.store, h, fixedPoint)
}

// Off behaves as plain Robinson unification: a genuine mismatch fails
// outright, with every binding rolled back.
func TestUnify_OffFailsOnMismatch(t *testing.T) {
	f := newFixture()
	u := newUnifier(f, uwa.Off, false)

	x := f.v(0)
	a, b := f.c("a"), f.c("b")
	fa := f.c("f", x)
	fb := f.c("f", b)
	_ = a

	ok, err := u.Unify(context.Background(), fa, subst.Query, fb, subst.Result)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, b, u.Subst().Apply(x, subst.Query))

	g1 := f.c("g", f.c("a"))
	g2 := f.c("g", f.c("b"))
	ok, err = u.Unify(context.Background(), g1, subst.Query, g2, subst.Result)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, u.Constraints().Len())
}

// INTERP_ONLY defers a mismatch between two interpreted numerals and
// leaves a residual disequality rather than failing.
func TestUnify_InterpOnlyDefersNumeralMismatch(t *testing.T) {
	f := newFixture()
	u := newUnifier(f, uwa.InterpOnly, false)

	one, two := f.num("1"), f.num("2")
	ok, err := u.Unify(context.Background(), one, subst.Query, two, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, u.Constraints().Len())

	lits := u.Constraints().Literals(u.Subst())
	require.Len(t, lits, 1)
	assert.False(t, lits[0].Positive)
	assert.True(t, lits[0].IsEquality())
}

// INTERP_ONLY still fails a mismatch where only one side is interpreted.
func TestUnify_InterpOnlyFailsMixedMismatch(t *testing.T) {
	f := newFixture()
	u := newUnifier(f, uwa.InterpOnly, false)

	one := f.num("1")
	a := f.c("a")
	ok, err := u.Unify(context.Background(), one, subst.Query, a, subst.Result)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ONE_INTERP abstracts as soon as either side is interpreted.
func TestUnify_OneInterpDefersMixedMismatch(t *testing.T) {
	f := newFixture()
	u := newUnifier(f, uwa.OneInterp, false)

	one := f.num("1")
	a := f.c("a")
	ok, err := u.Unify(context.Background(), one, subst.Query, a, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, u.Constraints().Len())
}

// ONE_INTERP must not decompose a top-level AC-functor mismatch
// argument by argument: spec.md §8 scenario 2 unifies 2+b against
// 1+a and expects b to stay free with the whole pair deferred as one
// constraint {2+b ≢ 1+a}, not b bound to 1 with a separate {2≢1}.
func TestUnify_OneInterpDefersACFunctorPairWholesale(t *testing.T) {
	f := newFixture()
	u := newUnifier(f, uwa.OneInterp, false)

	b := f.v(0)
	query := f.plus(f.num("2"), b)
	stored := f.plus(f.num("1"), f.c("a"))

	ok, err := u.Unify(context.Background(), query, subst.Query, stored, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, u.Subst().Bound(subst.BankedVar{Var: b, Bank: subst.Query}))
	require.Equal(t, 1, u.Constraints().Len())
}

// The same scenario against 1+1 (both arguments interpreted) defers
// identically: b stays free, one constraint for the whole pair.
func TestUnify_OneInterpDefersACFunctorPairWholesaleBothInterpreted(t *testing.T) {
	f := newFixture()
	u := newUnifier(f, uwa.OneInterp, false)

	b := f.v(0)
	query := f.plus(f.num("2"), b)
	stored := f.plus(f.num("1"), f.num("1"))

	ok, err := u.Unify(context.Background(), query, subst.Query, stored, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, u.Subst().Bound(subst.BankedVar{Var: b, Bank: subst.Query}))
	require.Equal(t, 1, u.Constraints().Len())
}

// FUNC_EXT abstracts a head mismatch between two arrow-sorted constants.
func TestUnify_FuncExtDefersArrowMismatch(t *testing.T) {
	f := newFixture()
	arrow := f.store.InternArrowSort(f.intSort, f.intSort)
	f1 := f.store.MustIntern("f1", nil, arrow)
	f2 := f.store.MustIntern("f2", nil, arrow)

	u := newUnifier(f, uwa.FuncExt, false)
	ok, err := u.Unify(context.Background(), f1, subst.Query, f2, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, u.Constraints().Len())
}

// spec.md §8 worked scenario 3: f3(x,x,ap(h,f1)) vs f3(ap(h,f2),y,y)
// under FUNC_EXT unifies the whole query, with the genuine arrow-sorted
// head mismatch (f1 vs f2) deferred as a constraint.
func TestUnify_FuncExtWorkedScenario(t *testing.T) {
	f := newFixture()
	arrow := f.store.InternArrowSort(f.intSort, f.intSort)
	h := f.store.MustIntern("h", nil, f.store.InternArrowSort(arrow, arrow))
	f1 := f.store.MustIntern("f1", nil, arrow)
	f2 := f.store.MustIntern("f2", nil, arrow)
	apH := func(g term.Term) term.Term {
		app, err := f.store.Apply(h, g)
		require.NoError(t, err)
		return app
	}

	x, y := f.store.Variable(0, arrow), f.store.Variable(1, arrow)
	term1 := f.c("f3", x, x, apH(f1))
	term2 := f.c("f3", apH(f2), y, y)

	u := newUnifier(f, uwa.FuncExt, false)
	ok, err := u.Unify(context.Background(), term1, subst.Query, term2, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, u.Constraints().Len())

	lits := u.Constraints().Literals(u.Subst())
	require.Len(t, lits, 1)
	assert.ElementsMatch(t, []term.Term{f1, f2}, lits[0].Args)
}

// spec.md §8 worked scenario 4: f2(x, a+x) vs f2(c, b+a) under AC1
// succeeds with x ↦ c and a single residual constraint c ≢ b.
func TestUnify_AC1WorkedScenario(t *testing.T) {
	f := newFixture()
	a, b, c := f.c("a"), f.c("b"), f.c("c")
	x := f.v(0)

	term1 := f.c("f2", x, f.plus(a, x))
	term2 := f.c("f2", c, f.plus(b, a))

	u := newUnifier(f, uwa.AC1, false)
	ok, err := u.Unify(context.Background(), term1, subst.Query, term2, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Same(t, c, u.Subst().Apply(x, subst.Query))
	require.Equal(t, 1, u.Constraints().Len())

	lits := u.Constraints().Literals(u.Subst())
	assert.ElementsMatch(t, []term.Term{c, b}, lits[0].Args)
}

// spec.md §8 worked scenario 4, second half: the same AC1 mismatch
// that succeeds with a residual constraint when fixed-point iteration
// is off fails outright once it is on, because finalize cannot close
// c ≢ b (two distinct ground constants, no AC functor in sight).
func TestUnify_AC1FixedPointCanTurnResultIntoFailure(t *testing.T) {
	f := newFixture()
	a, b, c := f.c("a"), f.c("b"), f.c("c")
	x := f.v(0)

	term1 := f.c("f2", x, f.plus(a, x))
	term2 := f.c("f2", c, f.plus(b, a))

	u := newUnifier(f, uwa.AC1, true)
	ok, err := u.Unify(context.Background(), term1, subst.Query, term2, subst.Result)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, u.Subst().Bound(subst.BankedVar{Var: x, Bank: subst.Query}))
}

// Ported from original_source's ac_bug_01: a ground AC mismatch with a
// repeated summand on the left peels only the exactly-matching
// elements, deferring the rebuilt residues rather than the whole pair.
func TestUnify_AC1PeelsExactDuplicatesOnly(t *testing.T) {
	f := newFixture()
	a, b, c, x, y := f.c("a"), f.c("b"), f.c("c"), f.v(0), f.v(1)

	left := f.plus(f.plus(f.plus(a, b), c), a) // a+b+c+a
	right := f.plus(f.plus(f.plus(a, b), x), y) // a+b+x+y

	u := newUnifier(f, uwa.AC1, false)
	ok, err := u.Unify(context.Background(), left, subst.Query, right, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, u.Constraints().Len())

	lits := u.Constraints().Literals(u.Subst())
	wantL := f.plus(c, a)
	wantR := f.plus(x, y)
	assert.ElementsMatch(t, []term.Term{wantL, wantR}, lits[0].Args)
}

// Ported from original_source's ac_test_02_AC1_bad(+fixedPointIteration):
// without the fixed point the deferred pair keeps an unresolved
// variable; with it enabled, finalize re-peels once that variable has
// been bound elsewhere and the constraint shrinks.
func TestUnify_AC1FixedPointShrinksConstraint(t *testing.T) {
	f := newFixture()
	a, b, c := f.c("a"), f.c("b"), f.c("c")
	x, y, z := f.v(0), f.v(1), f.v(2)

	term1 := f.c("f2", c, f.plus(f.plus(a, b), c))
	term2 := f.c("f2", z, f.plus(f.plus(x, y), z))

	run := func(fixedPoint bool) *uwa.AbstractingUnifier {
		u := newUnifier(f, uwa.AC1, fixedPoint)
		ok, err := u.Unify(context.Background(), term1, subst.Query, term2, subst.Result)
		require.NoError(t, err)
		require.True(t, ok)
		return u
	}

	without := run(false)
	require.Equal(t, 1, without.Constraints().Len())
	litsWithout := without.Constraints().Literals(without.Subst())
	abc := f.plus(f.plus(a, b), c)
	xyc := f.plus(f.plus(x, y), c)
	assert.ElementsMatch(t, []term.Term{abc, xyc}, litsWithout[0].Args)

	with := run(true)
	require.Equal(t, 1, with.Constraints().Len())
	litsWith := with.Constraints().Literals(with.Subst())
	ab := f.plus(a, b)
	xy := f.plus(x, y)
	assert.ElementsMatch(t, []term.Term{ab, xy}, litsWith[0].Args)
}

// Ported from original_source's ac2_test_01: AC2's singleton-residue
// recursion lets it bind a variable (x ↦ c) that AC1 would instead
// report as a constraint.
func TestUnify_AC2ResolvesSingletonResidue(t *testing.T) {
	f := newFixture()
	a, b, c := f.c("a"), f.c("b"), f.c("c")
	x := f.v(0)

	term1 := f.c("f2", x, f.plus(f.plus(a, b), c))
	term2 := f.c("f2", x, f.plus(f.plus(x, b), a))

	u := newUnifier(f, uwa.AC2, false)
	ok, err := u.Unify(context.Background(), term1, subst.Query, term2, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, u.Constraints().Len())
	assert.Same(t, c, u.Subst().Apply(x, subst.Query))
}

// Ported from original_source's ac2_test_02_bad: the worklist's LIFO
// discipline means the "+" pair is classified before the sibling f2
// pair has bound y, so AC2's residue ends up with two elements on each
// side (no singleton shortcut) and the whole residual sum is deferred;
// materialising the constraint afterwards still reflects y's binding.
func TestUnify_AC2DefersWhenResidueIsNotSingleton(t *testing.T) {
	f := newFixture()
	a, b, c := f.c("a"), f.c("b"), f.c("c")
	x, y := f.v(0), f.v(1)

	term1 := f.c("f2", f.c("f2", x, b), f.plus(f.plus(a, b), c))
	term2 := f.c("f2", f.c("f2", x, y), f.plus(f.plus(x, y), a))

	u := newUnifier(f, uwa.AC2, false)
	ok, err := u.Unify(context.Background(), term1, subst.Query, term2, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, b, u.Subst().Apply(y, subst.Result))

	require.Equal(t, 1, u.Constraints().Len())
	lits := u.Constraints().Literals(u.Subst())
	wantL := f.plus(b, c)
	wantR := f.plus(x, b)
	assert.ElementsMatch(t, []term.Term{wantL, wantR}, lits[0].Args)
}

// Checkpoint/Rollback must undo constraints as well as bindings.
func TestUnify_RollbackUndoesConstraints(t *testing.T) {
	f := newFixture()
	u := newUnifier(f, uwa.InterpOnly, false)

	cp := u.Checkpoint()
	one, two := f.num("1"), f.num("2")
	ok, err := u.Unify(context.Background(), one, subst.Query, two, subst.Result)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, u.Constraints().Len())

	u.Rollback(cp)
	assert.Equal(t, 0, u.Constraints().Len())
}

// A failed unification leaves no trace at all, even partway through a
// larger compound: the bindings made on an earlier sibling are rolled
// back together with the constraint store.
func TestUnify_FailureRollsBackPartialBindings(t *testing.T) {
	f := newFixture()
	u := newUnifier(f, uwa.Off, false)

	x := f.v(0)
	a, b, e := f.c("a"), f.c("b"), f.c("e")

	// x sits in the rightmost argument so the LIFO worklist binds it
	// before the g(a)/g(b) pair fails.
	term1 := f.c("pair", f.c("g", a), x)
	term2 := f.c("pair", f.c("g", b), e)

	ok, err := u.Unify(context.Background(), term1, subst.Query, term2, subst.Result)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, u.Subst().Bound(subst.BankedVar{Var: x, Bank: subst.Query}))
}
