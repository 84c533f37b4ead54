package uwa

import (
	"fmt"

	"github.com/barracuda156/uwaindex/subst"
	"github.com/barracuda156/uwaindex/term"
)

// ResultKind tags a Handler's verdict on a mismatched pair.
type ResultKind int

const (
	// ResultFail means the mismatch is a genuine failure: unification
	// as a whole must back out.
	ResultFail ResultKind = iota
	// ResultAbstract means the pair should be deferred into the
	// constraint store as-is.
	ResultAbstract
	// ResultUnify means the mismatch dissolves into zero or more
	// ordinary subproblems to push back onto the worklist (used by
	// AC2's residue recursion).
	ResultUnify
)

// Result is a Handler's verdict, returned by Classify.
type Result struct {
	Kind  ResultKind
	Pairs []Pair
}

func fail() (Result, error)     { return Result{Kind: ResultFail}, nil }
func unify(p ...Pair) (Result, error) {
	return Result{Kind: ResultUnify, Pairs: p}, nil
}
func abstractPair(p Pair) (Result, error) {
	return Result{Kind: ResultAbstract, Pairs: []Pair{p}}, nil
}

// Handler is the mismatch handler described in spec.md §4.3/§9: a
// closed dispatch over UnificationWithAbstraction rather than a
// hierarchy of strategy objects, since the six variants are a fixed,
// small, non-extensible set.
type Handler struct {
	UWA   UnificationWithAbstraction
	Sig   *term.Signature
	Store *term.Store
}

// NewHandler builds a Handler for the given policy.
func NewHandler(uwa UnificationWithAbstraction, store *term.Store) *Handler {
	return &Handler{UWA: uwa, Sig: store.Signature(), Store: store}
}

// Classify decides what to do with the mismatched (or occurs-check
// failed) pair (s, t). sigma is consulted read-only: Classify never
// binds variables itself, even for ResultUnify — the caller's worklist
// does that once the returned pairs are re-enqueued.
func (h *Handler) Classify(s term.Term, sb subst.Bank, t term.Term, tb subst.Bank, sigma *subst.Substitution) (Result, error) {
	switch h.UWA {
	case Off:
		return fail()
	case InterpOnly:
		if isInterpreted(s) && isInterpreted(t) {
			return abstractPair(Pair{s, sb, t, tb})
		}
		return fail()
	case OneInterp:
		if isInterpreted(s) || isInterpreted(t) {
			return abstractPair(Pair{s, sb, t, tb})
		}
		return fail()
	case FuncExt:
		if s.Sort().IsArrow() && t.Sort().IsArrow() {
			return abstractPair(Pair{s, sb, t, tb})
		}
		return fail()
	case AC1:
		return h.classifyAC(s, sb, t, tb, sigma, false)
	case AC2:
		return h.classifyAC(s, sb, t, tb, sigma, true)
	default:
		return Result{}, fmt.Errorf("%w: unknown UnificationWithAbstraction %v", ErrInvariantViolation, h.UWA)
	}
}

func isInterpreted(t term.Term) bool {
	switch x := t.(type) {
	case *term.Numeral:
		return true
	case *term.Compound:
		return x.IsInterpreted()
	default:
		return false
	}
}

// acFunctor picks the AC functor a mismatch should be flattened on: s
// or t, whichever is a compound headed by a declared AC operator.
func acFunctor(sig *term.Signature, s, t term.Term) (string, bool) {
	if c, ok := s.(*term.Compound); ok && sig.IsACFunctor(c.Functor()) {
		return c.Functor(), true
	}
	if c, ok := t.(*term.Compound); ok && sig.IsACFunctor(c.Functor()) {
		return c.Functor(), true
	}
	return "", false
}

// classifyAC implements AC1 (peel==false) and AC2 (peel==true). Both
// flatten the AC-nest on each side into its multiset of summands and
// cancel the summands that already denote the same term under sigma.
// AC1 stops there and defers whatever is left as a single residual
// pair. AC2 additionally resolves a singleton residue by unifying it
// directly instead of deferring it — this is the "symbolic peeling"
// spec.md §4.3 credits AC2 with; it is what lets AC2 bind variables
// (e.g. x ↦ c) that AC1 would instead report as an unresolved
// constraint.
func (h *Handler) classifyAC(s term.Term, sb subst.Bank, t term.Term, tb subst.Bank, sigma *subst.Substitution, peelResidue bool) (Result, error) {
	functor, ok := acFunctor(h.Sig, s, t)
	if !ok {
		return fail()
	}

	leftRaw := term.FlattenAC(s, functor)
	rightRaw := term.FlattenAC(t, functor)
	resLeft, resRight := acCancel(leftRaw, sb, rightRaw, tb, sigma)

	switch {
	case len(resLeft) == 0 && len(resRight) == 0:
		return unify()
	case len(resLeft) == 0 || len(resRight) == 0:
		return fail()
	case peelResidue && len(resLeft) == 1 && len(resRight) == 1:
		return unify(Pair{resLeft[0], sb, resRight[0], tb})
	default:
		sort := s.Sort()
		leftSum := acRebuild(h.Store, functor, sort, resLeft)
		rightSum := acRebuild(h.Store, functor, sort, resRight)
		return abstractPair(Pair{leftSum, sb, rightSum, tb})
	}
}

// acCancel removes, summand by summand, the largest multiset
// intersection between the two sides once each summand is resolved
// under sigma, returning the raw (unapplied) leftovers on each side.
// Matching is by hash-consed identity after resolution, not by
// attempting to unify — that distinction is exactly what separates
// AC1's residue (which may still contain unifiable pairs) from AC2's
// further step.
func acCancel(leftRaw []term.Term, sb subst.Bank, rightRaw []term.Term, tb subst.Bank, sigma *subst.Substitution) (resLeft, resRight []term.Term) {
	resolvedRight := make([]term.Term, len(rightRaw))
	for i, r := range rightRaw {
		resolvedRight[i] = sigma.Apply(r, tb)
	}
	used := make([]bool, len(rightRaw))

	for _, l := range leftRaw {
		resolvedL := sigma.Apply(l, sb)
		matched := false
		for j, r := range resolvedRight {
			if used[j] {
				continue
			}
			if resolvedL == r {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			resLeft = append(resLeft, l)
		}
	}
	for j, u := range used {
		if !u {
			resRight = append(resRight, rightRaw[j])
		}
	}
	return resLeft, resRight
}

func acRebuild(store *term.Store, functor string, sort *term.Sort, elems []term.Term) term.Term {
	acc := elems[0]
	for _, e := range elems[1:] {
		acc = store.MustIntern(functor, []term.Term{acc, e}, sort)
	}
	return acc
}
