package uwa

import (
	"context"
	"errors"
	"fmt"

	"github.com/barracuda156/uwaindex/subst"
	"github.com/barracuda156/uwaindex/term"
)

// maxFinalizeRounds bounds finalize's fixed-point loop. Each round
// either drops or shrinks/changes at least one constraint (spec.md §8
// P6); a round touching none of them is the fixed point and breaks the
// loop well before this bound. It exists only as an invariant backstop
// against a handler that violates monotonicity.
const maxFinalizeRounds = 10000

// Checkpoint is an opaque position in both the substitution's journal
// and the constraint store, returned by AbstractingUnifier.Checkpoint
// and consumed by Rollback.
type Checkpoint struct {
	sub  subst.Checkpoint
	cons int
}

// AbstractingUnifier is the worklist-based unifier of spec.md §4.4: a
// Robinson unifier whose mismatch handling is delegated to a Handler,
// able to defer unsolvable subproblems into a ConstraintStore instead
// of failing.
type AbstractingUnifier struct {
	sigma       *subst.Substitution
	constraints *ConstraintStore
	handler     *Handler
	fixedPoint  bool
}

// NewAbstractingUnifier creates a unifier over store's term space,
// dispatching mismatches to handler. fixedPoint enables the finalize
// pass (spec.md §4.4 "fixed-point iteration") after every successful
// top-level Unify call.
func NewAbstractingUnifier(store *term.Store, handler *Handler, fixedPoint bool) *AbstractingUnifier {
	return &AbstractingUnifier{
		sigma:       subst.New(store),
		constraints: &ConstraintStore{},
		handler:     handler,
		fixedPoint:  fixedPoint,
	}
}

// Subst returns the unifier's substitution.
func (u *AbstractingUnifier) Subst() *subst.Substitution { return u.sigma }

// Constraints returns the unifier's residual constraint store.
func (u *AbstractingUnifier) Constraints() *ConstraintStore { return u.constraints }

// Handler returns the mismatch handler this unifier consults, so a
// caller driving its own worklist (the substitution tree traversal)
// can classify a pair itself without going through Step.
func (u *AbstractingUnifier) Handler() *Handler { return u.handler }

// IsACRouted reports whether functor should bypass ordinary
// decomposition because the active policy is neither Off nor FuncExt
// and functor is declared AC.
func (u *AbstractingUnifier) IsACRouted(functor string) bool { return u.isACRouted(functor) }

// Checkpoint records the current position of both the substitution
// and the constraint store.
func (u *AbstractingUnifier) Checkpoint() Checkpoint {
	return Checkpoint{sub: u.sigma.Checkpoint(), cons: len(u.constraints.pairs)}
}

// Rollback undoes every binding and every constraint recorded since cp.
func (u *AbstractingUnifier) Rollback(cp Checkpoint) {
	u.sigma.Rollback(cp.sub)
	u.constraints.pairs = u.constraints.pairs[:cp.cons]
}

// Unify attempts to unify a (under bank ab) with b (under bank bb),
// consulting the handler on every mismatch and the occurs check. It
// reports (true, nil) on success — possibly leaving residual
// constraints behind, materialise them with Constraints().Literals —
// and (false, nil) on failure, in which case every binding and
// constraint this call made has already been rolled back. A non-nil
// error means ErrInvariantViolation: a condition the algorithm itself
// rules out.
func (u *AbstractingUnifier) Unify(ctx context.Context, a term.Term, ab subst.Bank, b term.Term, bb subst.Bank) (bool, error) {
	cp := u.Checkpoint()

	if err := u.runWorklist(ctx, []Pair{{a, ab, b, bb}}); err != nil {
		u.Rollback(cp)
		if errors.Is(err, ErrFail) {
			return false, nil
		}
		return false, err
	}

	if u.fixedPoint {
		if err := u.finalize(ctx); err != nil {
			u.Rollback(cp)
			if errors.Is(err, ErrFail) {
				return false, nil
			}
			return false, err
		}
	}

	return true, nil
}

// Step performs exactly one iteration of the worklist algorithm on a
// single pending pair: deref both sides, bind a variable, decompose a
// matching compound, or consult the handler on a genuine mismatch.
// It never loops itself — a substitution tree walks its own nodes in
// lockstep with the pairs Step hands back, rather than letting Step
// resolve an entire subtree in one call — which is what lets the tree
// share this exact engine instead of reimplementing unification.
//
// ok is false and err is nil when the pair is a definitive failure
// (the handler said Fail, or an occurs-check-free Bind error would be
// an invariant violation reported instead via err). more holds zero
// or more pairs the caller must still resolve, in the same LIFO
// convention runWorklist itself uses (push in the order returned,
// process from the end).
func (u *AbstractingUnifier) Step(ctx context.Context, p Pair) (more []Pair, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s, sb := u.sigma.DerefTerm(p.S, p.SB)
	t, tb := u.sigma.DerefTerm(p.T, p.TB)

	if s == t && sb == tb {
		return nil, true, nil
	}

	mismatch := false
	switch {
	case term.IsVariable(s):
		if err := u.sigma.Bind(subst.BankedVar{Var: s.(*term.Var), Bank: sb}, t, tb); err != nil {
			if !errors.Is(err, subst.ErrOccursCheck) {
				return nil, false, fmt.Errorf("%w: Bind: %s", ErrInvariantViolation, err)
			}
			mismatch = true
		}
	case term.IsVariable(t):
		if err := u.sigma.Bind(subst.BankedVar{Var: t.(*term.Var), Bank: tb}, s, sb); err != nil {
			if !errors.Is(err, subst.ErrOccursCheck) {
				return nil, false, fmt.Errorf("%w: Bind: %s", ErrInvariantViolation, err)
			}
			mismatch = true
		}
	default:
		sc, sIsCompound := s.(*term.Compound)
		tc, tIsCompound := t.(*term.Compound)
		switch {
		case sIsCompound && tIsCompound && sc.Functor() == tc.Functor() && sc.Arity() == tc.Arity() && !u.isACRouted(sc.Functor()):
			for i := 0; i < sc.Arity(); i++ {
				more = append(more, Pair{sc.Arg(i), sb, tc.Arg(i), tb})
			}
		default:
			mismatch = true
		}
	}

	if !mismatch {
		return more, true, nil
	}

	res, err := u.handler.Classify(s, sb, t, tb, u.sigma)
	if err != nil {
		return nil, false, err
	}
	switch res.Kind {
	case ResultFail:
		return nil, false, nil
	case ResultAbstract:
		if len(res.Pairs) != 1 {
			return nil, false, fmt.Errorf("%w: handler returned %d pairs for Abstract", ErrInvariantViolation, len(res.Pairs))
		}
		u.constraints.Add(res.Pairs[0])
		return nil, true, nil
	case ResultUnify:
		return res.Pairs, true, nil
	default:
		return nil, false, fmt.Errorf("%w: unknown result kind %d", ErrInvariantViolation, res.Kind)
	}
}

// runWorklist drains wl, a stack of pending pairs, mutating u.sigma
// and u.constraints in place by repeatedly calling Step. Pairs are
// popped LIFO: since argument pairs of a decomposed compound are
// pushed left-to-right, the rightmost argument is processed first.
// This ordering is observable whenever a mismatch handler's residue
// depends on which sibling variable has already been bound by the
// time it runs — the AC1/AC2 tests in spec.md §8 are only reproducible
// with this discipline.
func (u *AbstractingUnifier) runWorklist(ctx context.Context, wl []Pair) error {
	for len(wl) > 0 {
		p := wl[len(wl)-1]
		wl = wl[:len(wl)-1]

		more, ok, err := u.Step(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			return ErrFail
		}
		wl = append(wl, more...)
	}
	return nil
}

// RunPairs is runWorklist exposed for callers (the substitution tree)
// that have their own pairs left over from a Step call and want the
// same fixed-point-free worklist draining Unify itself uses.
func (u *AbstractingUnifier) RunPairs(ctx context.Context, pairs []Pair) error {
	return u.runWorklist(ctx, pairs)
}

// Finalize runs one fixed-point pass over the residual constraint
// store, exposed for callers that drive their own per-pair worklist
// (the substitution tree) and want finalize's behaviour applied once
// a full match has been assembled, rather than only at the end of a
// top-level Unify call.
func (u *AbstractingUnifier) Finalize(ctx context.Context) error {
	if err := u.finalize(ctx); err != nil {
		if errors.Is(err, ErrFail) {
			return ErrFail
		}
		return err
	}
	return nil
}

// isACRouted reports whether a same-functor, same-arity pair at functor
// should bypass ordinary decomposition and go to the handler instead,
// because functor is AC and the active policy is willing to treat it
// specially (spec.md §4.3: "abstracted at the top of any + node"). This
// is not limited to AC1/AC2: INTERP_ONLY and ONE_INTERP also need the
// whole pair, not its decomposed arguments, since a theory compound
// like 1+1 is interpreted as one atomic value, not a structure to
// recurse into (spec.md §8 scenario 2). Off and FuncExt are the
// policies under which an AC functor decomposes like any other
// compound: FuncExt's handler only abstracts arrow-sorted pairs, so
// routing a sum to it would fail a pair that decomposition can solve.
func (u *AbstractingUnifier) isACRouted(functor string) bool {
	return u.handler.UWA != Off && u.handler.UWA != FuncExt && u.handler.Sig.IsACFunctor(functor)
}

// finalize re-examines every residual constraint against the current
// substitution, dropping pairs that have become syntactically equal,
// re-running the full worklist algorithm (so a pair may now decompose,
// bind further variables, or hit the handler again with a smaller
// residue) on the rest, and failing the whole call if any pair is now
// a genuine contradiction. It iterates to a fixed point: spec.md §8 P6
// guarantees each round either drops a constraint, shrinks/changes one,
// or leaves the store untouched, in which case the loop stops.
func (u *AbstractingUnifier) finalize(ctx context.Context) error {
	for round := 0; round < maxFinalizeRounds; round++ {
		current := u.constraints.pairs
		u.constraints.pairs = nil
		changed := false

		for _, c := range current {
			appliedL := u.sigma.Apply(c.S, c.SB)
			appliedR := u.sigma.Apply(c.T, c.TB)
			if appliedL == appliedR {
				changed = true
				continue
			}

			before := len(u.constraints.pairs)
			if err := u.runWorklist(ctx, []Pair{{appliedL, c.SB, appliedR, c.TB}}); err != nil {
				return err
			}
			added := u.constraints.pairs[before:]
			switch {
			case len(added) == 0:
				changed = true
			case len(added) == 1 && samePair(added[0], c):
				// unchanged: re-classified to exactly what was already stored
			default:
				changed = true
			}
		}

		if !changed {
			return nil
		}
	}
	return fmt.Errorf("%w: finalize did not reach a fixed point within %d rounds", ErrInvariantViolation, maxFinalizeRounds)
}

func samePair(a, b Pair) bool {
	return a.S == b.S && a.SB == b.SB && a.T == b.T && a.TB == b.TB
}
