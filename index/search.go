package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/barracuda156/uwaindex/subst"
	"github.com/barracuda156/uwaindex/term"
	"github.com/barracuda156/uwaindex/uwa"
)

// matchFunc receives every leaf index a successful traversal path
// reaches, with the unifier's substitution and constraint store
// reflecting that path's bindings for the duration of the call. It
// returns whether the search should stop (true) or keep looking for
// further matches (false).
type matchFunc func(li int) (bool, error)

// search walks every alternative in the tree against query (read
// under bank qb through u), calling emit once per leaf reached on a
// successful path, with bindings rolled back the moment that path is
// exhausted. It holds the tree's read lock for its entire duration:
// GetUwa's iterator must be drained (or abandoned by a yield
// returning false) before any Insert/Remove on the same tree can
// proceed.
func (t *tree) search(ctx context.Context, u *uwa.AbstractingUnifier, query term.Term, qb subst.Bank, fixedPoint bool, emit matchFunc) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cont := func(h handle) (bool, error) {
		if fixedPoint {
			if err := u.Finalize(ctx); err != nil {
				if errors.Is(err, uwa.ErrFail) {
					return false, nil
				}
				return false, err
			}
		}
		n := t.node(h)
		for _, li := range n.leaves {
			if t.leaves[li].removed {
				continue
			}
			stop, err := emit(li)
			if err != nil || stop {
				return true, err
			}
		}
		return false, nil
	}

	_, err := t.searchPos(ctx, u, t.rootAlts, query, qb, cont)
	return err
}

// searchPos tries every alternative at one tree position in turn,
// short-circuiting as soon as one of them reports stop=true.
func (t *tree) searchPos(ctx context.Context, u *uwa.AbstractingUnifier, pos []handle, qTerm term.Term, qBank subst.Bank, cont func(handle) (bool, error)) (bool, error) {
	for _, h := range pos {
		stop, err := t.searchAlt(ctx, u, h, qTerm, qBank, cont)
		if err != nil || stop {
			return stop, err
		}
	}
	return false, nil
}

func (t *tree) searchAlt(ctx context.Context, u *uwa.AbstractingUnifier, h handle, qTerm term.Term, qBank subst.Bank, cont func(handle) (bool, error)) (bool, error) {
	n := t.node(h)
	switch n.kind {
	case kindVar, kindConst, kindAC, kindBackref:
		repr, err := t.representative(h)
		if err != nil {
			return false, err
		}
		cp := u.Checkpoint()
		ok, err := t.unifyAtomic(ctx, u, qTerm, qBank, repr)
		if err != nil {
			u.Rollback(cp)
			return false, err
		}
		if !ok {
			u.Rollback(cp)
			return false, nil
		}
		stop, err := cont(h)
		u.Rollback(cp)
		return stop, err
	case kindFunc:
		return t.searchFunc(ctx, u, n, qTerm, qBank, cont)
	default:
		return false, fmt.Errorf("%w: unexpected node kind %s at a tree position", ErrInvariantViolation, n.kind)
	}
}

// unifyAtomic unifies qTerm (under qBank) against whole (one of the
// tree's own representative terms, always under subst.Result) by
// driving exactly one round of the unifier's own worklist primitive,
// so an atomic tree node is unified with the same engine — and the
// same mismatch-handling policy — as a flat uwa.Unify call.
func (t *tree) unifyAtomic(ctx context.Context, u *uwa.AbstractingUnifier, qTerm term.Term, qBank subst.Bank, whole term.Term) (bool, error) {
	more, ok, err := u.Step(ctx, uwa.Pair{S: qTerm, SB: qBank, T: whole, TB: subst.Result})
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if len(more) == 0 {
		return true, nil
	}
	if err := u.RunPairs(ctx, more); err != nil {
		if errors.Is(err, uwa.ErrFail) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// searchFunc handles one kindFunc position: a free query variable
// binds directly to each combo's cached representative in turn; a
// query compound whose functor or arity doesn't match goes straight
// to the handler (mirroring what Step would do on a genuine
// mismatch); a matching compound recurses argument by argument via
// matchArgs.
func (t *tree) searchFunc(ctx context.Context, u *uwa.AbstractingUnifier, n *node, qTerm term.Term, qBank subst.Bank, cont func(handle) (bool, error)) (bool, error) {
	qd, qb := u.Subst().DerefTerm(qTerm, qBank)

	if qv, isVar := qd.(*term.Var); isVar {
		for _, comboH := range n.combos {
			combo := t.node(comboH)
			cp := u.Checkpoint()
			err := u.Subst().Bind(subst.BankedVar{Var: qv, Bank: qb}, combo.comboRepr, subst.Result)
			if err != nil {
				if !errors.Is(err, subst.ErrOccursCheck) {
					u.Rollback(cp)
					return false, fmt.Errorf("%w: Bind: %s", ErrInvariantViolation, err)
				}
				u.Rollback(cp)
				continue
			}
			stop, err := cont(comboH)
			u.Rollback(cp)
			if err != nil || stop {
				return stop, err
			}
		}
		return false, nil
	}

	qc, isCompound := qd.(*term.Compound)
	if !isCompound || qc.Functor() != n.functor || qc.Arity() != n.arity {
		for _, comboH := range n.combos {
			combo := t.node(comboH)
			cp := u.Checkpoint()
			res, err := u.Handler().Classify(qd, qb, combo.comboRepr, subst.Result, u.Subst())
			if err != nil {
				u.Rollback(cp)
				return false, err
			}
			ok, err := t.applyClassifyResult(ctx, u, res)
			if err != nil {
				u.Rollback(cp)
				return false, err
			}
			if !ok {
				u.Rollback(cp)
				continue
			}
			stop, err := cont(comboH)
			u.Rollback(cp)
			if err != nil || stop {
				return stop, err
			}
		}
		return false, nil
	}

	return t.matchArgs(ctx, u, n, qc, qb, 0, nil, cont)
}

// applyClassifyResult replays the three-way switch uwa's own worklist
// applies to a Classify verdict, for the one case the tree drives
// Classify directly instead of through Step: a functor/arity mismatch
// the tree already knows about from comparing n against qc, which
// Step would otherwise have to rediscover.
func (t *tree) applyClassifyResult(ctx context.Context, u *uwa.AbstractingUnifier, res uwa.Result) (bool, error) {
	switch res.Kind {
	case uwa.ResultFail:
		return false, nil
	case uwa.ResultAbstract:
		if len(res.Pairs) != 1 {
			return false, fmt.Errorf("%w: handler returned %d pairs for Abstract", ErrInvariantViolation, len(res.Pairs))
		}
		u.Constraints().Add(res.Pairs[0])
		return true, nil
	case uwa.ResultUnify:
		if err := u.RunPairs(ctx, res.Pairs); err != nil {
			if errors.Is(err, uwa.ErrFail) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown result kind %d", ErrInvariantViolation, res.Kind)
	}
}

// matchArgs recurses through a matched kindFunc node's arguments left
// to right. At argIdx == n.arity, chosen names one exact combo; if
// that combo exists, cont runs on it. The recursion's own
// checkpoint/rollback (one level up, in searchAlt) unwinds bindings in
// the correct reverse order as each argument's alternatives are tried
// and abandoned.
func (t *tree) matchArgs(ctx context.Context, u *uwa.AbstractingUnifier, n *node, qc *term.Compound, qb subst.Bank, argIdx int, chosen []handle, cont func(handle) (bool, error)) (bool, error) {
	if argIdx == n.arity {
		comboH, ok := n.combos[encodeComboKey(chosen)]
		if !ok {
			return false, nil
		}
		return cont(comboH)
	}
	return t.searchPos(ctx, u, n.args[argIdx], qc.Arg(argIdx), qb, func(altH handle) (bool, error) {
		next := append(append([]handle(nil), chosen...), altH)
		return t.matchArgs(ctx, u, n, qc, qb, argIdx+1, next, cont)
	})
}
