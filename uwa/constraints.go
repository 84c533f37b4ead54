package uwa

import (
	"github.com/barracuda156/uwaindex/subst"
	"github.com/barracuda156/uwaindex/term"
)

// Pair is an unordered pair of terms under their respective banks,
// used both as a pending unification subproblem and, once abstracted,
// as a stored residual disequality constraint.
type Pair struct {
	S  term.Term
	SB subst.Bank
	T  term.Term
	TB subst.Bank
}

// ConstraintStore holds the set of deferred disequalities C named in
// spec.md §3: pairs are kept unapplied, and Literals materialises them
// against the current substitution only on demand.
type ConstraintStore struct {
	pairs []Pair
}

// Len reports how many residual constraints are currently stored.
func (c *ConstraintStore) Len() int { return len(c.pairs) }

// Add appends p to the store.
func (c *ConstraintStore) Add(p Pair) { c.pairs = append(c.pairs, p) }

// Snapshot returns the current constraints, in insertion order. The
// returned slice must not be mutated by the caller.
func (c *ConstraintStore) Snapshot() []Pair { return c.pairs }

// Literals materialises every stored pair as a negative equality
// literal s ≢ t, applying sigma to both sides first (spec.md §3:
// "C.literals(σ) materialises them as literals").
func (c *ConstraintStore) Literals(sigma *subst.Substitution) []*term.Literal {
	out := make([]*term.Literal, len(c.pairs))
	for i, p := range c.pairs {
		s := sigma.Apply(p.S, p.SB)
		t := sigma.Apply(p.T, p.TB)
		out[i] = term.NewEquality(s, t, false)
	}
	return out
}
