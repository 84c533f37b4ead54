package subst

import "github.com/barracuda156/uwaindex/term"

// binding is one entry of the append-only journal: v is bound to t,
// whose free variables are to be read under bank.
type binding struct {
	v    BankedVar
	t    term.Term
	bank Bank
}

// Checkpoint is an opaque journal position returned by Checkpoint and
// consumed by Rollback.
type Checkpoint int

// Substitution is a partial mapping from banked variables to terms,
// maintained as an append-only binding journal rather than a pointer
// union-find forest (spec.md §9 "Backtracking over substitution"):
// Checkpoint records the journal length, Rollback truncates it. This
// keeps the inner loop of the tree traversal allocation-free on the
// success path and O(1) on the backtrack path.
type Substitution struct {
	store   *term.Store
	journal []binding
	index   map[BankedVar]int
}

// New creates an empty substitution over store, used to reconstruct
// compound terms when Apply rewrites a subterm.
func New(store *term.Store) *Substitution {
	return &Substitution{store: store, index: map[BankedVar]int{}}
}

// Checkpoint returns the current journal length.
func (s *Substitution) Checkpoint() Checkpoint { return Checkpoint(len(s.journal)) }

// Rollback undoes every binding made since cp, in stack discipline.
func (s *Substitution) Rollback(cp Checkpoint) {
	for i := len(s.journal) - 1; i >= int(cp); i-- {
		delete(s.index, s.journal[i].v)
	}
	s.journal = s.journal[:cp]
}

// Bound reports whether v already has a binding.
func (s *Substitution) Bound(v BankedVar) bool {
	_, ok := s.index[v]
	return ok
}

// Deref performs the path-compression-free union-find lookup named in
// spec.md §4.2: it follows the journal until it reaches either an
// unbound variable or a non-variable term, returning that term
// together with the bank its free variables live in.
func (s *Substitution) Deref(v BankedVar) (term.Term, Bank) {
	for {
		idx, ok := s.index[v]
		if !ok {
			return v.Var, v.Bank
		}
		b := s.journal[idx]
		if vv, ok := b.t.(*term.Var); ok {
			v = BankedVar{Var: vv, Bank: b.bank}
			continue
		}
		return b.t, b.bank
	}
}

// DerefTerm derefs t under bank if t is a variable; otherwise returns
// t and bank unchanged. This is the step the unifier's worklist loop
// uses before inspecting either side of a pending pair.
func (s *Substitution) DerefTerm(t term.Term, bank Bank) (term.Term, Bank) {
	if v, ok := t.(*term.Var); ok {
		return s.Deref(BankedVar{Var: v, Bank: bank})
	}
	return t, bank
}

// contains implements the occurs check: does t, read under bank,
// mention v (after fully following any indirection through the
// journal)?
func (s *Substitution) contains(v BankedVar, t term.Term, bank Bank) bool {
	switch x := t.(type) {
	case *term.Var:
		bv := BankedVar{Var: x, Bank: bank}
		if bv == v {
			return true
		}
		resolved, rb := s.Deref(bv)
		if rv, ok := resolved.(*term.Var); ok && rv == x && rb == bank {
			return false
		}
		return s.contains(v, resolved, rb)
	case *term.Compound:
		for _, a := range x.Args() {
			if s.contains(v, a, bank) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Bind records v ↦ (t, bank). It fails with ErrAlreadyBound if v is
// already bound, and with ErrOccursCheck if t mentions v after
// dereferencing (spec.md §4.2). The mismatch handler may deliberately
// bypass the occurs check by choosing Abstract instead of calling
// Bind; Bind itself never relaxes it.
func (s *Substitution) Bind(v BankedVar, t term.Term, bank Bank) error {
	if s.Bound(v) {
		return ErrAlreadyBound
	}
	if s.contains(v, t, bank) {
		return ErrOccursCheck
	}
	s.journal = append(s.journal, binding{v: v, t: t, bank: bank})
	s.index[v] = len(s.journal) - 1
	return nil
}

// Apply returns the fully dereferenced term of t, read under bank
// (spec.md §4.2). Apply is a pure function of the substitution at the
// time it is called: it never observes bindings made afterwards, and
// repeated calls with the same arguments and the same journal state
// return the same (hash-consed) term, making it idempotent on its own
// output (invariant I2).
func (s *Substitution) Apply(t term.Term, bank Bank) term.Term {
	switch x := t.(type) {
	case *term.Var:
		resolved, rb := s.Deref(BankedVar{Var: x, Bank: bank})
		if rv, ok := resolved.(*term.Var); ok && rv == x && rb == bank {
			return x
		}
		return s.Apply(resolved, rb)
	case *term.Compound:
		args := x.Args()
		newArgs := make([]term.Term, len(args))
		changed := false
		for i, a := range args {
			newArgs[i] = s.Apply(a, bank)
			if newArgs[i] != a {
				changed = true
			}
		}
		if !changed {
			return x
		}
		return s.store.MustIntern(x.Functor(), newArgs, x.Sort())
	default:
		return t
	}
}

// Store returns the term store this substitution reconstructs
// applied compounds against.
func (s *Substitution) Store() *term.Store { return s.store }
