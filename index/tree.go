package index

import (
	"fmt"
	"sync"

	"github.com/barracuda156/uwaindex/term"
)

// leafRecord is one stored entry's payload. removed is a tombstone
// set by removeEntry: the arena and combos map are never compacted on
// removal, matching the teacher's own preference for an append-only
// structure over one that reshuffles live handles.
type leafRecord struct {
	data    any
	removed bool
}

// tree is the shared engine underlying both SubstitutionTree (keyed on
// a bare term) and each predicate/arity/polarity bucket of a
// LiteralSubstitutionTree (keyed on a literal's argument vector wrapped
// as one synthetic term). It is deliberately not generic over a value
// type: the leaf payload is stored as any and the two wrapper types
// narrow it back on the way out, since the alternative (threading a
// type parameter through every node and search routine) bought nothing
// a concrete pair of wrapper types don't already give.
type tree struct {
	mu    sync.RWMutex
	store *term.Store
	sig   *term.Signature

	arena    []node
	rootAlts []handle
	leaves   []leafRecord

	// nextVarIdx mints representative variables with strictly negative
	// indices, disjoint from any caller-supplied entry variable: Var's
	// own invariant is that real indices are non-negative, so negative
	// ones are free for the tree's own bookkeeping without risk of
	// colliding with a stored entry's variables once both live under
	// the Result bank.
	nextVarIdx int
}

func newTree(store *term.Store) *tree {
	return &tree{
		store:      store,
		sig:        store.Signature(),
		nextVarIdx: -1,
	}
}

func (t *tree) alloc(n node) handle {
	t.arena = append(t.arena, n)
	return handle(len(t.arena) - 1)
}

func (t *tree) node(h handle) *node { return &t.arena[h] }

func (t *tree) freshVar(sort *term.Sort) *term.Var {
	idx := t.nextVarIdx
	t.nextVarIdx--
	return t.store.Variable(idx, sort)
}

// representative returns the term that stands in for h during
// retrieval: a backref resolves to its target's own representative,
// so unifying against a backref node is indistinguishable from
// unifying against the earlier occurrence it mirrors.
func (t *tree) representative(h handle) (term.Term, error) {
	n := t.node(h)
	switch n.kind {
	case kindVar:
		return n.varRepr, nil
	case kindConst, kindAC:
		return n.whole, nil
	case kindBackref:
		return t.representative(n.backrefTarget)
	case kindCombo:
		return n.comboRepr, nil
	default:
		return nil, fmt.Errorf("%w: representative of node kind %s", ErrInvariantViolation, n.kind)
	}
}

// insert finds-or-creates the path for t under pos, extending pos in
// place, and returns the handle t resolves to. seen tracks, for this
// one insertion call, which kindVar handle a given entry-local
// variable was first assigned, so a repeated occurrence becomes a
// kindBackref instead of an independent kindVar.
func (t *tree) insert(pos *[]handle, tm term.Term, seen map[*term.Var]handle) (handle, error) {
	switch x := tm.(type) {
	case *term.Var:
		return t.insertVar(pos, x, seen)
	case *term.Compound:
		if x.Arity() == 0 {
			return t.insertAtomic(pos, kindConst, tm), nil
		}
		if t.sig.IsACFunctor(x.Functor()) {
			return t.insertAtomic(pos, kindAC, tm), nil
		}
		return t.insertCompound(pos, x, seen)
	default:
		// Any other atomic term kind (e.g. a Numeral) is keyed exactly
		// like a constant: by hash-consed identity of the whole term.
		return t.insertAtomic(pos, kindConst, tm), nil
	}
}

func (t *tree) insertVar(pos *[]handle, v *term.Var, seen map[*term.Var]handle) (handle, error) {
	if target, ok := seen[v]; ok {
		for _, h := range *pos {
			if n := t.node(h); n.kind == kindBackref && n.backrefTarget == target {
				return h, nil
			}
		}
		h := t.alloc(node{kind: kindBackref, backrefTarget: target})
		*pos = append(*pos, h)
		return h, nil
	}
	for _, h := range *pos {
		if t.node(h).kind == kindVar {
			seen[v] = h
			return h, nil
		}
	}
	h := t.alloc(node{kind: kindVar, varRepr: t.freshVar(v.Sort())})
	*pos = append(*pos, h)
	seen[v] = h
	return h, nil
}

func (t *tree) insertAtomic(pos *[]handle, kind nodeKind, tm term.Term) handle {
	for _, h := range *pos {
		if n := t.node(h); n.kind == kind && n.whole == tm {
			return h
		}
	}
	h := t.alloc(node{kind: kind, whole: tm})
	*pos = append(*pos, h)
	return h
}

func (t *tree) insertCompound(pos *[]handle, c *term.Compound, seen map[*term.Var]handle) (handle, error) {
	var funcH handle = nilHandle
	for _, h := range *pos {
		if n := t.node(h); n.kind == kindFunc && n.functor == c.Functor() && n.arity == c.Arity() {
			funcH = h
			break
		}
	}
	if funcH == nilHandle {
		funcH = t.alloc(node{
			kind:    kindFunc,
			functor: c.Functor(),
			arity:   c.Arity(),
			args:    make([][]handle, c.Arity()),
			combos:  map[string]handle{},
		})
		*pos = append(*pos, funcH)
	}

	chosen := make([]handle, c.Arity())
	for i := 0; i < c.Arity(); i++ {
		argPos := t.node(funcH).args[i]
		h, err := t.insert(&argPos, c.Arg(i), seen)
		if err != nil {
			return nilHandle, err
		}
		t.node(funcH).args[i] = argPos
		chosen[i] = h
	}

	key := encodeComboKey(chosen)
	fn := t.node(funcH)
	if comboH, ok := fn.combos[key]; ok {
		return comboH, nil
	}
	repr, err := t.buildRepresentative(c.Functor(), c.Sort(), chosen)
	if err != nil {
		return nilHandle, err
	}
	comboH := t.alloc(node{kind: kindCombo, comboRepr: repr})
	t.node(funcH).combos[key] = comboH
	return comboH, nil
}

func (t *tree) buildRepresentative(functor string, sort *term.Sort, chosen []handle) (term.Term, error) {
	args := make([]term.Term, len(chosen))
	for i, h := range chosen {
		r, err := t.representative(h)
		if err != nil {
			return nil, err
		}
		args[i] = r
	}
	return t.store.Intern(functor, args, sort)
}

// find is insert's read-only counterpart, used by removeEntry: it
// walks the existing structure without creating anything, reporting
// ok=false the first time a position has no matching alternative.
func (t *tree) find(pos []handle, tm term.Term, seen map[*term.Var]handle) (handle, bool) {
	switch x := tm.(type) {
	case *term.Var:
		return t.findVar(pos, x, seen)
	case *term.Compound:
		if x.Arity() == 0 {
			return t.findAtomic(pos, kindConst, tm)
		}
		if t.sig.IsACFunctor(x.Functor()) {
			return t.findAtomic(pos, kindAC, tm)
		}
		return t.findCompound(pos, x, seen)
	default:
		return t.findAtomic(pos, kindConst, tm)
	}
}

func (t *tree) findVar(pos []handle, v *term.Var, seen map[*term.Var]handle) (handle, bool) {
	if target, ok := seen[v]; ok {
		for _, h := range pos {
			if n := t.node(h); n.kind == kindBackref && n.backrefTarget == target {
				return h, true
			}
		}
		return nilHandle, false
	}
	for _, h := range pos {
		if t.node(h).kind == kindVar {
			seen[v] = h
			return h, true
		}
	}
	return nilHandle, false
}

func (t *tree) findAtomic(pos []handle, kind nodeKind, tm term.Term) (handle, bool) {
	for _, h := range pos {
		if n := t.node(h); n.kind == kind && n.whole == tm {
			return h, true
		}
	}
	return nilHandle, false
}

func (t *tree) findCompound(pos []handle, c *term.Compound, seen map[*term.Var]handle) (handle, bool) {
	var funcH handle = nilHandle
	for _, h := range pos {
		if n := t.node(h); n.kind == kindFunc && n.functor == c.Functor() && n.arity == c.Arity() {
			funcH = h
			break
		}
	}
	if funcH == nilHandle {
		return nilHandle, false
	}
	fn := t.node(funcH)
	chosen := make([]handle, c.Arity())
	for i := 0; i < c.Arity(); i++ {
		h, ok := t.find(fn.args[i], c.Arg(i), seen)
		if !ok {
			return nilHandle, false
		}
		chosen[i] = h
	}
	comboH, ok := fn.combos[encodeComboKey(chosen)]
	return comboH, ok
}

// insertEntry inserts tm under the Lock, attaches data to the leaf it
// resolves to and returns that leaf's index.
func (t *tree) insertEntry(tm term.Term, data any) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, err := t.insert(&t.rootAlts, tm, map[*term.Var]handle{})
	if err != nil {
		return -1, err
	}
	t.leaves = append(t.leaves, leafRecord{data: data})
	li := len(t.leaves) - 1
	n := t.node(h)
	n.leaves = append(n.leaves, li)
	return li, nil
}

// removeEntry tombstones the first non-removed leaf under tm's node
// for which match returns true, reporting whether it found one.
func (t *tree) removeEntry(tm term.Term, match func(data any) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.find(t.rootAlts, tm, map[*term.Var]handle{})
	if !ok {
		return false
	}
	n := t.node(h)
	for _, li := range n.leaves {
		if !t.leaves[li].removed && match(t.leaves[li].data) {
			t.leaves[li].removed = true
			return true
		}
	}
	return false
}
