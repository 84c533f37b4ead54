package index

import "github.com/barracuda156/uwaindex/term"

// ClauseRef identifies, without pulling in the engine's own clause
// representation, the clause a stored entry came from. Call sites
// outside this package satisfy it with whatever they already use to
// name a clause.
type ClauseRef interface {
	ID() int
}

// TermLiteralClause is the payload a SubstitutionTree leaf carries: the
// literal the indexed key was drawn from, and the clause it belongs
// to. A LiteralSubstitutionTree bucket's underlying SubstitutionTree
// always stores one of these per leaf; a SubstitutionTree used
// directly (indexing a bare term rather than going through a literal
// bucket) is free to leave Literal nil.
type TermLiteralClause struct {
	Literal *term.Literal
	Clause  ClauseRef
}

// Observer is notified as clauses enter and leave a tree, so a caller
// (typically a clause database keeping its own secondary indexes in
// sync) doesn't have to re-derive Added/Removed from Insert/Remove's
// return values. Attach it with SubstitutionTree.Attach or
// LiteralSubstitutionTree.Attach.
type Observer interface {
	Added(ClauseRef)
	Removed(ClauseRef)
}

// observerList is an attach/detach-able, fan-out Observer shared by
// SubstitutionTree and LiteralSubstitutionTree.
type observerList struct {
	obs []Observer
}

func (l *observerList) attach(o Observer) {
	l.obs = append(l.obs, o)
}

func (l *observerList) detach(o Observer) {
	for i, existing := range l.obs {
		if existing == o {
			l.obs = append(l.obs[:i], l.obs[i+1:]...)
			return
		}
	}
}

func (l *observerList) added(c ClauseRef) {
	for _, o := range l.obs {
		o.Added(c)
	}
}

func (l *observerList) removed(c ClauseRef) {
	for _, o := range l.obs {
		o.Removed(c)
	}
}
