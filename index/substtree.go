package index

import (
	"context"
	"iter"

	"github.com/barracuda156/uwaindex/subst"
	"github.com/barracuda156/uwaindex/term"
	"github.com/barracuda156/uwaindex/uwa"
)

// SubstitutionTree indexes a set of (key, literal, clause) entries by
// key and retrieves, given a query key, every entry whose key unifies
// with it under a chosen UnificationWithAbstraction policy. Every
// entry is stored under the Result bank (spec.md glossary: "Bank");
// every query is read under the Query bank, so the two never alias
// raw variable indices even when both came from the same Store.
type SubstitutionTree struct {
	tr    *tree
	store *term.Store
	cfg   *config
	obs   observerList
}

// NewSubstitutionTree creates an empty tree with its own term.Store,
// available afterwards via Store so callers can intern compatible
// terms before calling Insert.
func NewSubstitutionTree(opts ...Option) *SubstitutionTree {
	cfg := newConfig(opts)
	store := term.NewStore(term.WithLogger(cfg.logger), term.WithMemoryLimit(cfg.memLimit))
	return newSubstitutionTreeWithStore(store, cfg)
}

func newSubstitutionTreeWithStore(store *term.Store, cfg *config) *SubstitutionTree {
	return &SubstitutionTree{tr: newTree(store), store: store, cfg: cfg}
}

// Store returns the term.Store this tree interns and dereferences
// terms against.
func (t *SubstitutionTree) Store() *term.Store { return t.store }

// Attach registers o to be notified of every future successful Insert
// and Remove. It does not replay the tree's existing entries.
func (t *SubstitutionTree) Attach(o Observer) { t.obs.attach(o) }

// Detach unregisters an Observer previously passed to Attach. It is a
// no-op if o isn't attached.
func (t *SubstitutionTree) Detach(o Observer) { t.obs.detach(o) }

// Insert adds one entry keyed on key, carrying lit and clause as its
// payload. A second Insert with the same key and an equal (lit,
// clause) pair is a distinct leaf, not a no-op: the tree doesn't
// dedup on payload, only on key structure. Every attached Observer's
// Added is called once Insert succeeds.
func (t *SubstitutionTree) Insert(key term.TypedTermList, lit *term.Literal, clause ClauseRef) error {
	_, err := t.tr.insertEntry(key.T, TermLiteralClause{Literal: lit, Clause: clause})
	if err != nil {
		return err
	}
	t.obs.added(clause)
	return nil
}

// Remove removes one entry whose key matches key and whose clause has
// the same ID as clause, reporting whether it found one. Every
// attached Observer's Removed is called only when an entry was
// actually found and tombstoned.
func (t *SubstitutionTree) Remove(key term.TypedTermList, lit *term.Literal, clause ClauseRef) bool {
	removed := t.tr.removeEntry(key.T, func(data any) bool {
		tlc, ok := data.(TermLiteralClause)
		return ok && tlc.Clause != nil && clause != nil && tlc.Clause.ID() == clause.ID()
	})
	if removed {
		t.obs.removed(clause)
	}
	return removed
}

// QueryResult is one match GetUwa yields: the stored entry's literal
// and clause, the substitution as it stood for this match (read it
// through Substitution.Apply; it is rolled back the instant the
// iterator is resumed, so copy out of it before then if you need the
// values to outlive this yield), and any residual constraints the
// match left behind.
type QueryResult struct {
	Literal      *term.Literal
	Clause       ClauseRef
	Substitution *subst.Substitution
	Constraints  []*term.Literal
}

// GetUwa retrieves every stored entry whose key unifies with query
// under policy, optionally running the fixed-point constraint
// re-examination pass (spec.md §4.4) after each match before it is
// yielded. The returned sequence is lazy: advancing it runs exactly
// as much of the tree traversal as needed to produce the next match,
// and abandoning it early (the consuming range loop's break) is
// exactly the backtracking rollback that would happen anyway on a
// failed alternative.
func (t *SubstitutionTree) GetUwa(ctx context.Context, query term.TypedTermList, policy UnificationWithAbstraction, fixedPoint bool) iter.Seq[QueryResult] {
	return func(yield func(QueryResult) bool) {
		handler := uwa.NewHandler(policy, t.store)
		u := uwa.NewAbstractingUnifier(t.store, handler, false)

		err := t.tr.search(ctx, u, query.T, subst.Query, fixedPoint, func(li int) (bool, error) {
			tlc, _ := t.tr.leaves[li].data.(TermLiteralClause)
			qr := QueryResult{
				Literal:      tlc.Literal,
				Clause:       tlc.Clause,
				Substitution: u.Subst(),
				Constraints:  u.Constraints().Literals(u.Subst()),
			}
			return !yield(qr), nil
		})
		if err != nil {
			t.cfg.logInvariantViolation("SubstitutionTree", 0, err)
		}
	}
}
