package index

import (
	"context"
	"iter"

	"github.com/barracuda156/uwaindex/subst"
	"github.com/barracuda156/uwaindex/term"
)

// litArgsFunctor wraps a literal's argument vector into one synthetic
// compound so it can be indexed by an ordinary SubstitutionTree keyed
// on a bare term, rather than by a second, separately-implemented
// argument-vector trie. It is never visible outside this file: a
// caller only ever sees *term.Literal values back out of GetUwa.
const litArgsFunctor = "$args"

// litBucketKey names one LiteralSubstitutionTree bucket. Literals only
// ever unify with other literals of the same predicate, arity and
// polarity (or, for a complementary query, the opposite polarity), so
// bucketing on all three up front means a query never walks a subtree
// it could not possibly match.
type litBucketKey struct {
	predicate string
	arity     int
	positive  bool
}

// LiteralSubstitutionTree indexes literals (predicate, arguments,
// polarity) rather than bare terms, bucketing internally by
// (predicate, arity, polarity) so that unification is only ever
// attempted between literals that could possibly match (spec.md §11).
// Each bucket is its own SubstitutionTree instance over the literal's
// Key(), all sharing one term.Store.
type LiteralSubstitutionTree struct {
	store   *term.Store
	cfg     *config
	argSort *term.Sort
	buckets map[litBucketKey]*SubstitutionTree
	obs     observerList
}

// NewLiteralSubstitutionTree creates an empty literal index with its
// own term.Store, available afterwards via Store.
func NewLiteralSubstitutionTree(opts ...Option) *LiteralSubstitutionTree {
	cfg := newConfig(opts)
	store := term.NewStore(term.WithLogger(cfg.logger), term.WithMemoryLimit(cfg.memLimit))
	return &LiteralSubstitutionTree{
		store:   store,
		cfg:     cfg,
		argSort: store.InternAtomicSort("$literalArgs"),
		buckets: map[litBucketKey]*SubstitutionTree{},
	}
}

// Store returns the term.Store this tree interns and dereferences
// terms against. Literals passed to Insert and GetUwa must have been
// built from terms interned in this same Store.
func (t *LiteralSubstitutionTree) Store() *term.Store { return t.store }

func (t *LiteralSubstitutionTree) bucketKey(lit *term.Literal) litBucketKey {
	return litBucketKey{predicate: lit.Predicate, arity: lit.Arity(), positive: lit.Positive}
}

func (t *LiteralSubstitutionTree) bucket(key litBucketKey) *SubstitutionTree {
	b, ok := t.buckets[key]
	if !ok {
		b = newSubstitutionTreeWithStore(t.store, t.cfg)
		t.buckets[key] = b
	}
	return b
}

func (t *LiteralSubstitutionTree) wrap(lit *term.Literal) term.Term {
	return t.store.MustIntern(litArgsFunctor, lit.Key(), t.argSort)
}

// Attach registers o to be notified of every future successful Insert
// and Remove, across every bucket. It does not replay existing entries.
func (t *LiteralSubstitutionTree) Attach(o Observer) { t.obs.attach(o) }

// Detach unregisters an Observer previously passed to Attach. It is a
// no-op if o isn't attached.
func (t *LiteralSubstitutionTree) Detach(o Observer) { t.obs.detach(o) }

// Insert adds lit (belonging to clause) to the bucket matching its
// predicate, arity and polarity. Every attached Observer's Added is
// called once Insert succeeds.
func (t *LiteralSubstitutionTree) Insert(lit *term.Literal, clause ClauseRef) error {
	b := t.bucket(t.bucketKey(lit))
	if err := b.Insert(term.NewTypedTermList(t.wrap(lit)), lit, clause); err != nil {
		return err
	}
	t.obs.added(clause)
	return nil
}

// Remove removes the entry for lit belonging to clause, reporting
// whether one was found. Every attached Observer's Removed is called
// only when an entry was actually found and tombstoned.
func (t *LiteralSubstitutionTree) Remove(lit *term.Literal, clause ClauseRef) bool {
	key := t.bucketKey(lit)
	b, ok := t.buckets[key]
	if !ok {
		return false
	}
	removed := b.Remove(term.NewTypedTermList(t.wrap(lit)), lit, clause)
	if removed {
		t.obs.removed(clause)
	}
	return removed
}

// LiteralQueryResult is one match GetUwa yields, the literal-indexed
// analogue of QueryResult.
type LiteralQueryResult struct {
	Literal      *term.Literal
	Clause       ClauseRef
	Substitution *subst.Substitution
	Constraints  []*term.Literal
}

// GetUwa retrieves every stored literal unifying with query, under
// policy and fixedPoint exactly as SubstitutionTree.GetUwa does.
// complementary selects the bucket of query's predicate, arity and
// opposite polarity instead of its own, the lookup a resolution-style
// prover uses to find literals it could resolve query against
// (spec.md §11 "complementary literal queries"). A query whose bucket
// has never been populated yields nothing, without error.
func (t *LiteralSubstitutionTree) GetUwa(ctx context.Context, query *term.Literal, complementary bool, policy UnificationWithAbstraction, fixedPoint bool) iter.Seq[LiteralQueryResult] {
	key := t.bucketKey(query)
	if complementary {
		key.positive = !key.positive
	}
	return func(yield func(LiteralQueryResult) bool) {
		b, ok := t.buckets[key]
		if !ok {
			return
		}
		wrapped := term.NewTypedTermList(t.wrap(query))
		for qr := range b.GetUwa(ctx, wrapped, policy, fixedPoint) {
			lqr := LiteralQueryResult{
				Literal:      qr.Literal,
				Clause:       qr.Clause,
				Substitution: qr.Substitution,
				Constraints:  qr.Constraints,
			}
			if !yield(lqr) {
				return
			}
		}
	}
}
