package term

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/cockroachdb/apd/v3"
	"github.com/sirupsen/logrus"
)

// Store is the process-wide, append-only hash-consing table. Interned
// terms and sorts are immutable and safe to read concurrently; every
// Intern, Variable, Numeral and Intern*Sort call, including one that
// finds an existing entry, holds the Store's single exclusive lock for
// its duration.
type Store struct {
	mu   sync.RWMutex
	sig  *Signature
	log  *logrus.Logger
	seq  uint64
	memLimit int64

	terms map[uint64][]Term
	sorts map[uint64][]*Sort
}

// StoreOption configures a new Store.
type StoreOption func(*Store)

// WithSignature installs a custom Signature instead of the default one.
func WithSignature(sig *Signature) StoreOption {
	return func(s *Store) { s.sig = sig }
}

// WithLogger installs a logrus.Logger for Trace-level intern diagnostics.
func WithLogger(l *logrus.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// WithMemoryLimit enables a headroom check in Intern: before creating
// a new compound, Intern returns ErrOutOfMemory unless the headroom
// left under the Go runtime's memory limit (debug.SetMemoryLimit) is
// larger than bytes/64. The size of the intern table itself is not
// measured, and Variable, Numeral and the sort interners never fail.
// Zero (the default) disables the check.
func WithMemoryLimit(bytes int64) StoreOption {
	return func(s *Store) { s.memLimit = bytes }
}

// NewStore creates a Store with a default Signature (Int/+ as theory).
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sig:   NewSignature(),
		log:   logrus.New(),
		terms: map[uint64][]Term{},
		sorts: map[uint64][]*Sort{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signature returns the store's symbol table.
func (s *Store) Signature() *Signature { return s.sig }

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) withinMemoryLimit() bool {
	if s.memLimit <= 0 {
		return true
	}
	limit := debug.SetMemoryLimit(-1)
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	free := limit - int64(stats.Sys-stats.HeapReleased)
	return free >= 0 && free > s.memLimit/64
}

// InternAtomicSort interns a ground, non-variable sort by name.
func (s *Store) InternAtomicSort(name string) *Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	cand := &Sort{kind: sortAtomic, name: name}
	return s.internSort(cand)
}

// InternArrowSort interns the sort dom -> cod.
func (s *Store) InternArrowSort(dom, cod *Sort) *Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	cand := &Sort{kind: sortArrow, dom: dom, cod: cod}
	return s.internSort(cand)
}

// InternSortVar interns the sort variable at index idx.
func (s *Store) InternSortVar(idx int) *Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	cand := &Sort{kind: sortVar, idx: idx}
	return s.internSort(cand)
}

func (s *Store) internSort(cand *Sort) *Sort {
	key := cand.fingerprint()
	for _, existing := range s.sorts[key] {
		if existing.equalKey(cand) {
			return existing
		}
	}
	cand.seq = s.nextSeq()
	s.sorts[key] = append(s.sorts[key], cand)
	s.log.WithFields(logrus.Fields{"kind": cand.kind, "bucket": key}).Trace("sort interned")
	return cand
}

// Variable interns a variable with the given index and sort.
func (s *Store) Variable(idx int, sort *Sort) *Var {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := mixHash(hashString("$var"), uint64(idx), sort.seq)
	for _, existing := range s.terms[key] {
		if v, ok := existing.(*Var); ok && v.idx == idx && v.sort == sort {
			return v
		}
	}
	v := &Var{idx: idx, sort: sort, n: s.nextSeq()}
	s.terms[key] = append(s.terms[key], v)
	return v
}

// Intern interns a compound functor(args...) of the given sort. It
// fails with ErrOutOfMemory if a configured memory limit would be
// exceeded, matching the teacher's makeSlice headroom check.
func (s *Store) Intern(functor string, args []Term, sort *Sort) (*Compound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	childSeqs := make([]uint64, len(args))
	for i, a := range args {
		childSeqs[i] = a.seq()
	}
	key := fingerprint(functor, sort.seq, childSeqs...)
	for _, existing := range s.terms[key] {
		if c, ok := existing.(*Compound); ok && compoundEqualKey(c, functor, args, sort) {
			return c, nil
		}
	}

	if !s.withinMemoryLimit() {
		return nil, ErrOutOfMemory
	}

	c := &Compound{
		functor:     functor,
		args:        append([]Term(nil), args...),
		sort:        sort,
		n:           s.nextSeq(),
		interpreted: s.sig.isInterpretedTop(functor, sort),
	}
	s.terms[key] = append(s.terms[key], c)
	s.log.WithFields(logrus.Fields{"functor": functor, "arity": len(args), "bucket": key}).Trace("term interned")
	return c, nil
}

// MustIntern is Intern without an error return, for call sites (tests,
// fixture construction) that know the memory limit cannot be hit.
func (s *Store) MustIntern(functor string, args []Term, sort *Sort) *Compound {
	c, err := s.Intern(functor, args, sort)
	if err != nil {
		panic(err)
	}
	return c
}

// Numeral interns the arbitrary-precision numeric literal v under sort.
func (s *Store) Numeral(v *apd.Decimal, sort *Sort) *Numeral {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := v.Text('f')
	key := mixHash(hashString("$num"), hashString(text), sort.seq)
	for _, existing := range s.terms[key] {
		if m, ok := existing.(*Numeral); ok && m.sort == sort && m.val.Cmp(v) == 0 {
			return m
		}
	}
	m := &Numeral{sort: sort, n: s.nextSeq()}
	m.val.Set(v)
	s.terms[key] = append(s.terms[key], m)
	return m
}

// Apply interns the higher-order application of head (whose sort must
// be an arrow sort) to arg.
func (s *Store) Apply(head, arg Term) (*Compound, error) {
	dom := head.Sort()
	if !dom.IsArrow() {
		panic("term: Apply of non-arrow head")
	}
	return s.Intern(ApplyFunctor, []Term{head, arg}, dom.Cod())
}

func compoundEqualKey(c *Compound, functor string, args []Term, sort *Sort) bool {
	if c.functor != functor || c.sort != sort || len(c.args) != len(args) {
		return false
	}
	for i := range args {
		if c.args[i] != args[i] {
			return false
		}
	}
	return true
}

// CompareSeq implements the "total arbitrary order derived from
// interning sequence" named in spec.md §4.1. Nothing in this module
// calls it: tree siblings keep insertion order and AC peeling matches
// summands by identity.
func CompareSeq(a, b Term) int {
	sa, sb := a.seq(), b.seq()
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}
