// Package term implements the hash-consed term representation shared
// by the rest of the index: variables, compounds, interpreted numerals,
// sorts and the flat position view used by the unifier and the tree.
package term

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Term is a hash-consed first-order (optionally higher-order) term.
// Two structurally equal terms obtained from the same Store are the
// same Go value, so equality is pointer equality.
type Term interface {
	fmt.Stringer

	// Sort returns the term's declared sort.
	Sort() *Sort

	// seq returns the store-assigned interning sequence number, used
	// only to derive the arbitrary total order over canonical forms.
	seq() uint64

	isTerm()
}

// Var is a variable with a non-negative index, interned by (index, sort).
// Var carries no bank: bank tagging is the concern of the subst package,
// which pairs a Var with a Bank to address the substitution.
type Var struct {
	idx  int
	sort *Sort
	n    uint64
}

func (v *Var) Sort() *Sort { return v.sort }
func (v *Var) Index() int  { return v.idx }
func (v *Var) seq() uint64 { return v.n }
func (*Var) isTerm()       {}
func (v *Var) String() string {
	return fmt.Sprintf("X%d", v.idx)
}

// Compound is a functor applied to an ordered sequence of argument
// terms, each already hash-consed. A nullary Compound is a constant.
type Compound struct {
	functor     string
	args        []Term
	sort        *Sort
	n           uint64
	interpreted bool
}

func (c *Compound) Sort() *Sort     { return c.sort }
func (c *Compound) Functor() string { return c.functor }
func (c *Compound) Arity() int      { return len(c.args) }
func (c *Compound) Arg(i int) Term  { return c.args[i] }
func (c *Compound) Args() []Term    { return c.args }
func (c *Compound) seq() uint64     { return c.n }
func (*Compound) isTerm()           {}

// IsInterpreted reports whether c's top symbol is a theory operator,
// cached at interning time from the Store's Signature (spec §9
// "Interpreted-term recognition").
func (c *Compound) IsInterpreted() bool { return c.interpreted }

func (c *Compound) String() string {
	if len(c.args) == 0 {
		return c.functor
	}
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.functor, strings.Join(parts, ","))
}

// ApplyFunctor is the functor used to encode higher-order application
// of an arrow-sorted head to an argument (the applicative encoding of
// higher-order terms over the first-order Compound representation).
const ApplyFunctor = "@"

// IsApply reports whether c is a higher-order application node.
func (c *Compound) IsApply() bool {
	return c.functor == ApplyFunctor && len(c.args) == 2 && c.args[0].Sort().IsArrow()
}

// Numeral is an interpreted numeric literal, represented with
// arbitrary precision so its value is never rounded, regardless of
// magnitude.
type Numeral struct {
	val  apd.Decimal
	sort *Sort
	n    uint64
}

func (m *Numeral) Sort() *Sort         { return m.sort }
func (m *Numeral) Value() *apd.Decimal { return &m.val }
func (m *Numeral) seq() uint64         { return m.n }
func (*Numeral) isTerm()               {}
func (m *Numeral) String() string      { return m.val.String() }

// IsVariable reports whether t is a Var.
func IsVariable(t Term) bool {
	_, ok := t.(*Var)
	return ok
}

// IsNumeral reports whether t is an interpreted numeral.
func IsNumeral(t Term) bool {
	_, ok := t.(*Numeral)
	return ok
}
