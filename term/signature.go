package term

// Signature is the symbol table external contract named in spec.md §1:
// arities, sorts, and which functors are theory-interpreted (built into
// the integer-arithmetic theory) versus AC (associative-commutative)
// versus plain uninterpreted symbols.
type Signature struct {
	theoryOps map[string]bool
	acOps     map[string]bool
	theorySorts map[string]bool
}

// NewSignature returns an empty signature. Int arithmetic (+) and the
// Int sort are registered as theory by default, matching the worked
// examples in spec.md §8.
func NewSignature() *Signature {
	s := &Signature{
		theoryOps:   map[string]bool{},
		acOps:       map[string]bool{},
		theorySorts: map[string]bool{},
	}
	s.theorySorts["Int"] = true
	s.DeclareTheoryOperator("+")
	s.DeclareACOperator("+")
	return s
}

// DeclareTheoryOperator marks functor as interpreted by the theory
// (e.g. "+", "-", "*"). Declaring it also registers it in the lookup
// isInterpreted consults at interning time.
func (s *Signature) DeclareTheoryOperator(functor string) {
	s.theoryOps[functor] = true
}

// DeclareACOperator marks functor as associative-commutative, so AC1
// and AC2 treat mismatches at its nodes specially.
func (s *Signature) DeclareACOperator(functor string) {
	s.acOps[functor] = true
}

// DeclareTheorySort marks sort as a theory sort (e.g. "Int"); a
// compound is interpreted only if both its functor is a theory
// operator and its sort is a theory sort.
func (s *Signature) DeclareTheorySort(sort string) {
	s.theorySorts[sort] = true
}

func (s *Signature) isTheoryFunctor(functor string) bool { return s.theoryOps[functor] }
func (s *Signature) IsACFunctor(functor string) bool     { return s.acOps[functor] }
func (s *Signature) isTheorySort(sortName string) bool   { return s.theorySorts[sortName] }

// isInterpretedTop decides whether a compound with the given functor
// and sort is interpreted: its sort must be a declared theory sort and
// its functor a declared theory operator, OR it is a bare numeral
// (numerals are always interpreted, handled separately by the caller).
func (s *Signature) isInterpretedTop(functor string, sort *Sort) bool {
	if sort.IsArrow() || sort.IsVar() {
		return false
	}
	return s.isTheorySort(sort.name) && s.isTheoryFunctor(functor)
}
