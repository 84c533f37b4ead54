package term

// Cell is one position of a term's flat, pre-order enumeration: either
// a variable occurrence or a functor occurrence with its arity,
// together with its depth from the root of the enumerated term.
type Cell struct {
	Term     Term
	Functor  string
	Arity    int
	Depth    int
	Variable bool
}

// Flat is the flat, position-indexed view of a term named in spec.md
// §4.1. The substitution tree and the mismatch handler do not use it:
// the tree walks compounds recursively and the AC handler flattens
// sums with FlattenAC.
type Flat []Cell

// Flatten produces the pre-order flat view of t.
func Flatten(t Term) Flat {
	var out Flat
	var walk func(Term, int)
	walk = func(t Term, depth int) {
		switch t := t.(type) {
		case *Var:
			out = append(out, Cell{Term: t, Depth: depth, Variable: true})
		case *Compound:
			out = append(out, Cell{Term: t, Functor: t.functor, Arity: len(t.args), Depth: depth})
			for _, a := range t.args {
				walk(a, depth+1)
			}
		default:
			out = append(out, Cell{Term: t, Functor: t.String(), Arity: 0, Depth: depth})
		}
	}
	walk(t, 0)
	return out
}

// SameShape reports whether two flat cells describe the same node
// shape (ignoring which variable, if either is a variable), i.e.
// whether the two positions could possibly match.
func SameShape(a, b Cell) bool {
	if a.Variable || b.Variable {
		return true
	}
	return a.Functor == b.Functor && a.Arity == b.Arity
}

// FlattenAC flattens a right- or left-leaning nest of an
// associative-commutative functor into its list of summands, e.g.
// ((a+b)+c) or (a+(b+c)) both flatten to [a, b, c]. Used by the AC1/AC2
// mismatch handler variants (spec.md §4.3) and left alone (returns
// []Term{t}) for any other term.
func FlattenAC(t Term, functor string) []Term {
	var out []Term
	var walk func(Term)
	walk = func(t Term) {
		if c, ok := t.(*Compound); ok && c.functor == functor && len(c.args) == 2 {
			walk(c.args[0])
			walk(c.args[1])
			return
		}
		out = append(out, t)
	}
	walk(t)
	return out
}
