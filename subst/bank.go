// Package subst implements the banked, journal-backed substitution
// described in spec.md §3/§4.2: a partial mapping from bank-tagged
// variables to terms, with checkpoint/rollback for the tree
// traversal's backtracking.
package subst

import "github.com/barracuda156/uwaindex/term"

// Bank partitions the variable namespace so that a query and a stored
// term can share raw variable indices without their bindings
// interfering (spec.md glossary: "Bank").
type Bank int

const (
	// Query is the bank under which an incoming query term's
	// variables are read.
	Query Bank = iota
	// Result is the bank under which the index always stores entries.
	Result
	// firstInternal is the first bank number available to FreshBank,
	// reserved for variables introduced during traversal (e.g. to
	// name a tree fragment's own internal structure).
	firstInternal
)

// FreshBank returns the n-th internal bank (n >= 0), distinct from
// Query, Result and any other FreshBank(m) with m != n.
func FreshBank(n int) Bank {
	return firstInternal + Bank(n)
}

func (b Bank) String() string {
	switch b {
	case Query:
		return "QUERY"
	case Result:
		return "RESULT"
	default:
		return "INTERNAL"
	}
}

// BankedVar is a pair (v, b): the same numeric variable index in
// different banks is a different unknown (spec.md glossary: "Bank").
type BankedVar struct {
	Var  *term.Var
	Bank Bank
}

func (bv BankedVar) String() string { return bv.Var.String() + "@" + bv.Bank.String() }
