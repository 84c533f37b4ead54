package index

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/barracuda156/uwaindex/term"
)

// handle addresses a node in a tree's arena by slot: a plain slice
// plus an integer index rather than a Go pointer, so the arena grows
// and can be measured as one contiguous allocation. The arena is never
// compacted; removal only tombstones leaves.
type handle int32

// nilHandle is the sentinel for "no node", the handle-arena analogue
// of a nil pointer.
const nilHandle handle = -1

// nodeKind tags what a position-list entry alternates on. Every leaf
// in the tree hangs off a node whose kind is one of the four "atomic
// unit" kinds (kindVar, kindConst, kindAC, kindBackref) or off a
// kindCombo, never off a kindFunc directly — kindFunc only fans out
// into its own per-argument position lists and its combos map.
type nodeKind int

const (
	// kindVar is a fresh, tree-minted variable representative shared
	// by every entry whose term is a free variable at this position.
	kindVar nodeKind = iota
	// kindConst is an arity-0 term (a genuine constant, or any other
	// atomic term kind such as a Numeral), keyed by hash-consed
	// identity.
	kindConst
	// kindAC is a compound headed by a declared AC functor, kept
	// whole: AC mismatch classification needs the entire flattened
	// sum at once, so this tree never decomposes one structurally.
	kindAC
	// kindBackref represents a second-or-later occurrence, within one
	// inserted entry, of a variable already given a kindVar node
	// earlier in the same insertion. Retrieval unifies the query
	// position against the target's own representative rather than
	// minting an independent one, which is what enforces "these two
	// positions must carry the same value".
	kindBackref
	// kindFunc is a non-AC compound of arity > 0: a functor/arity pair
	// with one child position list per argument, plus the combos map
	// joining a chosen argument tuple to the kindCombo node owning the
	// leaves for that exact tuple.
	kindFunc
	// kindCombo owns the leaves for one concrete argument tuple under
	// a kindFunc node.
	kindCombo
)

func (k nodeKind) String() string {
	switch k {
	case kindVar:
		return "var"
	case kindConst:
		return "const"
	case kindAC:
		return "ac"
	case kindBackref:
		return "backref"
	case kindFunc:
		return "func"
	case kindCombo:
		return "combo"
	default:
		return "unknown"
	}
}

// node is one arena slot. Which fields are meaningful depends on kind;
// this mirrors the teacher's own tagged-union node layout rather than
// splitting into six separate arenas, since the kinds share an arena
// and are addressed by one handle space.
type node struct {
	kind nodeKind

	// kindVar
	varRepr *term.Var

	// kindConst, kindAC: the whole interned subterm, used both as the
	// dedup key and as the retrieval-time representative.
	whole term.Term

	// kindBackref
	backrefTarget handle

	// kindFunc
	functor string
	arity   int
	args    [][]handle
	combos  map[string]handle

	// kindCombo
	comboRepr term.Term

	// leaf indices attached directly to this node (always empty for
	// kindFunc, which never holds leaves itself).
	leaves []int
}

// encodeComboKey turns a chosen argument-alternative tuple into a map
// key for the owning kindFunc node's combos table.
func encodeComboKey(chosen []handle) string {
	var b strings.Builder
	for _, h := range chosen {
		b.WriteString(strconv.Itoa(int(h)))
		b.WriteByte(',')
	}
	return b.String()
}

func (n *node) String() string {
	switch n.kind {
	case kindVar:
		return fmt.Sprintf("var(%s)", n.varRepr)
	case kindConst, kindAC:
		return fmt.Sprintf("%s(%s)", n.kind, n.whole)
	case kindBackref:
		return fmt.Sprintf("backref(->%d)", n.backrefTarget)
	case kindFunc:
		return fmt.Sprintf("func(%s/%d)", n.functor, n.arity)
	case kindCombo:
		return fmt.Sprintf("combo(%s)", n.comboRepr)
	default:
		return "?"
	}
}
