package index

import "errors"

// ErrInvariantViolation marks a condition the tree's own structure
// rules out: a corrupt node handle, an unclassifiable term kind
// reaching the arena, or an error surfacing from the unifier that
// isn't a normal unification failure. Seeing this means a bug in this
// package, not an ordinary missed match. GetUwa logs it with the tree
// name (its depth field is always 0; the traversal depth is not
// tracked) rather than panicking, since a single corrupt
// branch shouldn't take an iterator consumer down with it.
var ErrInvariantViolation = errors.New("index: invariant violation")
