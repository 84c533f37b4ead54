package uwa

import "errors"

// ErrFail is the sentinel a failed unification resolves to: the two
// sides could not be unified and no handler variant was willing to
// abstract the mismatch. Callers should prefer errors.Is over direct
// comparison, since it may be wrapped with positional context.
var ErrFail = errors.New("uwa: unification failed")

// ErrInvariantViolation marks a condition the algorithm's own
// invariants (spec.md §4.4) rule out: a handler returning a malformed
// Result, an unknown UnificationWithAbstraction value, or a Bind
// failing for a reason other than the occurs check. Seeing this error
// means a bug in this package or its caller, not a normal unification
// failure.
var ErrInvariantViolation = errors.New("uwa: invariant violation")
