package subst

import "errors"

// ErrOccursCheck is returned by Bind when the binding would create a
// cycle: t, once fully dereferenced, mentions the variable being
// bound (spec.md §4.2).
var ErrOccursCheck = errors.New("subst: occurs check failed")

// ErrAlreadyBound is returned by Bind when the banked variable
// already has a binding; Bind's precondition (spec.md §4.2) is that
// it does not.
var ErrAlreadyBound = errors.New("subst: variable already bound")
