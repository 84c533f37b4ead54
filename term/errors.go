package term

import "errors"

// ErrOutOfMemory is returned by Store.Intern when the headroom check
// enabled by WithMemoryLimit fails. The table itself is left
// consistent: the failed Intern call allocates nothing.
var ErrOutOfMemory = errors.New("term: out of memory")
