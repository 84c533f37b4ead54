package index

import (
	"github.com/sirupsen/logrus"

	"github.com/barracuda156/uwaindex/uwa"
)

// UnificationWithAbstraction re-exports uwa's policy enum so callers
// configuring a tree don't need a second import for it.
type UnificationWithAbstraction = uwa.UnificationWithAbstraction

const (
	Off        = uwa.Off
	InterpOnly = uwa.InterpOnly
	OneInterp  = uwa.OneInterp
	FuncExt    = uwa.FuncExt
	AC1        = uwa.AC1
	AC2        = uwa.AC2
)

// config accumulates a tree's construction options. uwaPolicy and
// fixedPoint are recorded but not read by this package: GetUwa takes
// its policy and fixedPoint as arguments on every call.
type config struct {
	uwaPolicy  UnificationWithAbstraction
	fixedPoint bool
	logger     *logrus.Logger
	memLimit   int64
}

func newConfig(opts []Option) *config {
	cfg := &config{logger: logrus.New()}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// Option configures a SubstitutionTree or LiteralSubstitutionTree at
// construction.
type Option func(*config)

// WithAbstraction records a unification-with-abstraction policy in
// the tree's config. GetUwa does not use it; each call passes its own.
func WithAbstraction(u UnificationWithAbstraction) Option {
	return func(c *config) { c.uwaPolicy = u }
}

// WithFixedPointIteration records whether to run the
// residual-constraint fixed-point pass after each successful match.
// GetUwa does not use it; each call passes its own fixedPoint.
func WithFixedPointIteration(enabled bool) Option {
	return func(c *config) { c.fixedPoint = enabled }
}

// WithLogger installs a logrus.Logger the tree uses for its own
// diagnostics, including ErrInvariantViolation reports, and passes
// through to the term.Store it creates.
func WithLogger(l *logrus.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMemoryLimit is passed through to the term.Store backing the
// tree; see term.WithMemoryLimit for the check it enables. Zero (the
// default) disables the check.
func WithMemoryLimit(bytes int64) Option {
	return func(c *config) { c.memLimit = bytes }
}

func (c *config) logInvariantViolation(tree string, depth int, err error) {
	c.logger.WithFields(logrus.Fields{
		"tree":  tree,
		"depth": depth,
	}).WithError(err).Error("substitution tree invariant violation")
}
