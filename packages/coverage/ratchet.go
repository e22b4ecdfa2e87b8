package coverage

import (
	"context"
)

// LineCoverage is the per-file query the ratchet needs from a measurement
// session.
type LineCoverage interface {
	MissingLines(ctx context.Context, path string) ([]int, bool, error)
}

// ViolationKind classifies a policy violation.
type ViolationKind int

const (
	// Regression means a must-cover file lost full coverage.
	Regression ViolationKind = iota
	// StaleExemption means a not-yet-covered file reached full coverage and
	// should be removed from the exemption list.
	StaleExemption
)

// Violation is a single coverage-policy failure.
type Violation struct {
	Kind         ViolationKind
	Path         string
	MissingLines []int
}

// Policy is the coverage ratchet: must-cover files stay at 100%, and
// exemptions are pruned as soon as they reach full coverage. Both sets are
// loaded once at startup and never mutated.
type Policy struct {
	MustCover          []string
	NotYetCovered      []string
	PermanentExemption string
}

// Enforce checks every allowlisted path against the measured coverage.
// Files absent from the coverage data are skipped: the source was not loaded
// during this run, so the policy does not apply to them.
func (p Policy) Enforce(ctx context.Context, cov LineCoverage) ([]Violation, error) {
	var violations []Violation

	for _, path := range p.MustCover {
		missing, ok, err := cov.MissingLines(ctx, path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if len(missing) > 0 {
			violations = append(violations, Violation{
				Kind:         Regression,
				Path:         path,
				MissingLines: missing,
			})
		}
	}

	for _, path := range p.NotYetCovered {
		if path == p.PermanentExemption {
			continue
		}
		missing, ok, err := cov.MissingLines(ctx, path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if len(missing) == 0 {
			violations = append(violations, Violation{
				Kind: StaleExemption,
				Path: path,
			})
		}
	}

	return violations, nil
}
