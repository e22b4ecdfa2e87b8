package coverage

import (
	"context"
	"testing"
)

// stubCoverage serves canned missing-line data. Paths absent from the map
// report ok=false, like a source file the run never loaded.
type stubCoverage struct {
	missing map[string][]int
}

func (s *stubCoverage) MissingLines(ctx context.Context, path string) ([]int, bool, error) {
	lines, ok := s.missing[path]
	return lines, ok, nil
}

func TestEnforce_FullyCoveredIsClean(t *testing.T) {
	policy := Policy{MustCover: []string{"meridian/views/auth.py"}}
	cov := &stubCoverage{missing: map[string][]int{
		"meridian/views/auth.py": {},
	}}

	violations, err := policy.Enforce(context.Background(), cov)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

func TestEnforce_RegressionListsMissingLines(t *testing.T) {
	policy := Policy{MustCover: []string{"meridian/views/auth.py"}}
	cov := &stubCoverage{missing: map[string][]int{
		"meridian/views/auth.py": {42},
	}}

	violations, err := policy.Enforce(context.Background(), cov)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(violations))
	}
	v := violations[0]
	if v.Kind != Regression {
		t.Errorf("expected Regression, got %v", v.Kind)
	}
	if len(v.MissingLines) != 1 || v.MissingLines[0] != 42 {
		t.Errorf("expected missing line 42, got %v", v.MissingLines)
	}
}

func TestEnforce_StaleExemption(t *testing.T) {
	policy := Policy{NotYetCovered: []string{"meridian/lib/markdown.py"}}
	cov := &stubCoverage{missing: map[string][]int{
		"meridian/lib/markdown.py": {},
	}}

	violations, err := policy.Enforce(context.Background(), cov)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 1 || violations[0].Kind != StaleExemption {
		t.Fatalf("expected a stale-exemption violation, got %v", violations)
	}
}

func TestEnforce_PermanentExemptionIsSkipped(t *testing.T) {
	policy := Policy{
		NotYetCovered:      []string{"meridian/tests/helpers.py"},
		PermanentExemption: "meridian/tests/helpers.py",
	}
	cov := &stubCoverage{missing: map[string][]int{
		"meridian/tests/helpers.py": {},
	}}

	violations, err := policy.Enforce(context.Background(), cov)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

func TestEnforce_AbsentFilesAreNotApplicable(t *testing.T) {
	policy := Policy{
		MustCover:     []string{"meridian/views/gone.py"},
		NotYetCovered: []string{"meridian/lib/gone.py"},
	}
	cov := &stubCoverage{}

	violations, err := policy.Enforce(context.Background(), cov)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("expected no violations for absent files, got %v", violations)
	}
}

func TestEnforce_StillCoveredExemptionIsClean(t *testing.T) {
	policy := Policy{NotYetCovered: []string{"meridian/lib/markdown.py"}}
	cov := &stubCoverage{missing: map[string][]int{
		"meridian/lib/markdown.py": {10, 11},
	}}

	violations, err := policy.Enforce(context.Background(), cov)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}
