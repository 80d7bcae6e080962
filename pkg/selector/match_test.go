package selector

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestMatch(t *testing.T, entries []MatchEntry) *Match {
	t.Helper()
	m, err := NewMatch([]string{"DETECTOR", "FILTER"}, nil, entries)
	if err != nil {
		t.Fatalf("build match selector: %v", err)
	}
	return m
}

func TestMatchChoosesExactOverWildcard(t *testing.T) {
	t.Parallel()

	m := newTestMatch(t, []MatchEntry{
		{Key: []string{"HRC", "*"}, Value: "generic.fits"},
		{Key: []string{"HRC", "F550M"}, Value: "specific.fits"},
	})
	got, err := m.Choose(map[string]string{"DETECTOR": "HRC", "FILTER": "F550M"})
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if got != "specific.fits" {
		t.Fatalf("got %q, want the more specific rule", got)
	}
}

func TestMatchOrBarPatterns(t *testing.T) {
	t.Parallel()

	m := newTestMatch(t, []MatchEntry{
		{Key: []string{"HRC|SBC", "F550M"}, Value: "either.fits"},
	})
	for _, detector := range []string{"HRC", "SBC"} {
		got, err := m.Choose(map[string]string{"DETECTOR": detector, "FILTER": "F550M"})
		if err != nil {
			t.Fatalf("choose %s: %v", detector, err)
		}
		if got != "either.fits" {
			t.Fatalf("choose %s: got %q", detector, got)
		}
	}
}

func TestMatchNoMatchError(t *testing.T) {
	t.Parallel()

	m := newTestMatch(t, []MatchEntry{
		{Key: []string{"HRC", "F550M"}, Value: "specific.fits"},
	})
	_, err := m.Choose(map[string]string{"DETECTOR": "WFC", "FILTER": "F550M"})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("got %v, want ErrNoMatch", err)
	}
}

func TestMatchAmbiguityIsAnError(t *testing.T) {
	t.Parallel()

	m := newTestMatch(t, []MatchEntry{
		{Key: []string{"HRC", "*"}, Value: "first.fits"},
		{Key: []string{"*", "F550M"}, Value: "second.fits"},
	})
	_, err := m.Choose(map[string]string{"DETECTOR": "HRC", "FILTER": "F550M"})
	var ambiguous *AmbiguityError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("got %v, want an ambiguity error", err)
	}
	if len(ambiguous.Keys) != 2 {
		t.Fatalf("got %d tied keys, want 2", len(ambiguous.Keys))
	}
}

func TestMatchSameOutcomeTieIsUnambiguous(t *testing.T) {
	t.Parallel()

	m := newTestMatch(t, []MatchEntry{
		{Key: []string{"HRC", "*"}, Value: "same.fits"},
		{Key: []string{"*", "F550M"}, Value: "same.fits"},
	})
	got, err := m.Choose(map[string]string{"DETECTOR": "HRC", "FILTER": "F550M"})
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if got != "same.fits" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchNotApplicableValueMatchesAnyRule(t *testing.T) {
	t.Parallel()

	m := newTestMatch(t, []MatchEntry{
		{Key: []string{"HRC", "F550M"}, Value: "specific.fits"},
	})
	got, err := m.Choose(map[string]string{"DETECTOR": "HRC", "FILTER": "N/A"})
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if got != "specific.fits" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchReferenceNamesSkipSpecials(t *testing.T) {
	t.Parallel()

	m := newTestMatch(t, []MatchEntry{
		{Key: []string{"HRC", "F550M"}, Value: "b.fits"},
		{Key: []string{"SBC", "F550M"}, Value: "a.fits"},
		{Key: []string{"WFC", "*"}, Value: "N/A"},
	})
	want := []string{"a.fits", "b.fits"}
	if diff := cmp.Diff(want, m.ReferenceNames()); diff != "" {
		t.Fatalf("reference names mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchValidateRejectsIllegalValues(t *testing.T) {
	t.Parallel()

	m := newTestMatch(t, []MatchEntry{
		{Key: []string{"HRC", "F550M"}, Value: "a.fits"},
	})
	valid := map[string][]string{"DETECTOR": {"WFC", "SBC"}}
	if err := m.Validate(valid); err == nil {
		t.Fatalf("expected an error for HRC against %v", valid["DETECTOR"])
	}
	valid["DETECTOR"] = append(valid["DETECTOR"], "HRC")
	if err := m.Validate(valid); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestMatchInsertReplacesExistingKey(t *testing.T) {
	t.Parallel()

	m := newTestMatch(t, []MatchEntry{
		{Key: []string{"HRC", "F550M"}, Value: "old.fits"},
	})
	updated, err := m.Insert(map[string]string{"DETECTOR": "HRC", "FILTER": "F550M"}, "new.fits")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := updated.Choose(map[string]string{"DETECTOR": "HRC", "FILTER": "F550M"})
	if err != nil {
		t.Fatalf("choose after insert: %v", err)
	}
	if got != "new.fits" {
		t.Fatalf("got %q after insert", got)
	}
	if prior, _ := m.Choose(map[string]string{"DETECTOR": "HRC", "FILTER": "F550M"}); prior != "old.fits" {
		t.Fatalf("insert mutated the original selector")
	}
}

func TestMatchInsertCreatesNestedUseAfter(t *testing.T) {
	t.Parallel()

	m, err := NewMatch([]string{"DETECTOR"}, []string{"DATE-OBS", "TIME-OBS"}, nil)
	if err != nil {
		t.Fatalf("build match selector: %v", err)
	}
	header := map[string]string{
		"DETECTOR": "HRC",
		"DATE-OBS": "2004-06-18",
		"TIME-OBS": "11:32:00",
	}
	updated, err := m.Insert(header, "fresh.fits")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := updated.Choose(map[string]string{
		"DETECTOR": "HRC",
		"DATE-OBS": "2005-01-01",
		"TIME-OBS": "00:00:00",
	})
	if err != nil {
		t.Fatalf("choose after insert: %v", err)
	}
	if got != "fresh.fits" {
		t.Fatalf("got %q after nested insert", got)
	}
}

func TestMatchDeletePrunesEmptyBranches(t *testing.T) {
	t.Parallel()

	useafter := NewUseAfter([]string{"DATE-OBS"}, nil)
	nested, err := useafter.Insert(map[string]string{"DATE-OBS": "1993-01-01"}, "only.fits")
	if err != nil {
		t.Fatalf("seed nested selector: %v", err)
	}
	m, err := NewMatch([]string{"DETECTOR"}, []string{"DATE-OBS"}, []MatchEntry{
		{Key: []string{"HRC"}, Value: nested},
		{Key: []string{"SBC"}, Value: "keep.fits"},
	})
	if err != nil {
		t.Fatalf("build match selector: %v", err)
	}

	updated, deleted := m.Delete("only.fits")
	if deleted != 1 {
		t.Fatalf("deleted %d rules, want 1", deleted)
	}
	if diff := cmp.Diff([]string{"keep.fits"}, updated.ReferenceNames()); diff != "" {
		t.Fatalf("names after delete mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchFormatRendersTupleKeys(t *testing.T) {
	t.Parallel()

	m := newTestMatch(t, []MatchEntry{
		{Key: []string{"HRC", "F550M"}, Value: "a.fits"},
	})
	got := m.Format(0)
	want := "Match({\n    ('HRC', 'F550M') : 'a.fits',\n})"
	if got != want {
		t.Fatalf("format:\n%s\nwant:\n%s", got, want)
	}
}
