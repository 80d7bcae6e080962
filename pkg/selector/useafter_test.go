package selector

import (
	"errors"
	"testing"
)

func newTestUseAfter(t *testing.T) *UseAfter {
	t.Helper()
	entries, err := ParseDateEntries([]MatchEntry{
		{Key: []string{"1992-01-02 00:00:00"}, Value: "early.fits"},
		{Key: []string{"1997-03-10 12:00:00"}, Value: "middle.fits"},
		{Key: []string{"2004-06-18 00:00:00"}, Value: "late.fits"},
	})
	if err != nil {
		t.Fatalf("parse date entries: %v", err)
	}
	return NewUseAfter([]string{"DATE-OBS", "TIME-OBS"}, entries)
}

func TestUseAfterChoosesLatestActiveEntry(t *testing.T) {
	t.Parallel()

	u := newTestUseAfter(t)
	cases := []struct {
		date, time, want string
	}{
		{"1993-05-05", "00:00:00", "early.fits"},
		{"1997-03-10", "12:00:00", "middle.fits"},
		{"2019-01-01", "00:00:00", "late.fits"},
	}
	for _, tc := range cases {
		got, err := u.Choose(map[string]string{"DATE-OBS": tc.date, "TIME-OBS": tc.time})
		if err != nil {
			t.Fatalf("choose %s %s: %v", tc.date, tc.time, err)
		}
		if got != tc.want {
			t.Fatalf("choose %s %s: got %q, want %q", tc.date, tc.time, got, tc.want)
		}
	}
}

func TestUseAfterBeforeFirstEntryIsNoMatch(t *testing.T) {
	t.Parallel()

	u := newTestUseAfter(t)
	_, err := u.Choose(map[string]string{"DATE-OBS": "1980-01-01", "TIME-OBS": "00:00:00"})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("got %v, want ErrNoMatch", err)
	}
}

func TestUseAfterMissingDateParameters(t *testing.T) {
	t.Parallel()

	u := newTestUseAfter(t)
	if _, err := u.Choose(map[string]string{"DETECTOR": "HRC"}); err == nil {
		t.Fatalf("expected an error without date parameters")
	}
}

func TestUseAfterInsertReplacesSameDate(t *testing.T) {
	t.Parallel()

	u := newTestUseAfter(t)
	updated, err := u.Insert(map[string]string{"DATE-OBS": "1997-03-10", "TIME-OBS": "12:00:00"}, "replacement.fits")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := updated.Choose(map[string]string{"DATE-OBS": "1997-03-10", "TIME-OBS": "12:00:00"})
	if err != nil {
		t.Fatalf("choose after insert: %v", err)
	}
	if got != "replacement.fits" {
		t.Fatalf("got %q after same-date insert", got)
	}
}

func TestParseDateEntriesRejectsBadDates(t *testing.T) {
	t.Parallel()

	_, err := ParseDateEntries([]MatchEntry{
		{Key: []string{"once upon a time"}, Value: "x.fits"},
	})
	if err == nil {
		t.Fatalf("expected an error for an unparseable activation date")
	}
}
