package mapping

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-refmap/pkg/selector"
)

func newTestSelector(t *testing.T) selector.Selector {
	t.Helper()
	entries, err := selector.ParseDateEntries([]selector.MatchEntry{
		{Key: []string{"1992-01-02 00:00:00"}, Value: "old_dark.fits"},
		{Key: []string{"2004-06-18 00:00:00"}, Value: "new_dark.fits"},
	})
	if err != nil {
		t.Fatalf("parse date entries: %v", err)
	}
	useafter := selector.NewUseAfter([]string{"DATE-OBS", "TIME-OBS"}, entries)
	match, err := selector.NewMatch(
		[]string{"DETECTOR"},
		[]string{"DATE-OBS", "TIME-OBS"},
		[]selector.MatchEntry{
			{Key: []string{"HRC"}, Value: useafter},
			{Key: []string{"SBC"}, Value: "N/A"},
			{Key: []string{"WFC"}, Value: "OMIT"},
		},
	)
	if err != nil {
		t.Fatalf("build match selector: %v", err)
	}
	return match
}

func newTestRmap(t *testing.T) *ReferenceMapping {
	t.Helper()
	raw := map[string]any{
		"mapping":      "REFERENCE",
		"observatory":  "HST",
		"instrument":   "ACS",
		"filekind":     "DARKFILE",
		"name":         "hst_acs_darkfile_0037.rmap",
		"derived_from": "hst_acs_darkfile_0036.rmap",
		"parkey":       []any{[]any{"DETECTOR"}, []any{"DATE-OBS", "TIME-OBS"}},
	}
	header, err := DecodeHeader(raw)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	rmap, err := NewReferenceMapping("hst_acs_darkfile_0037.rmap", header, raw, "", newTestSelector(t))
	if err != nil {
		t.Fatalf("build reference mapping: %v", err)
	}
	return rmap
}

func TestBestRefConditionsRawValues(t *testing.T) {
	t.Parallel()

	rmap := newTestRmap(t)
	got, err := rmap.BestRef(map[string]string{
		"detector": "hrc",
		"DATE-OBS": "2005-01-01",
		"TIME-OBS": "00:00:00",
	})
	if err != nil {
		t.Fatalf("bestref: %v", err)
	}
	if got != "new_dark.fits" {
		t.Fatalf("got %q", got)
	}
}

func TestBestRefSpecialOutcomes(t *testing.T) {
	t.Parallel()

	rmap := newTestRmap(t)
	_, err := rmap.BestRef(map[string]string{"DETECTOR": "SBC"})
	if !errors.Is(err, ErrIrrelevant) {
		t.Fatalf("got %v, want ErrIrrelevant for an N/A rule", err)
	}
	_, err = rmap.BestRef(map[string]string{"DETECTOR": "WFC"})
	if !errors.Is(err, ErrOmitted) {
		t.Fatalf("got %v, want ErrOmitted for an OMIT rule", err)
	}
}

func TestReferenceNamesSkipSpecialTerminals(t *testing.T) {
	t.Parallel()

	rmap := newTestRmap(t)
	want := []string{"new_dark.fits", "old_dark.fits"}
	if diff := cmp.Diff(want, rmap.ReferenceNames()); diff != "" {
		t.Fatalf("reference names mismatch (-want +got):\n%s", diff)
	}
}

func TestRequiredParkeysIncludeSwitchAndExtras(t *testing.T) {
	t.Parallel()

	rmap := newTestRmap(t)
	rmap.header.ReffileSwitch = "darkcorr"
	rmap.header.ExtraKeys = []string{"XCORNER"}
	want := []string{"DETECTOR", "DATE-OBS", "TIME-OBS", "DARKCORR", "XCORNER"}
	if diff := cmp.Diff(want, rmap.RequiredParkeys()); diff != "" {
		t.Fatalf("required parkeys mismatch (-want +got):\n%s", diff)
	}
}

func TestNewReferenceMappingChecksParkeyTranslation(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"mapping":      "REFERENCE",
		"observatory":  "HST",
		"instrument":   "ACS",
		"filekind":     "DARKFILE",
		"name":         "hst_acs_darkfile_0037.rmap",
		"derived_from": "hst_acs_darkfile_0036.rmap",
		"parkey":       []any{[]any{"DETECTOR"}},
		"reference_to_dataset": map[string]any{
			"CAMERA": "INSTRUME",
		},
	}
	header, err := DecodeHeader(raw)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if _, err := NewReferenceMapping("x.rmap", header, raw, "", newTestSelector(t)); err == nil {
		t.Fatalf("INSTRUME is not a parkey, expected an error")
	}
}

func TestPartialReferenceToDatasetIsAccepted(t *testing.T) {
	t.Parallel()

	// TIME-OBS has no reference-file counterpart; the table only covers
	// DETECTOR and DATE-OBS.
	raw := map[string]any{
		"mapping":      "REFERENCE",
		"observatory":  "HST",
		"instrument":   "ACS",
		"filekind":     "DARKFILE",
		"name":         "hst_acs_darkfile_0037.rmap",
		"derived_from": "hst_acs_darkfile_0036.rmap",
		"parkey":       []any{[]any{"DETECTOR"}, []any{"DATE-OBS", "TIME-OBS"}},
		"reference_to_dataset": map[string]any{
			"CAMERA":   "DETECTOR",
			"USEAFTER": "DATE-OBS",
		},
	}
	header, err := DecodeHeader(raw)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if _, err := NewReferenceMapping("hst_acs_darkfile_0037.rmap", header, raw, "", newTestSelector(t)); err != nil {
		t.Fatalf("partial translation table rejected: %v", err)
	}
}

func TestInsertTranslatesReferenceKeywords(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"mapping":      "REFERENCE",
		"observatory":  "HST",
		"instrument":   "ACS",
		"filekind":     "DARKFILE",
		"name":         "hst_acs_darkfile_0037.rmap",
		"derived_from": "hst_acs_darkfile_0036.rmap",
		"parkey":       []any{[]any{"DETECTOR"}, []any{"DATE-OBS", "TIME-OBS"}},
		"reference_to_dataset": map[string]any{
			"CAMERA":   "DETECTOR",
			"USEAFTER": "DATE-OBS",
		},
	}
	header, err := DecodeHeader(raw)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	rmap, err := NewReferenceMapping("hst_acs_darkfile_0037.rmap", header, raw, "", newTestSelector(t))
	if err != nil {
		t.Fatalf("build reference mapping: %v", err)
	}

	inserted, err := rmap.Insert(map[string]string{
		"CAMERA":   "HRC",
		"USEAFTER": "2010-01-01",
		"TIME-OBS": "00:00:00",
	}, "fresh_dark.fits")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := inserted.BestRef(map[string]string{
		"DETECTOR": "HRC",
		"DATE-OBS": "2011-01-01",
		"TIME-OBS": "00:00:00",
	})
	if err != nil {
		t.Fatalf("bestref after insert: %v", err)
	}
	if got != "fresh_dark.fits" {
		t.Fatalf("got %q after insert", got)
	}
}

func TestDeleteReferenceRequiresAHit(t *testing.T) {
	t.Parallel()

	rmap := newTestRmap(t)
	if _, err := rmap.DeleteReference("never_there.fits"); err == nil {
		t.Fatalf("expected an error deleting an unreferenced file")
	}
	pruned, err := rmap.DeleteReference("old_dark.fits")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if diff := cmp.Diff([]string{"new_dark.fits"}, pruned.ReferenceNames()); diff != "" {
		t.Fatalf("names after delete mismatch (-want +got):\n%s", diff)
	}
}

func TestMinimizeHeaderFillsUndefined(t *testing.T) {
	t.Parallel()

	rmap := newTestRmap(t)
	got := MinimizeHeader(rmap, map[string]string{"detector": "HRC", "IRRELEVANT": "x"})
	want := map[string]string{
		"DETECTOR": "HRC",
		"DATE-OBS": "UNDEFINED",
		"TIME-OBS": "UNDEFINED",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("minimized header mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatWithChecksumVerifies(t *testing.T) {
	t.Parallel()

	rmap := newTestRmap(t)
	rmap.RawHeader()["sha1sum"] = "stale"
	text := FormatWithChecksum(rmap)
	if err := VerifyTextChecksum(text, rmap.Basename()); err != nil {
		t.Fatalf("formatted text does not verify: %v", err)
	}
}

func newTestPipeline(t *testing.T) *PipelineContext {
	t.Helper()
	raw := map[string]any{
		"mapping":      "PIPELINE",
		"observatory":  "HST",
		"name":         "hst_0001.pmap",
		"derived_from": "hst_0000.pmap",
		"parkey":       []any{[]any{"INSTRUME"}},
	}
	header, err := DecodeHeader(raw)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	pmap, err := NewPipelineContext("hst_0001.pmap", header, raw, "",
		map[string]string{"acs": "hst_acs_0001.imap"})
	if err != nil {
		t.Fatalf("build pipeline context: %v", err)
	}
	return pmap
}

func TestSetItemLeavesOriginalAlone(t *testing.T) {
	t.Parallel()

	pmap := newTestPipeline(t)
	updated := pmap.SetItem("COS", "hst_cos_0001.imap")

	if _, ok := pmap.Selections()["cos"]; ok {
		t.Fatalf("SetItem mutated the original context")
	}
	sel, ok := updated.Selections()["cos"]
	if !ok || sel.Value != "hst_cos_0001.imap" {
		t.Fatalf("cos selection = %+v", sel)
	}
	if got := updated.Selections()["acs"].Value; got != "hst_acs_0001.imap" {
		t.Fatalf("acs selection changed: %q", got)
	}
}

func TestCopyIsUnresolvedAndIndependent(t *testing.T) {
	t.Parallel()

	pmap := newTestPipeline(t)
	rmap := newTestRmap(t)
	imapRaw := map[string]any{
		"mapping":      "INSTRUMENT",
		"observatory":  "HST",
		"instrument":   "acs",
		"name":         "hst_acs_0001.imap",
		"derived_from": "hst_acs_0000.imap",
		"parkey":       []any{[]any{"REFTYPE"}},
	}
	imapHeader, err := DecodeHeader(imapRaw)
	if err != nil {
		t.Fatalf("decode imap header: %v", err)
	}
	imap, err := NewInstrumentContext("hst_acs_0001.imap", imapHeader, imapRaw, "",
		map[string]string{"darkfile": rmap.Basename()})
	if err != nil {
		t.Fatalf("build instrument context: %v", err)
	}
	if err := pmap.Resolve("acs", imap); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	clone := pmap.Copy()
	if clone.Selections()["acs"].Resolved != nil {
		t.Fatalf("copy must start unresolved")
	}
	clone.RawHeader()["name"] = "hst_0002.pmap"
	if pmap.RawHeader()["name"] != "hst_0001.pmap" {
		t.Fatalf("raw header edit leaked into the original")
	}
}

func TestWriteFileRoundTrips(t *testing.T) {
	t.Parallel()

	rmap := newTestRmap(t)
	path := filepath.Join(t.TempDir(), rmap.Basename())
	if err := WriteFile(rmap, path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if err := VerifyTextChecksum(string(data), rmap.Basename()); err != nil {
		t.Fatalf("written text does not verify: %v", err)
	}
}
