package mapping

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func rawRmapHeader() map[string]any {
	return map[string]any{
		"mapping":      "REFERENCE",
		"observatory":  "HST",
		"instrument":   "ACS",
		"filekind":     "DARKFILE",
		"name":         "hst_acs_darkfile_0037.rmap",
		"derived_from": "hst_acs_darkfile_0036.rmap",
		"parkey":       []any{[]any{"DETECTOR", "CCDAMP"}, []any{"DATE-OBS", "TIME-OBS"}},
	}
}

func TestDecodeHeaderLowerCasesPlainStrings(t *testing.T) {
	t.Parallel()

	header, err := DecodeHeader(rawRmapHeader())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if header.Observatory != "hst" || header.Instrument != "acs" || header.Filekind != "darkfile" {
		t.Fatalf("values were not lower cased: %+v", header)
	}
	want := Parkey{{"DETECTOR", "CCDAMP"}, {"DATE-OBS", "TIME-OBS"}}
	if diff := cmp.Diff(want, header.Parkey); diff != "" {
		t.Fatalf("parkey mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeHeaderKeepsExpressionCase(t *testing.T) {
	t.Parallel()

	raw := rawRmapHeader()
	raw["rmap_relevance"] = "(DETECTOR != 'SBC')"
	header, err := DecodeHeader(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if header.RmapRelevance != "(DETECTOR != 'SBC')" {
		t.Fatalf("expression text was mangled: %q", header.RmapRelevance)
	}
}

func TestDecodeHeaderPreservesUnknownKeys(t *testing.T) {
	t.Parallel()

	raw := rawRmapHeader()
	raw["comment_affected"] = "SOMETHING"
	header, err := DecodeHeader(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if header.Extra["comment_affected"] != "something" {
		t.Fatalf("unknown key was dropped: %v", header.Extra)
	}
}

func TestDecodeHeaderEmptyRecord(t *testing.T) {
	t.Parallel()

	if _, err := DecodeHeader(nil); err == nil {
		t.Fatalf("expected an error for an empty record")
	}
}

func TestHeaderValidatePerKind(t *testing.T) {
	t.Parallel()

	header, err := DecodeHeader(rawRmapHeader())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := header.Validate(KindReference); err != nil {
		t.Fatalf("validate reference header: %v", err)
	}
	if err := header.Validate(KindPipeline); err == nil {
		t.Fatalf("an rmap header must not validate as a pipeline context")
	}
}

func TestHasDerivation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		derived string
		want    bool
	}{
		{"hst_acs_darkfile_0036.rmap", true},
		{"generated from CDBS database 2014-05-09", false},
		{"created by hand 2013-07-11", false},
		{"cloning tool 0.05b (1)", false},
		{"", false},
	}
	for _, tc := range cases {
		header := Header{DerivedFrom: tc.derived}
		if got := header.HasDerivation(); got != tc.want {
			t.Fatalf("HasDerivation(%q) = %v, want %v", tc.derived, got, tc.want)
		}
	}
}

func TestParkeyFlatten(t *testing.T) {
	t.Parallel()

	parkey := Parkey{{"DETECTOR", "CCDAMP"}, {"DATE-OBS"}}
	want := []string{"DETECTOR", "CCDAMP", "DATE-OBS"}
	if diff := cmp.Diff(want, parkey.Flatten()); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
}
