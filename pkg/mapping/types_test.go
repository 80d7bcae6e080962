package mapping

import "testing"

func TestKindForName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want Kind
	}{
		{"hst.pmap", KindPipeline},
		{"hst_acs.imap", KindInstrument},
		{"hst_acs_darkfile_0037.rmap", KindReference},
		{"acs_darkfile.spec", KindSpec},
	}
	for _, tc := range cases {
		got, err := KindForName(tc.name)
		if err != nil {
			t.Fatalf("KindForName(%q): %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("KindForName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
	if _, err := KindForName("readme.txt"); err == nil {
		t.Fatalf("expected an error for an unknown extension")
	}
}

func TestNameVersion(t *testing.T) {
	t.Parallel()

	stem, serial, ext, ok := NameVersion("hst_acs_darkfile_0037.rmap")
	if !ok {
		t.Fatalf("expected a versioned name")
	}
	if stem != "hst_acs_darkfile" || serial != 37 || ext != ".rmap" {
		t.Fatalf("got %q %d %q", stem, serial, ext)
	}
	if _, _, _, ok := NameVersion("hst.pmap"); ok {
		t.Fatalf("hst.pmap carries no version serial")
	}
}

func TestNextVersionNamePreservesPadding(t *testing.T) {
	t.Parallel()

	got, err := NextVersionName("hst_acs_darkfile_0037.rmap")
	if err != nil {
		t.Fatalf("next version: %v", err)
	}
	if got != "hst_acs_darkfile_0038.rmap" {
		t.Fatalf("got %q", got)
	}
	if _, err := NextVersionName("hst.pmap"); err == nil {
		t.Fatalf("expected an error for an unversioned name")
	}
}

func TestSpecialValues(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"N/A", "TEMP_N/A"} {
		if !IsNAValue(value) {
			t.Fatalf("%q should read as not applicable", value)
		}
	}
	for _, value := range []string{"OMIT", "TEMP_OMIT"} {
		if !IsOmitValue(value) {
			t.Fatalf("%q should read as omitted", value)
		}
	}
	if IsSpecialValue("hst_acs.imap") {
		t.Fatalf("file names are never special values")
	}
}
