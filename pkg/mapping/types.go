package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind discriminates the three mapping layers plus header-only spec records.
type Kind string

const (
	KindPipeline   Kind = "pipeline"
	KindInstrument Kind = "instrument"
	KindReference  Kind = "reference"
	KindSpec       Kind = "spec"
)

// Extensions as they appear on disk.
const (
	ExtPipeline   = ".pmap"
	ExtInstrument = ".imap"
	ExtReference  = ".rmap"
	ExtSpec       = ".spec"
)

// KindForName infers the mapping kind from a file name extension.
func KindForName(name string) (Kind, error) {
	switch {
	case strings.HasSuffix(name, ExtPipeline):
		return KindPipeline, nil
	case strings.HasSuffix(name, ExtInstrument):
		return KindInstrument, nil
	case strings.HasSuffix(name, ExtReference):
		return KindReference, nil
	case strings.HasSuffix(name, ExtSpec):
		return KindSpec, nil
	}
	return "", fmt.Errorf("mapping: unknown mapping extension for %q", name)
}

// Special selection values terminate closure recursion: they designate the
// absence of a nested file, not a file.
var (
	naValues   = map[string]bool{"N/A": true, "TEMP_N/A": true, "n/a": true, "temp_n/a": true}
	omitValues = map[string]bool{"OMIT": true, "TEMP_OMIT": true, "omit": true, "temp_omit": true}
)

// IsNAValue reports whether value marks a selection as not applicable.
func IsNAValue(value string) bool {
	return naValues[value]
}

// IsOmitValue reports whether value marks a selection as omitted.
func IsOmitValue(value string) bool {
	return omitValues[value]
}

// IsSpecialValue reports whether value is N/A or OMIT in any spelling.
func IsSpecialValue(value string) bool {
	return IsNAValue(value) || IsOmitValue(value)
}

// versionPattern matches the trailing version serial in mapping names such as
// hst_acs_darkfile_0037.rmap.
var versionPattern = regexp.MustCompile(`^(.*)_(\d+)(\.[a-z]+)$`)

// NameVersion decomposes a versioned mapping name into its stem, serial
// number, and extension. Unversioned names (hst.pmap, hst_acs.imap) return
// ok=false.
func NameVersion(name string) (stem string, serial int, ext string, ok bool) {
	match := versionPattern.FindStringSubmatch(name)
	if match == nil {
		return "", 0, "", false
	}
	serial, err := strconv.Atoi(match[2])
	if err != nil {
		return "", 0, "", false
	}
	return match[1], serial, match[3], true
}

// NextVersionName returns the name of the successor version of `name`,
// preserving the zero padded width of the serial field.
func NextVersionName(name string) (string, error) {
	match := versionPattern.FindStringSubmatch(name)
	if match == nil {
		return "", fmt.Errorf("mapping: name %q has no version serial", name)
	}
	serial, err := strconv.Atoi(match[2])
	if err != nil {
		return "", fmt.Errorf("mapping: name %q has no version serial", name)
	}
	width := len(match[2])
	return fmt.Sprintf("%s_%0*d%s", match[1], width, serial+1, match[3]), nil
}
