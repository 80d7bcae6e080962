// Package timestamp parses the date notations that appear in use-after keys
// and reference file provenance fields.
package timestamp

import (
	"fmt"
	"strings"
	"time"
)

// Layouts for each notation family. Sybase dates tolerate both 12 hour and
// bare day forms.
var (
	dashLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	isoTLayouts = []string{
		"2006-01-02T15:04:05",
	}
	sybaseLayouts = []string{
		"Jan 2 2006 3:04:05 pm",
		"Jan 2 2006 3:04:05pm",
		"Jan 2 2006 15:04:05",
		"Jan 2 2006",
	}
	slashLayouts = []string{
		"02/01/2006 15:04:05",
		"02/01/2006",
	}
)

// ParseFunc is the shape shared by every notation parser here.
type ParseFunc func(value string) (time.Time, error)

func parseWith(layouts []string, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: cannot parse %q", value)
}

// ParseDash parses ISO style dash dates, 2009-12-25 11:13:00.
func ParseDash(value string) (time.Time, error) {
	return parseWith(dashLayouts, value)
}

// ParseISOT parses T separated ISO dates, 2009-12-25T11:13:00.
func ParseISOT(value string) (time.Time, error) {
	return parseWith(isoTLayouts, value)
}

// ParseSybase parses Sybase dates, Mar 21 2001 12:00:00 am.
func ParseSybase(value string) (time.Time, error) {
	return parseWith(sybaseLayouts, normalizeMeridian(value))
}

// ParseSlash parses day first slash dates, 25/12/2009.
func ParseSlash(value string) (time.Time, error) {
	return parseWith(slashLayouts, value)
}

// ParseSlashOrDash accepts either slash or dash notation, the combination
// allowed for pedigree date ranges.
func ParseSlashOrDash(value string) (time.Time, error) {
	if t, err := ParseSlash(value); err == nil {
		return t, nil
	}
	return ParseDash(value)
}

// ParseAny accepts every supported notation.
func ParseAny(value string) (time.Time, error) {
	for _, parse := range []func(string) (time.Time, error){
		ParseDash, ParseISOT, ParseSybase, ParseSlash,
	} {
		if t, err := parse(value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: cannot parse %q with any supported notation", value)
}

// Reformat renders t in the canonical dash notation used by use-after keys.
func Reformat(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// normalizeMeridian upper/lower cases am/pm markers the way time.Parse
// expects them.
func normalizeMeridian(value string) string {
	v := strings.TrimSpace(value)
	v = strings.ReplaceAll(v, " AM", " am")
	v = strings.ReplaceAll(v, " PM", " pm")
	v = strings.ReplaceAll(v, "AM", "am")
	v = strings.ReplaceAll(v, "PM", "pm")
	return v
}
