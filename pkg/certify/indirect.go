package certify

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-refmap/internal/timestamp"
	"github.com/goliatone/go-refmap/pkg/tpn"
)

// newIndirect resolves a &NAME values column to the named symbolic rule.
func newIndirect(info tpn.Info) (Validator, error) {
	switch strings.ToUpper(info.Values[0]) {
	case "&PEDIGREE":
		return &pedigreeValidator{info: info}, nil
	case "&SYBDATE":
		return &dateValidator{info: info, parse: timestamp.ParseSybase, format: "Sybase"}, nil
	case "&SLASHDATE":
		return &dateValidator{info: info, parse: timestamp.ParseSlash, format: "slash"}, nil
	case "&ANYDATE":
		return &dateValidator{info: info, parse: timestamp.ParseAny, format: "any"}, nil
	case "&JWSTDATE":
		return &dateValidator{info: info, parse: timestamp.ParseISOT, format: "ISO-T"}, nil
	case "&FILENAME":
		return &filenameValidator{info: info}, nil
	}
	return nil, fmt.Errorf("certify: unknown symbolic constraint %q for %q", info.Values[0], info.Name)
}

// Recognized pedigree classifications.
var pedigreeKinds = []string{"INFLIGHT", "GROUND", "MODEL", "DUMMY", "SIMULATION"}

// pedigreeValidator checks PEDIGREE values, optionally carrying a start
// and stop date as in "INFLIGHT 02/01/2009 03/01/2009".
type pedigreeValidator struct {
	info tpn.Info
}

func (v *pedigreeValidator) Name() string   { return v.info.Name }
func (v *pedigreeValidator) Info() tpn.Info { return v.info }

func (v *pedigreeValidator) CheckValue(value string) error {
	fields := strings.Fields(strings.TrimSpace(value))
	// "KIND START - STOP" is the dash-separated spelling of the range.
	if len(fields) == 4 && fields[2] == "-" {
		fields = []string{fields[0], fields[1], fields[3]}
	}
	if len(fields) != 1 && len(fields) != 3 {
		return fmt.Errorf("certify: %s value %q is not of the form KIND [START STOP]", v.info.Name, value)
	}
	kind := strings.ToUpper(fields[0])
	known := false
	for _, candidate := range pedigreeKinds {
		if kind == candidate {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("certify: %s classification %q is not one of %v", v.info.Name, kind, pedigreeKinds)
	}
	if len(fields) == 1 {
		return nil
	}
	for _, date := range fields[1:] {
		if _, err := timestamp.ParseSlashOrDash(date); err != nil {
			return fmt.Errorf("certify: %s date %q: %w", v.info.Name, date, err)
		}
	}
	return nil
}

// dateValidator delegates to one of the timestamp parsers.
type dateValidator struct {
	info   tpn.Info
	parse  timestamp.ParseFunc
	format string
}

func (v *dateValidator) Name() string   { return v.info.Name }
func (v *dateValidator) Info() tpn.Info { return v.info }

func (v *dateValidator) CheckValue(value string) error {
	if _, err := v.parse(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("certify: %s value %q is not a valid %s date: %w", v.info.Name, value, v.format, err)
	}
	return nil
}

// filenameValidator checks fields that carry reference file basenames. The
// bootstrap marker "(initial)" and any value without a directory component
// are acceptable.
type filenameValidator struct {
	info tpn.Info
}

func (v *filenameValidator) Name() string   { return v.info.Name }
func (v *filenameValidator) Info() tpn.Info { return v.info }

func (v *filenameValidator) CheckValue(value string) error {
	name := strings.TrimSpace(value)
	if name == "(initial)" {
		return nil
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("certify: %s value %q is not a valid filename", v.info.Name, value)
	}
	return nil
}
