package certify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goliatone/go-refmap/pkg/tpn"
)

// characterValidator checks an uppercased value against an enumeration.
// An empty enumeration allows any value. Or-bar values such as "A|B" are
// matched part by part.
type characterValidator struct {
	info       tpn.Info
	allowed    []string
	disallowed []string
}

func newCharacter(info tpn.Info) *characterValidator {
	allowed, disallowed := splitConstraint(info.Values)
	for i, value := range allowed {
		allowed[i] = conditionCharacter(value)
	}
	for i, value := range disallowed {
		disallowed[i] = conditionCharacter(value)
	}
	return &characterValidator{info: info, allowed: allowed, disallowed: disallowed}
}

func (v *characterValidator) Name() string   { return v.info.Name }
func (v *characterValidator) Info() tpn.Info { return v.info }

func (v *characterValidator) CheckValue(value string) error {
	conditioned := conditionCharacter(value)
	parts := []string{conditioned}
	if strings.ContainsRune(conditioned, '|') {
		parts = strings.Split(conditioned, "|")
	}
	for _, part := range parts {
		if err := v.checkPart(part); err != nil {
			return err
		}
	}
	return nil
}

func (v *characterValidator) checkPart(part string) error {
	for _, bad := range v.disallowed {
		if part == bad {
			return fmt.Errorf("certify: %s value %q is disallowed", v.info.Name, part)
		}
	}
	if len(v.allowed) == 0 {
		return nil
	}
	for _, ok := range v.allowed {
		if part == ok {
			return nil
		}
	}
	return fmt.Errorf("certify: %s value %q is not one of %v", v.info.Name, part, v.allowed)
}

// logicalValidator accepts the FITS logical constants T and F only.
type logicalValidator struct {
	info tpn.Info
}

func newLogical(info tpn.Info) *logicalValidator {
	return &logicalValidator{info: info}
}

func (v *logicalValidator) Name() string   { return v.info.Name }
func (v *logicalValidator) Info() tpn.Info { return v.info }

func (v *logicalValidator) CheckValue(value string) error {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "T", "F":
		return nil
	}
	return fmt.Errorf("certify: %s value %q is not the logical T or F", v.info.Name, value)
}

// regexValidator matches values against a single anchored pattern taken
// from the row's values column.
type regexValidator struct {
	info    tpn.Info
	pattern *regexp.Regexp
}

func newRegex(info tpn.Info) (*regexValidator, error) {
	if len(info.Values) != 1 {
		return nil, fmt.Errorf("certify: regex row %q needs exactly one pattern, got %d", info.Name, len(info.Values))
	}
	source := info.Values[0]
	if !strings.HasPrefix(source, "^") {
		source = "^" + source
	}
	if !strings.HasSuffix(source, "$") {
		source += "$"
	}
	pattern, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("certify: regex row %q: %w", info.Name, err)
	}
	return &regexValidator{info: info, pattern: pattern}, nil
}

func (v *regexValidator) Name() string   { return v.info.Name }
func (v *regexValidator) Info() tpn.Info { return v.info }

func (v *regexValidator) CheckValue(value string) error {
	if v.pattern.MatchString(value) {
		return nil
	}
	return fmt.Errorf("certify: %s value %q does not match %s", v.info.Name, value, v.pattern)
}
