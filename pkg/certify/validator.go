// Package certify applies validation template rows to reference file
// headers and to the rule keys of reference mappings.
package certify

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-refmap/pkg/tpn"
)

// Validator checks individual field values against one template row.
type Validator interface {
	Name() string
	Info() tpn.Info

	// CheckValue validates a single present value. Presence handling
	// happens in the Certifier, which knows whether the field exists.
	CheckValue(value string) error
}

// MissingKeywordError reports a required field that is absent.
type MissingKeywordError struct {
	Keyword string
}

func (e *MissingKeywordError) Error() string {
	return fmt.Sprintf("certify: missing required keyword %q", e.Keyword)
}

// IllegalKeywordError reports a field that must not be defined but is.
type IllegalKeywordError struct {
	Keyword string
}

func (e *IllegalKeywordError) Error() string {
	return fmt.Sprintf("certify: *must not define* keyword %q", e.Keyword)
}

// New constructs the Validator for a template row. Indirect &NAME
// constraints resolve to the named symbolic rule; unknown references and
// expression datatypes are errors.
func New(info tpn.Info) (Validator, error) {
	if info.DataType == tpn.TypeCharacter && info.IsIndirect() {
		return newIndirect(info)
	}
	switch info.DataType {
	case tpn.TypeCharacter:
		return newCharacter(info), nil
	case tpn.TypeLogical:
		return newLogical(info), nil
	case tpn.TypeInteger:
		return newNumeric(info, numericInteger)
	case tpn.TypeReal:
		return newNumeric(info, numericReal)
	case tpn.TypeDouble:
		return newNumeric(info, numericDouble)
	case tpn.TypeRegex:
		return newRegex(info)
	case tpn.TypeExpression:
		return nil, fmt.Errorf("certify: expression constraints are not supported for %q", info.Name)
	}
	return nil, fmt.Errorf("certify: unimplemented datatype %q for %q", info.DataType, info.Name)
}

// splitConstraint separates the allowed values from NOT_ prefixed
// disallowed values.
func splitConstraint(values []string) (allowed, disallowed []string) {
	for _, value := range values {
		if strings.HasPrefix(strings.ToUpper(value), "NOT_") {
			disallowed = append(disallowed, value[4:])
			continue
		}
		allowed = append(allowed, value)
	}
	return allowed, disallowed
}

// conditionCharacter normalizes a character value the way mapping keys are
// conditioned: trimmed, upper case, internal runs of spaces joined.
func conditionCharacter(value string) string {
	chars := strings.ToUpper(strings.TrimSpace(value))
	if strings.ContainsRune(chars, ' ') {
		chars = strings.Join(strings.Fields(chars), "_")
	}
	return chars
}
