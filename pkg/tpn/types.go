// Package tpn models validation templates: ordered field-check rows that
// define the legal header and column values of a reference file category.
package tpn

import (
	"fmt"
	"strings"
)

// KeyType says where a checked field lives in a reference file.
type KeyType string

const (
	KeyHeader     KeyType = "H"
	KeyGroup      KeyType = "G"
	KeyColumn     KeyType = "C"
	KeyExpression KeyType = "X"
)

// DataType is the declared type of a checked field.
type DataType string

const (
	TypeCharacter  DataType = "C"
	TypeInteger    DataType = "I"
	TypeReal       DataType = "R"
	TypeDouble     DataType = "D"
	TypeLogical    DataType = "L"
	TypeRegex      DataType = "Z"
	TypeExpression DataType = "X"
)

// Presence says whether a checked field must, may, or must not appear.
type Presence string

const (
	PresenceRequired   Presence = "R"
	PresencePattern    Presence = "P"
	PresenceExcluded   Presence = "E"
	PresenceOptional   Presence = "O"
	PresenceWarn       Presence = "W"
)

// Info is one template row. Only the leading character of the keytype,
// datatype, and presence columns is significant; Values holds the optional
// constraint: an enumerated literal set, a numeric range lo:hi, or an
// indirect &NAME reference.
type Info struct {
	Name     string
	KeyType  KeyType
	DataType DataType
	Presence Presence
	Values   []string
}

// IsIndirect reports whether the constraint is a symbolic &NAME reference
// resolved by the certifier.
func (i Info) IsIndirect() bool {
	return len(i.Values) == 1 && strings.HasPrefix(i.Values[0], "&")
}

// IsRange reports whether the constraint is a numeric lo:hi range.
func (i Info) IsRange() bool {
	return len(i.Values) == 1 && strings.Contains(i.Values[0], ":") && !i.IsIndirect()
}

func (i Info) String() string {
	return fmt.Sprintf("Info(%s, %s, %s, %s, %v)", i.Name, i.KeyType, i.DataType, i.Presence, i.Values)
}

// Template is an ordered sequence of rows loaded from one .tpn file.
type Template struct {
	Name string
	Rows []Info
}

// ByName returns the row checking the named field.
func (t Template) ByName(name string) (Info, bool) {
	for _, row := range t.Rows {
		if row.Name == name {
			return row, true
		}
	}
	return Info{}, false
}

// ValidValuesMap returns the definitive legal values for each of the given
// parameter names. Range and indirect constraints do not enumerate, so their
// rows are reported unconstrained.
func (t Template) ValidValuesMap(parkeys []string) map[string][]string {
	required := make(map[string]bool, len(parkeys))
	for _, key := range parkeys {
		required[strings.ToUpper(key)] = true
	}
	valid := map[string][]string{}
	for _, row := range t.Rows {
		if !required[strings.ToUpper(row.Name)] {
			continue
		}
		if row.IsRange() || row.IsIndirect() {
			valid[strings.ToUpper(row.Name)] = nil
			continue
		}
		valid[strings.ToUpper(row.Name)] = append([]string(nil), row.Values...)
	}
	return valid
}

var (
	keyTypes = map[string]KeyType{
		"H": KeyHeader, "HEADER": KeyHeader,
		"G": KeyGroup, "GROUP": KeyGroup,
		"C": KeyColumn, "COLUMN": KeyColumn,
		"X": KeyExpression, "EXPRESSION": KeyExpression,
	}
	dataTypes = map[string]DataType{
		"C": TypeCharacter, "CHARACTER": TypeCharacter,
		"I": TypeInteger, "INTEGER": TypeInteger,
		"R": TypeReal, "REAL": TypeReal,
		"D": TypeDouble, "DOUBLE": TypeDouble,
		"L": TypeLogical, "LOGICAL": TypeLogical,
		"Z": TypeRegex, "REGEX": TypeRegex,
		"X": TypeExpression, "EXPRESSION": TypeExpression,
	}
	presences = map[string]Presence{
		"R": PresenceRequired, "REQUIRED": PresenceRequired,
		"P": PresencePattern,
		"E": PresenceExcluded, "EXCLUDED": PresenceExcluded, "PROHIBITED": PresenceExcluded,
		"O": PresenceOptional, "OPTIONAL": PresenceOptional,
		"W": PresenceWarn, "WARN": PresenceWarn,
	}
)

// ParseKeyType accepts the full word or its leading character.
func ParseKeyType(field string) (KeyType, error) {
	if kt, ok := keyTypes[strings.ToUpper(field)]; ok {
		return kt, nil
	}
	return "", fmt.Errorf("tpn: bad keytype field %q", field)
}

// ParseDataType accepts the full word or its leading character.
func ParseDataType(field string) (DataType, error) {
	if dt, ok := dataTypes[strings.ToUpper(field)]; ok {
		return dt, nil
	}
	return "", fmt.Errorf("tpn: bad datatype field %q", field)
}

// ParsePresence accepts the full word or its leading character.
func ParsePresence(field string) (Presence, error) {
	if p, ok := presences[strings.ToUpper(field)]; ok {
		return p, nil
	}
	return "", fmt.Errorf("tpn: bad presence field %q", field)
}
