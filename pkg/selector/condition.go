package selector

import (
	"strconv"
	"strings"
)

// ConditionValue normalizes a raw parameter value into the canonical form
// stored in mapping match keys: trimmed, upper case, booleans as T/F, and
// numbers in float notation so 1, 1.0, and "1." compare equal.
func ConditionValue(value string) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	switch v {
	case "TRUE":
		return "T"
	case "FALSE":
		return "F"
	case "", "NONE", "UNDEFINED":
		return "UNDEFINED"
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		formatted := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(formatted, ".") {
			formatted += ".0"
		}
		return formatted
	}
	return v
}

// ConditionHeader conditions every value of header and upper cases the keys.
func ConditionHeader(header map[string]string) map[string]string {
	conditioned := make(map[string]string, len(header))
	for key, value := range header {
		conditioned[strings.ToUpper(strings.TrimSpace(key))] = ConditionValue(value)
	}
	return conditioned
}
