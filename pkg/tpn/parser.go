package tpn

import (
	"fmt"
	"strings"
)

// Parse converts template text into an ordered Template. Rows are
// whitespace-aligned columns name, keytype, datatype, presence, and an
// optional values constraint; '#' lines are comments and a trailing
// backslash joins long enumerations across lines.
func Parse(name, text string) (Template, error) {
	template := Template{Name: name}
	seen := map[string]int{}

	for lineno, line := range joinContinuations(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		fields := strings.Fields(trimmed)
		if len(fields) < 4 {
			return Template{}, fmt.Errorf("tpn: %s: short row at line %d: %q", name, lineno+1, trimmed)
		}

		keyType, err := ParseKeyType(fields[1])
		if err != nil {
			return Template{}, fmt.Errorf("tpn: %s: line %d: %w", name, lineno+1, err)
		}
		dataType, err := ParseDataType(fields[2])
		if err != nil {
			return Template{}, fmt.Errorf("tpn: %s: line %d: %w", name, lineno+1, err)
		}
		presence, err := ParsePresence(fields[3])
		if err != nil {
			return Template{}, fmt.Errorf("tpn: %s: line %d: %w", name, lineno+1, err)
		}

		row := Info{
			Name:     strings.ToUpper(fields[0]),
			KeyType:  keyType,
			DataType: dataType,
			Presence: presence,
			Values:   splitValues(fields[4:]),
		}

		if prior, dup := seen[row.Name]; dup {
			return Template{}, fmt.Errorf("tpn: %s: duplicate field %q at lines %d and %d",
				name, row.Name, prior+1, lineno+1)
		}
		seen[row.Name] = lineno
		template.Rows = append(template.Rows, row)
	}
	return template, nil
}

// joinContinuations folds backslash-continued lines into single logical
// rows, preserving original line numbering for diagnostics.
func joinContinuations(text string) []string {
	raw := strings.Split(text, "\n")
	joined := make([]string, len(raw))
	var pending strings.Builder
	pendingAt := -1

	for i, line := range raw {
		content := strings.TrimRight(line, " \t\r")
		if strings.HasSuffix(content, "\\") {
			if pendingAt < 0 {
				pendingAt = i
			}
			pending.WriteString(strings.TrimSuffix(content, "\\"))
			continue
		}
		if pendingAt >= 0 {
			pending.WriteString(content)
			joined[pendingAt] = pending.String()
			pending.Reset()
			pendingAt = -1
			continue
		}
		joined[i] = line
	}
	if pendingAt >= 0 {
		joined[pendingAt] = pending.String()
	}
	return joined
}

// splitValues parses the VALUES column: comma separated literals, a numeric
// range, an indirect reference, or a quoted literal default.
func splitValues(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	column := strings.Join(fields, "")
	var values []string
	for _, value := range strings.Split(column, ",") {
		value = strings.Trim(value, `"' `)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}
