package mapping

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// formatMapping renders the canonical source text: header record, optional
// comment block, then the selector body.
func formatMapping(_ Header, raw map[string]any, comment, selectorText string) string {
	var b strings.Builder
	b.WriteString("header = ")
	b.WriteString(formatDict(raw, 0))
	b.WriteString("\n\n")
	if comment != "" {
		b.WriteString("comment = \"\"\"")
		b.WriteString(comment)
		b.WriteString("\"\"\"\n\n")
	}
	b.WriteString("selector = ")
	b.WriteString(selectorText)
	b.WriteString("\n")
	return b.String()
}

// formatContext renders a pipeline or instrument context whose body is a
// plain selection dict.
func formatContext(header Header, raw map[string]any, comment string, selections map[string]*Selection) string {
	body := make(map[string]any, len(selections))
	for key, sel := range selections {
		body[key] = sel.Value
	}
	return formatMapping(header, raw, comment, formatDict(body, 0))
}

// formatRecord renders a header-only spec record as a bare key-value dict.
func formatRecord(raw map[string]any) string {
	return formatDict(raw, 0) + "\n"
}

// formatDict renders a sorted, indented literal dict.
func formatDict(dict map[string]any, indent int) string {
	prefix := strings.Repeat(" ", 4*indent)
	keys := make([]string, 0, len(dict))
	for key := range dict {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{\n")
	for _, key := range keys {
		b.WriteString(prefix + "    ")
		b.WriteString(formatValue(key, indent+1))
		b.WriteString(" : ")
		b.WriteString(formatValue(dict[key], indent+1))
		b.WriteString(",\n")
	}
	b.WriteString(prefix + "}")
	return b.String()
}

// formatValue renders one literal value in the restricted mapping grammar.
func formatValue(value any, indent int) string {
	switch v := value.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return formatTuple(items, indent)
	case []any:
		return formatTuple(v, indent)
	case Parkey:
		groups := make([]any, len(v))
		for i, group := range v {
			items := make([]any, len(group))
			for j, s := range group {
				items[j] = s
			}
			groups[i] = items
		}
		return formatTuple(groups, indent)
	case map[string]any:
		return formatDict(v, indent)
	case map[string]string:
		dict := make(map[string]any, len(v))
		for key, s := range v {
			dict[key] = s
		}
		return formatDict(dict, indent)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case nil:
		return "''"
	default:
		return fmt.Sprintf("'%v'", v)
	}
}

func formatTuple(items []any, indent int) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = formatValue(item, indent)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FormatWithChecksum renders m with a refreshed sha1sum, updating the header
// record in place the way a mapping write does.
func FormatWithChecksum(m Mapping) string {
	digest := Checksum(m.Format())
	m.RawHeader()["sha1sum"] = digest
	return m.Format()
}

// WriteFile renders m with a refreshed sha1sum and writes it to path.
func WriteFile(m Mapping, path string) error {
	text := FormatWithChecksum(m)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("mapping: write %q: %w", m.Basename(), err)
	}
	return nil
}
