package selector

import (
	"fmt"
	"sort"
	"strings"
)

// MatchEntry is one rule of a Match selector: a tuple of patterns aligned
// with the selector parkeys, and a terminal value or nested selector.
type MatchEntry struct {
	Key   []string
	Value any
}

// Match selects by ranking parameter tuples against pattern tuples. Exact and
// or-bar hits outrank wildcard hits; a tie between different outcomes is an
// ambiguity error.
type Match struct {
	parkeys []string
	nested  []string
	entries []MatchEntry
}

var _ Selector = (*Match)(nil)

// NewMatch constructs a Match selector. parkeys names the matched parameters,
// nested carries the parkeys of the next selection stage so Insert can build
// fresh UseAfter branches, and entries hold the rules as authored.
func NewMatch(parkeys, nested []string, entries []MatchEntry) (*Match, error) {
	for _, entry := range entries {
		if len(entry.Key) != len(parkeys) {
			return nil, fmt.Errorf("selector: match key %v does not align with parkeys %v",
				entry.Key, parkeys)
		}
	}
	m := &Match{
		parkeys: append([]string(nil), parkeys...),
		nested:  append([]string(nil), nested...),
		entries: append([]MatchEntry(nil), entries...),
	}
	m.sort()
	return m, nil
}

func (m *Match) sort() {
	sort.SliceStable(m.entries, func(i, j int) bool {
		return keyString(m.entries[i].Key) < keyString(m.entries[j].Key)
	})
}

// Parkeys returns the matched parameter names.
func (m *Match) Parkeys() []string {
	return append([]string(nil), m.parkeys...)
}

// Entries returns the rules in canonical order.
func (m *Match) Entries() []MatchEntry {
	return append([]MatchEntry(nil), m.entries...)
}

// Choose ranks every rule against header and descends into the winner.
func (m *Match) Choose(header map[string]string) (string, error) {
	best := -1
	var winners []MatchEntry
	for _, entry := range m.entries {
		weight, ok := m.weigh(entry.Key, header)
		if !ok {
			continue
		}
		switch {
		case weight > best:
			best = weight
			winners = winners[:0]
			winners = append(winners, entry)
		case weight == best:
			winners = append(winners, entry)
		}
	}
	if len(winners) == 0 {
		return "", fmt.Errorf("%w for parameters %v", ErrNoMatch, m.describe(header))
	}
	if len(winners) > 1 {
		// A tie is only ambiguous when the tied rules resolve to
		// different outcomes.
		outcome, err := descend(winners[0].Value, header)
		agreed := err == nil
		for _, entry := range winners[1:] {
			if !agreed {
				break
			}
			next, nextErr := descend(entry.Value, header)
			agreed = nextErr == nil && next == outcome
		}
		if agreed {
			return outcome, nil
		}
		keys := make([]string, len(winners))
		for i, entry := range winners {
			keys[i] = keyString(entry.Key)
		}
		return "", &AmbiguityError{Keys: keys}
	}
	return descend(winners[0].Value, header)
}

// weigh scores one pattern tuple: exact and or-bar hits count 1, wildcards
// and N/A count 0, anything else disqualifies the rule.
func (m *Match) weigh(key []string, header map[string]string) (int, bool) {
	weight := 0
	for i, pattern := range key {
		value := header[m.parkeys[i]]
		switch {
		case pattern == "*" || IsNotApplicable(pattern):
			// applies to anything, adds no specificity
		case IsNotApplicable(value):
			// dataset declares the parameter irrelevant
		case orMatch(pattern, value):
			weight++
		default:
			return 0, false
		}
	}
	return weight, true
}

func (m *Match) describe(header map[string]string) []string {
	described := make([]string, len(m.parkeys))
	for i, parkey := range m.parkeys {
		value, ok := header[parkey]
		if !ok {
			value = "UNDEFINED"
		}
		described[i] = parkey + "=" + value
	}
	return described
}

// ReferenceNames returns the sorted unique terminals of the rule tree.
func (m *Match) ReferenceNames() []string {
	seen := map[string]bool{}
	for _, entry := range m.entries {
		collectTerminals(entry.Value, seen)
	}
	return sortedKeys(seen)
}

// ParkeyMap reports the literal pattern values seen per parameter.
func (m *Match) ParkeyMap() map[string][]string {
	values := make(map[string]map[string]bool, len(m.parkeys))
	for _, parkey := range m.parkeys {
		values[parkey] = map[string]bool{}
	}
	for _, entry := range m.entries {
		for i, pattern := range entry.Key {
			for _, part := range strings.Split(pattern, "|") {
				if part == "*" {
					continue
				}
				values[m.parkeys[i]][part] = true
			}
		}
	}
	pkmap := make(map[string][]string, len(values))
	for parkey, set := range values {
		pkmap[parkey] = sortedKeys(set)
	}
	for _, entry := range m.entries {
		if nested, ok := entry.Value.(Selector); ok {
			for parkey, vals := range nested.ParkeyMap() {
				pkmap[parkey] = mergeSorted(pkmap[parkey], vals)
			}
		}
	}
	return pkmap
}

// Validate checks every pattern component against the definitive valid value
// lists, ignoring wildcards and N/A.
func (m *Match) Validate(valid map[string][]string) error {
	for _, entry := range m.entries {
		for i, pattern := range entry.Key {
			legal, constrained := valid[m.parkeys[i]]
			if !constrained || len(legal) == 0 {
				continue
			}
			for _, part := range strings.Split(pattern, "|") {
				if part == "*" || IsNotApplicable(part) {
					continue
				}
				if !contains(legal, ConditionValue(part)) {
					return fmt.Errorf("selector: key %s value %q is not a valid %s: %v",
						keyString(entry.Key), part, m.parkeys[i], legal)
				}
			}
		}
		if nested, ok := entry.Value.(Selector); ok {
			if err := nested.Validate(valid); err != nil {
				return err
			}
		}
	}
	return nil
}

// Insert returns a copy with terminal filed under the key derived from
// header, descending into or creating a nested stage when one is configured.
func (m *Match) Insert(header map[string]string, terminal string) (Selector, error) {
	key := make([]string, len(m.parkeys))
	for i, parkey := range m.parkeys {
		value, ok := header[parkey]
		if !ok {
			value = "N/A"
		}
		key[i] = value
	}

	entries := append([]MatchEntry(nil), m.entries...)
	for i, entry := range entries {
		if keyString(entry.Key) != keyString(key) {
			continue
		}
		if nested, ok := entry.Value.(Selector); ok {
			updated, err := nested.Insert(header, terminal)
			if err != nil {
				return nil, err
			}
			entries[i] = MatchEntry{Key: entry.Key, Value: updated}
		} else {
			entries[i] = MatchEntry{Key: entry.Key, Value: terminal}
		}
		return NewMatch(m.parkeys, m.nested, entries)
	}

	var value any = terminal
	if len(m.nested) > 0 {
		useafter := NewUseAfter(m.nested, nil)
		updated, err := useafter.Insert(header, terminal)
		if err != nil {
			return nil, err
		}
		value = updated
	}
	entries = append(entries, MatchEntry{Key: key, Value: value})
	return NewMatch(m.parkeys, m.nested, entries)
}

// Delete removes every rule resolving to terminal, pruning branches that
// become empty.
func (m *Match) Delete(terminal string) (Selector, int) {
	var kept []MatchEntry
	deleted := 0
	for _, entry := range m.entries {
		switch value := entry.Value.(type) {
		case string:
			if value == terminal {
				deleted++
				continue
			}
			kept = append(kept, entry)
		case Selector:
			updated, count := value.Delete(terminal)
			deleted += count
			if len(updated.ReferenceNames()) == 0 {
				continue
			}
			kept = append(kept, MatchEntry{Key: entry.Key, Value: updated})
		}
	}
	replacement, err := NewMatch(m.parkeys, m.nested, kept)
	if err != nil {
		// kept keys came from m and stay aligned with m.parkeys
		panic(err)
	}
	return replacement, deleted
}

// Format renders the selector as canonical mapping source text.
func (m *Match) Format(indent int) string {
	prefix := strings.Repeat(" ", 4*indent)
	inner := strings.Repeat(" ", 4*(indent+1))
	var b strings.Builder
	b.WriteString("Match({\n")
	for _, entry := range m.entries {
		b.WriteString(inner)
		b.WriteString(keyString(entry.Key))
		b.WriteString(" : ")
		switch value := entry.Value.(type) {
		case string:
			b.WriteString("'" + value + "'")
		case Selector:
			b.WriteString(value.Format(indent + 1))
		}
		b.WriteString(",\n")
	}
	b.WriteString(prefix + "})")
	return b.String()
}

// IsNotApplicable reports whether a pattern or value is an N/A marker.
func IsNotApplicable(value string) bool {
	return value == "N/A" || value == "TEMP_N/A"
}

func orMatch(pattern, value string) bool {
	for _, part := range strings.Split(pattern, "|") {
		if ConditionValue(part) == value {
			return true
		}
	}
	return false
}

func descend(value any, header map[string]string) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case Selector:
		return v.Choose(header)
	default:
		return "", fmt.Errorf("selector: unexpected terminal type %T", value)
	}
}

func collectTerminals(value any, seen map[string]bool) {
	switch v := value.(type) {
	case string:
		if !IsNotApplicable(v) && v != "OMIT" {
			seen[v] = true
		}
	case Selector:
		for _, name := range v.ReferenceNames() {
			seen[name] = true
		}
	}
}

func keyString(key []string) string {
	quoted := make([]string, len(key))
	for i, part := range key {
		quoted[i] = "'" + part + "'"
	}
	if len(quoted) == 1 {
		return "(" + quoted[0] + ",)"
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func mergeSorted(a, b []string) []string {
	set := map[string]bool{}
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		set[v] = true
	}
	return sortedKeys(set)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if ConditionValue(v) == value {
			return true
		}
	}
	return false
}
