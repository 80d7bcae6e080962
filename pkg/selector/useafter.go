package selector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-refmap/internal/timestamp"
)

// DateEntry is one rule of a UseAfter selector: an activation datetime and
// the value effective from that moment on.
type DateEntry struct {
	Raw   string
	When  time.Time
	Value any
}

// UseAfter selects the latest entry whose activation date does not exceed
// the observation date assembled from its parkeys.
type UseAfter struct {
	parkeys []string
	entries []DateEntry
}

var _ Selector = (*UseAfter)(nil)

// NewUseAfter constructs a UseAfter selector over date parkeys, typically
// ('DATE-OBS', 'TIME-OBS').
func NewUseAfter(parkeys []string, entries []DateEntry) *UseAfter {
	u := &UseAfter{
		parkeys: append([]string(nil), parkeys...),
		entries: append([]DateEntry(nil), entries...),
	}
	u.sort()
	return u
}

// ParseDateEntries converts raw date keyed values into sorted entries,
// rejecting unparseable dates.
func ParseDateEntries(raw []MatchEntry) ([]DateEntry, error) {
	entries := make([]DateEntry, 0, len(raw))
	for _, item := range raw {
		if len(item.Key) != 1 {
			return nil, fmt.Errorf("selector: use-after key %v must be a single datetime", item.Key)
		}
		when, err := timestamp.ParseAny(item.Key[0])
		if err != nil {
			return nil, fmt.Errorf("selector: invalid use-after date %q: %w", item.Key[0], err)
		}
		entries = append(entries, DateEntry{Raw: item.Key[0], When: when, Value: item.Value})
	}
	return entries, nil
}

func (u *UseAfter) sort() {
	sort.SliceStable(u.entries, func(i, j int) bool {
		return u.entries[i].When.Before(u.entries[j].When)
	})
}

// Entries returns the rules in activation order.
func (u *UseAfter) Entries() []DateEntry {
	return append([]DateEntry(nil), u.entries...)
}

// Choose assembles the observation date from header and returns the value of
// the latest entry active at that moment.
func (u *UseAfter) Choose(header map[string]string) (string, error) {
	obs, err := u.observationTime(header)
	if err != nil {
		return "", err
	}
	var active *DateEntry
	for i := range u.entries {
		if u.entries[i].When.After(obs) {
			break
		}
		active = &u.entries[i]
	}
	if active == nil {
		return "", fmt.Errorf("%w: no rule active before %s", ErrNoMatch, timestamp.Reformat(obs))
	}
	return descend(active.Value, header)
}

func (u *UseAfter) observationTime(header map[string]string) (time.Time, error) {
	parts := make([]string, 0, len(u.parkeys))
	for _, parkey := range u.parkeys {
		if value, ok := header[parkey]; ok && value != "UNDEFINED" {
			parts = append(parts, value)
		}
	}
	if len(parts) == 0 {
		return time.Time{}, fmt.Errorf("selector: missing date parameters %v", u.parkeys)
	}
	obs, err := timestamp.ParseAny(strings.Join(parts, " "))
	if err != nil {
		return time.Time{}, fmt.Errorf("selector: bad observation date: %w", err)
	}
	return obs, nil
}

// ReferenceNames returns the sorted unique terminals.
func (u *UseAfter) ReferenceNames() []string {
	seen := map[string]bool{}
	for _, entry := range u.entries {
		collectTerminals(entry.Value, seen)
	}
	return sortedKeys(seen)
}

// ParkeyMap is empty for date stages: activation dates are rule structure,
// not matchable parameter literals.
func (u *UseAfter) ParkeyMap() map[string][]string {
	return map[string][]string{}
}

// Validate re-parses every activation date and recurses into nested stages.
func (u *UseAfter) Validate(valid map[string][]string) error {
	for _, entry := range u.entries {
		if _, err := timestamp.ParseAny(entry.Raw); err != nil {
			return fmt.Errorf("selector: invalid use-after date %q: %w", entry.Raw, err)
		}
		if nested, ok := entry.Value.(Selector); ok {
			if err := nested.Validate(valid); err != nil {
				return err
			}
		}
	}
	return nil
}

// Insert files terminal under the activation date assembled from header,
// replacing an entry with the identical date.
func (u *UseAfter) Insert(header map[string]string, terminal string) (Selector, error) {
	obs, err := u.observationTime(header)
	if err != nil {
		return nil, err
	}
	raw := timestamp.Reformat(obs)
	entries := append([]DateEntry(nil), u.entries...)
	for i, entry := range entries {
		if entry.When.Equal(obs) {
			entries[i] = DateEntry{Raw: raw, When: obs, Value: terminal}
			return NewUseAfter(u.parkeys, entries), nil
		}
	}
	entries = append(entries, DateEntry{Raw: raw, When: obs, Value: terminal})
	return NewUseAfter(u.parkeys, entries), nil
}

// Delete removes every entry resolving to terminal.
func (u *UseAfter) Delete(terminal string) (Selector, int) {
	var kept []DateEntry
	deleted := 0
	for _, entry := range u.entries {
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
			kept = append(kept, DateEntry{Raw: entry.Raw, When: entry.When, Value: updated})
		}
	}
	return NewUseAfter(u.parkeys, kept), deleted
}

// Format renders the selector as canonical mapping source text.
func (u *UseAfter) Format(indent int) string {
	prefix := strings.Repeat(" ", 4*indent)
	inner := strings.Repeat(" ", 4*(indent+1))
	var b strings.Builder
	b.WriteString("UseAfter({\n")
	for _, entry := range u.entries {
		b.WriteString(inner)
		b.WriteString("'" + entry.Raw + "'")
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
