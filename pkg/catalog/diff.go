package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-refmap/pkg/mapping"
)

// DiffKind classifies one difference between two mapping closures.
type DiffKind string

const (
	DiffHeader   DiffKind = "header"
	DiffAdded    DiffKind = "added"
	DiffDeleted  DiffKind = "deleted"
	DiffReplaced DiffKind = "replaced"
	DiffRules    DiffKind = "rules"
)

// Difference is one divergence between two closures, located by the chain
// of file pairs and selection keys leading to it.
type Difference struct {
	Path []string
	Kind DiffKind
	From string
	To   string
}

func (d Difference) String() string {
	site := strings.Join(d.Path, " ")
	switch d.Kind {
	case DiffAdded:
		return fmt.Sprintf("%s: added %s", site, d.To)
	case DiffDeleted:
		return fmt.Sprintf("%s: deleted %s", site, d.From)
	default:
		return fmt.Sprintf("%s: %s changed from %s to %s", site, d.Kind, d.From, d.To)
	}
}

// Diff reports the differences between two loaded closures, recursing into
// nested files whenever both sides resolve a selection.
func Diff(from, to mapping.Mapping) []Difference {
	pair := fmt.Sprintf("(%s, %s)", from.Basename(), to.Basename())
	return diffAt([]string{pair}, from, to)
}

func diffAt(path []string, from, to mapping.Mapping) []Difference {
	differences := diffHeaders(path, from.RawHeader(), to.RawHeader())

	fromSel, fromCtx := contextSelections(from)
	toSel, toCtx := contextSelections(to)
	switch {
	case fromCtx && toCtx:
		differences = append(differences, diffSelections(path, fromSel, toSel)...)
	default:
		fromRmap, fromOK := from.(*mapping.ReferenceMapping)
		toRmap, toOK := to.(*mapping.ReferenceMapping)
		if fromOK && toOK {
			differences = append(differences, diffRules(path, fromRmap, toRmap)...)
		}
	}
	return differences
}

func contextSelections(m mapping.Mapping) (map[string]*mapping.Selection, bool) {
	switch concrete := m.(type) {
	case *mapping.PipelineContext:
		return concrete.Selections(), true
	case *mapping.InstrumentContext:
		return concrete.Selections(), true
	}
	return nil, false
}

// diffHeaders compares raw header records key by key, skipping the volatile
// provenance keys that change on every derivation.
func diffHeaders(path []string, from, to map[string]any) []Difference {
	var differences []Difference
	for _, key := range sortedHeaderKeys(from, to) {
		switch key {
		case "name", "derived_from", "sha1sum":
			continue
		}
		fromValue, inFrom := from[key]
		toValue, inTo := to[key]
		site := append(append([]string(nil), path...), "header", key)
		switch {
		case !inFrom:
			differences = append(differences, Difference{Path: site, Kind: DiffAdded, To: fmt.Sprint(toValue)})
		case !inTo:
			differences = append(differences, Difference{Path: site, Kind: DiffDeleted, From: fmt.Sprint(fromValue)})
		case fmt.Sprint(fromValue) != fmt.Sprint(toValue):
			differences = append(differences, Difference{
				Path: site, Kind: DiffHeader,
				From: fmt.Sprint(fromValue), To: fmt.Sprint(toValue),
			})
		}
	}
	return differences
}

func diffSelections(path []string, from, to map[string]*mapping.Selection) []Difference {
	var differences []Difference
	for _, key := range sortedSelectionKeys(from, to) {
		fromSel, inFrom := from[key]
		toSel, inTo := to[key]
		site := append(append([]string(nil), path...), key)
		switch {
		case !inFrom:
			differences = append(differences, Difference{Path: site, Kind: DiffAdded, To: toSel.Value})
		case !inTo:
			differences = append(differences, Difference{Path: site, Kind: DiffDeleted, From: fromSel.Value})
		case fromSel.Value != toSel.Value:
			differences = append(differences, Difference{
				Path: site, Kind: DiffReplaced,
				From: fromSel.Value, To: toSel.Value,
			})
			if fromSel.Resolved != nil && toSel.Resolved != nil {
				pair := fmt.Sprintf("(%s, %s)", fromSel.Value, toSel.Value)
				differences = append(differences, diffAt(append(site, pair), fromSel.Resolved, toSel.Resolved)...)
			}
		}
	}
	return differences
}

// diffRules compares two rule trees by their selected reference sets, then
// flags rule rearrangements that leave the sets equal.
func diffRules(path []string, from, to *mapping.ReferenceMapping) []Difference {
	var differences []Difference
	fromRefs := nameSet(from.ReferenceNames())
	toRefs := nameSet(to.ReferenceNames())
	for _, name := range sortedNames(toRefs) {
		if !fromRefs[name] {
			differences = append(differences, Difference{
				Path: append(append([]string(nil), path...), "rules"),
				Kind: DiffAdded, To: name,
			})
		}
	}
	for _, name := range sortedNames(fromRefs) {
		if !toRefs[name] {
			differences = append(differences, Difference{
				Path: append(append([]string(nil), path...), "rules"),
				Kind: DiffDeleted, From: name,
			})
		}
	}
	if len(differences) == 0 && from.Selector().Format(0) != to.Selector().Format(0) {
		differences = append(differences, Difference{
			Path: append(append([]string(nil), path...), "rules"),
			Kind: DiffRules,
			From: from.Basename(), To: to.Basename(),
		})
	}
	return differences
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

func sortedHeaderKeys(from, to map[string]any) []string {
	seen := map[string]bool{}
	for key := range from {
		seen[key] = true
	}
	for key := range to {
		seen[key] = true
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedSelectionKeys(from, to map[string]*mapping.Selection) []string {
	seen := map[string]bool{}
	for key := range from {
		seen[key] = true
	}
	for key := range to {
		seen[key] = true
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
