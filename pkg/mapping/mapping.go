package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-refmap/pkg/selector"
)

// Sentinel errors for the special selection outcomes. N/A and OMIT are rule
// results, not failures, so callers branch on them.
var (
	ErrIrrelevant = errors.New("mapping: reference type is not applicable")
	ErrOmitted    = errors.New("mapping: reference type is omitted")
)

// Mapping is the common surface of pipeline contexts, instrument contexts,
// reference mappings, and header-only spec records.
type Mapping interface {
	Basename() string
	Kind() Kind
	Header() Header
	RawHeader() map[string]any
	Comment() string

	// MappingNames lists this mapping and every nested mapping name in its
	// resolved closure.
	MappingNames() []string

	// ReferenceNames lists the sorted reference file basenames selected by
	// the resolved closure.
	ReferenceNames() []string

	// RequiredParkeys lists the parameter names needed to select through
	// this mapping and everything below it.
	RequiredParkeys() []string

	// Format renders the mapping as canonical source text without a
	// trustworthy sha1sum; FormatWithChecksum refreshes the digest.
	Format() string
}

// Selection is one entry of a context body: a nested file basename or a
// special value, plus the loaded mapping once a catalog resolves it.
type Selection struct {
	Value    string
	Resolved Mapping
}

// IsSpecial reports whether the selection is N/A or OMIT rather than a file.
func (s *Selection) IsSpecial() bool {
	return IsSpecialValue(s.Value)
}

// base carries the fields every concrete mapping shares.
type base struct {
	basename string
	header   Header
	raw      map[string]any
	comment  string
}

func (b *base) Basename() string          { return b.basename }
func (b *base) Header() Header            { return b.header }
func (b *base) Comment() string           { return b.comment }
func (b *base) RawHeader() map[string]any { return b.raw }

// PipelineContext maps instrument names to instrument context files.
type PipelineContext struct {
	base
	selections map[string]*Selection
}

// NewPipelineContext validates the header and wraps the selection body.
func NewPipelineContext(basename string, header Header, raw map[string]any, comment string, body map[string]string) (*PipelineContext, error) {
	if err := header.Validate(KindPipeline); err != nil {
		return nil, fmt.Errorf("%w in %q", err, basename)
	}
	selections := make(map[string]*Selection, len(body))
	for instrument, value := range body {
		selections[strings.ToLower(instrument)] = &Selection{Value: value}
	}
	return &PipelineContext{
		base:       base{basename: basename, header: header, raw: raw, comment: comment},
		selections: selections,
	}, nil
}

func (p *PipelineContext) Kind() Kind { return KindPipeline }

// InstrumentKey returns the header parameter naming the instrument,
// typically INSTRUME.
func (p *PipelineContext) InstrumentKey() string {
	if len(p.header.Parkey) == 0 || len(p.header.Parkey[0]) == 0 {
		return "INSTRUME"
	}
	return strings.ToUpper(p.header.Parkey[0][0])
}

// Selections returns the instrument selection table.
func (p *PipelineContext) Selections() map[string]*Selection {
	return p.selections
}

// Resolve attaches a loaded instrument context, checking that its header is
// consistent with this context's expectations.
func (p *PipelineContext) Resolve(instrument string, nested Mapping) error {
	instrument = strings.ToLower(instrument)
	sel, ok := p.selections[instrument]
	if !ok {
		return fmt.Errorf("mapping: unknown instrument %q for context %q", instrument, p.basename)
	}
	if nested.Header().Observatory != p.header.Observatory {
		return fmt.Errorf("mapping: observatory %q in nested %q does not match %q in %q",
			nested.Header().Observatory, nested.Basename(), p.header.Observatory, p.basename)
	}
	if nested.Header().Instrument != instrument {
		return fmt.Errorf("mapping: instrument %q in nested %q does not match selection %q in %q",
			nested.Header().Instrument, nested.Basename(), instrument, p.basename)
	}
	sel.Resolved = nested
	return nil
}

// Imap returns the resolved instrument context for instrument, or the
// special outcome errors.
func (p *PipelineContext) Imap(instrument string) (*InstrumentContext, error) {
	sel, ok := p.selections[strings.ToLower(instrument)]
	if !ok {
		return nil, fmt.Errorf("mapping: unknown instrument %q for context %q", instrument, p.basename)
	}
	if IsNAValue(sel.Value) {
		return nil, fmt.Errorf("%w: instrument %q", ErrIrrelevant, instrument)
	}
	if IsOmitValue(sel.Value) {
		return nil, fmt.Errorf("%w: instrument %q", ErrOmitted, instrument)
	}
	imap, ok := sel.Resolved.(*InstrumentContext)
	if !ok {
		return nil, fmt.Errorf("mapping: instrument %q is not resolved in %q", instrument, p.basename)
	}
	return imap, nil
}

// Instrument extracts the instrument name from a dataset header using the
// pipeline instrument key.
func (p *PipelineContext) Instrument(header map[string]string) (string, error) {
	key := p.InstrumentKey()
	for _, candidate := range []string{key, strings.ToLower(key), "INSTRUME"} {
		if value, ok := header[candidate]; ok {
			return strings.ToUpper(value), nil
		}
	}
	return "", fmt.Errorf("mapping: missing %q keyword in dataset header", key)
}

func (p *PipelineContext) MappingNames() []string {
	names := []string{p.basename}
	for _, key := range sortedSelectionKeys(p.selections) {
		if nested := p.selections[key].Resolved; nested != nil {
			names = append(names, nested.MappingNames()...)
		}
	}
	return names
}

func (p *PipelineContext) ReferenceNames() []string {
	return gatherReferenceNames(p.selections)
}

// ReferenceNameMap breaks references down by instrument; special selections
// surface their special value.
func (p *PipelineContext) ReferenceNameMap() map[string][]string {
	return gatherReferenceNameMap(p.selections)
}

func (p *PipelineContext) RequiredParkeys() []string {
	return gatherRequiredParkeys(p.header.Parkey, p.selections)
}

// Copy returns an unresolved duplicate. Nested mappings must be resolved
// again through a catalog.
func (p *PipelineContext) Copy() *PipelineContext {
	clone := *p
	clone.raw = copyRaw(p.raw)
	clone.selections = copySelections(p.selections)
	return &clone
}

// SetItem returns a copy with the selection for instrument replaced or
// added. The changed entry starts unresolved.
func (p *PipelineContext) SetItem(instrument, basename string) *PipelineContext {
	clone := p.Copy()
	clone.selections[strings.ToLower(instrument)] = &Selection{Value: basename}
	return clone
}

func (p *PipelineContext) Format() string {
	return formatContext(p.header, p.raw, p.comment, p.selections)
}

// InstrumentContext maps reference file kinds to reference mapping files.
type InstrumentContext struct {
	base
	selections map[string]*Selection
}

// NewInstrumentContext validates the header and wraps the selection body.
func NewInstrumentContext(basename string, header Header, raw map[string]any, comment string, body map[string]string) (*InstrumentContext, error) {
	if err := header.Validate(KindInstrument); err != nil {
		return nil, fmt.Errorf("%w in %q", err, basename)
	}
	selections := make(map[string]*Selection, len(body))
	for filekind, value := range body {
		selections[strings.ToLower(filekind)] = &Selection{Value: value}
	}
	return &InstrumentContext{
		base:       base{basename: basename, header: header, raw: raw, comment: comment},
		selections: selections,
	}, nil
}

func (i *InstrumentContext) Kind() Kind { return KindInstrument }

// Selections returns the filekind selection table.
func (i *InstrumentContext) Selections() map[string]*Selection {
	return i.selections
}

// Filekinds lists the upper case reference types this instrument carries.
func (i *InstrumentContext) Filekinds() []string {
	kinds := make([]string, 0, len(i.selections))
	for filekind := range i.selections {
		kinds = append(kinds, strings.ToUpper(filekind))
	}
	sort.Strings(kinds)
	return kinds
}

// Resolve attaches a loaded reference mapping, checking header consistency.
func (i *InstrumentContext) Resolve(filekind string, nested Mapping) error {
	filekind = strings.ToLower(filekind)
	sel, ok := i.selections[filekind]
	if !ok {
		return fmt.Errorf("mapping: unknown reference type %q for context %q", filekind, i.basename)
	}
	header := nested.Header()
	if header.Observatory != i.header.Observatory || header.Instrument != i.header.Instrument {
		return fmt.Errorf("mapping: nested %q does not belong to %s/%s context %q",
			nested.Basename(), i.header.Observatory, i.header.Instrument, i.basename)
	}
	if header.Filekind != filekind {
		return fmt.Errorf("mapping: filekind %q in nested %q does not match selection %q in %q",
			header.Filekind, nested.Basename(), filekind, i.basename)
	}
	sel.Resolved = nested
	return nil
}

// Rmap returns the resolved reference mapping for filekind, or the special
// outcome errors.
func (i *InstrumentContext) Rmap(filekind string) (*ReferenceMapping, error) {
	sel, ok := i.selections[strings.ToLower(filekind)]
	if !ok {
		return nil, fmt.Errorf("mapping: unknown reference type %q for %q", filekind, i.basename)
	}
	if IsNAValue(sel.Value) {
		return nil, fmt.Errorf("%w: type %q for instrument %q", ErrIrrelevant, filekind, i.header.Instrument)
	}
	if IsOmitValue(sel.Value) {
		return nil, fmt.Errorf("%w: type %q for instrument %q", ErrOmitted, filekind, i.header.Instrument)
	}
	rmap, ok := sel.Resolved.(*ReferenceMapping)
	if !ok {
		return nil, fmt.Errorf("mapping: reference type %q is not resolved in %q", filekind, i.basename)
	}
	return rmap, nil
}

func (i *InstrumentContext) MappingNames() []string {
	names := []string{i.basename}
	for _, key := range sortedSelectionKeys(i.selections) {
		if nested := i.selections[key].Resolved; nested != nil {
			names = append(names, nested.MappingNames()...)
		}
	}
	return names
}

func (i *InstrumentContext) ReferenceNames() []string {
	return gatherReferenceNames(i.selections)
}

// ReferenceNameMap breaks references down by filekind.
func (i *InstrumentContext) ReferenceNameMap() map[string][]string {
	return gatherReferenceNameMap(i.selections)
}

func (i *InstrumentContext) RequiredParkeys() []string {
	return gatherRequiredParkeys(i.header.Parkey, i.selections)
}

// Copy returns an unresolved duplicate of the context.
func (i *InstrumentContext) Copy() *InstrumentContext {
	clone := *i
	clone.raw = copyRaw(i.raw)
	clone.selections = copySelections(i.selections)
	return &clone
}

// SetItem returns a copy with the selection for filekind replaced or added.
func (i *InstrumentContext) SetItem(filekind, basename string) *InstrumentContext {
	clone := i.Copy()
	clone.selections[strings.ToLower(filekind)] = &Selection{Value: basename}
	return clone
}

func (i *InstrumentContext) Format() string {
	return formatContext(i.header, i.raw, i.comment, i.selections)
}

// ReferenceMapping pairs an rmap header with its selector tree and performs
// single-type best reference lookup.
type ReferenceMapping struct {
	base
	sel selector.Selector
}

// NewReferenceMapping validates the header, including the consistency of
// parkey with reference_to_dataset when the translation table is present.
func NewReferenceMapping(basename string, header Header, raw map[string]any, comment string, sel selector.Selector) (*ReferenceMapping, error) {
	if err := header.Validate(KindReference); err != nil {
		return nil, fmt.Errorf("%w in %q", err, basename)
	}
	if sel == nil {
		return nil, fmt.Errorf("mapping: reference mapping %q has no selector", basename)
	}
	if len(header.ReferenceToDataset) > 0 {
		parkeys := map[string]bool{}
		for _, group := range header.Parkey {
			for _, parkey := range group {
				parkeys[strings.ToUpper(parkey)] = true
			}
		}
		// The translation table may cover only some parkeys, but every
		// target it names must be one.
		for refKey, datasetKey := range header.ReferenceToDataset {
			if !parkeys[strings.ToUpper(datasetKey)] {
				return nil, fmt.Errorf(
					"mapping: reference_to_dataset %s=%s of %q does not name a parkey",
					refKey, datasetKey, basename)
			}
		}
	}
	return &ReferenceMapping{
		base: base{basename: basename, header: header, raw: raw, comment: comment},
		sel:  sel,
	}, nil
}

func (r *ReferenceMapping) Kind() Kind { return KindReference }

// Selector exposes the rule tree.
func (r *ReferenceMapping) Selector() selector.Selector {
	return r.sel
}

// BestRef returns the single reference basename for a dataset header. The
// header is conditioned here, so raw values are acceptable.
func (r *ReferenceMapping) BestRef(header map[string]string) (string, error) {
	conditioned := selector.ConditionHeader(header)
	bestref, err := r.sel.Choose(conditioned)
	if err != nil {
		return "", fmt.Errorf("mapping: %s %s: %w", r.header.Instrument, r.header.Filekind, err)
	}
	if IsNAValue(bestref) {
		return "", fmt.Errorf("%w: rules map these parameters to N/A", ErrIrrelevant)
	}
	if IsOmitValue(bestref) {
		return "", fmt.Errorf("%w: rules map these parameters to OMIT", ErrOmitted)
	}
	return bestref, nil
}

func (r *ReferenceMapping) MappingNames() []string {
	return []string{r.basename}
}

func (r *ReferenceMapping) ReferenceNames() []string {
	return r.sel.ReferenceNames()
}

// ParkeyMap reports the literal values this rmap matches per parameter.
func (r *ReferenceMapping) ParkeyMap() map[string][]string {
	return r.sel.ParkeyMap()
}

func (r *ReferenceMapping) RequiredParkeys() []string {
	parkeys := append([]string(nil), r.header.Parkey.Flatten()...)
	if r.header.ReffileSwitch != "" && !strings.EqualFold(r.header.ReffileSwitch, "none") {
		parkeys = append(parkeys, strings.ToUpper(r.header.ReffileSwitch))
	}
	parkeys = append(parkeys, r.header.ExtraKeys...)
	return parkeys
}

// ValidateSelector checks the rule tree against definitive valid values.
func (r *ReferenceMapping) ValidateSelector(valid map[string][]string) error {
	return r.sel.Validate(valid)
}

// Insert returns a new rmap with refname filed under the match parameters of
// refHeader, translated through reference_to_dataset when present.
func (r *ReferenceMapping) Insert(refHeader map[string]string, refname string) (*ReferenceMapping, error) {
	conditioned := selector.ConditionHeader(r.translateReferenceKeys(refHeader))
	updated, err := r.sel.Insert(conditioned, refname)
	if err != nil {
		return nil, fmt.Errorf("mapping: insert %q into %q: %w", refname, r.basename, err)
	}
	clone := *r
	clone.sel = updated
	return &clone, nil
}

// DeleteReference returns a new rmap with every rule selecting refname
// removed. It is an error if nothing referenced it.
func (r *ReferenceMapping) DeleteReference(refname string) (*ReferenceMapping, error) {
	updated, count := r.sel.Delete(refname)
	if count == 0 {
		return nil, fmt.Errorf("mapping: terminal %q not found in %q", refname, r.basename)
	}
	clone := *r
	clone.sel = updated
	return &clone, nil
}

// translateReferenceKeys renames reference file keywords to their dataset
// counterparts using the reference_to_dataset table.
func (r *ReferenceMapping) translateReferenceKeys(header map[string]string) map[string]string {
	if len(r.header.ReferenceToDataset) == 0 {
		return header
	}
	translated := make(map[string]string, len(header))
	rename := make(map[string]string, len(r.header.ReferenceToDataset))
	for refKey, datasetKey := range r.header.ReferenceToDataset {
		rename[strings.ToUpper(refKey)] = strings.ToUpper(datasetKey)
	}
	for key, value := range header {
		upper := strings.ToUpper(key)
		if datasetKey, ok := rename[upper]; ok {
			translated[datasetKey] = value
			continue
		}
		translated[upper] = value
	}
	return translated
}

// Copy returns a duplicate sharing the rule tree, which Insert and Delete
// never mutate in place.
func (r *ReferenceMapping) Copy() *ReferenceMapping {
	clone := *r
	clone.raw = copyRaw(r.raw)
	return &clone
}

func (r *ReferenceMapping) Format() string {
	return formatMapping(r.header, r.raw, r.comment, r.sel.Format(0))
}

// SpecRecord is a header-only mapping specification, the .spec shape:
// category metadata with no selection body.
type SpecRecord struct {
	base
}

// NewSpecRecord validates the record and wraps it.
func NewSpecRecord(basename string, header Header, raw map[string]any, comment string) (*SpecRecord, error) {
	if err := header.Validate(KindSpec); err != nil {
		return nil, fmt.Errorf("%w in %q", err, basename)
	}
	return &SpecRecord{base: base{basename: basename, header: header, raw: raw, comment: comment}}, nil
}

func (s *SpecRecord) Kind() Kind                 { return KindSpec }
func (s *SpecRecord) MappingNames() []string     { return []string{s.basename} }
func (s *SpecRecord) ReferenceNames() []string   { return nil }
func (s *SpecRecord) RequiredParkeys() []string  { return s.header.Parkey.Flatten() }
func (s *SpecRecord) Format() string             { return formatRecord(s.raw) }

// MinimizeHeader reduces a dataset header to the parameters required to
// select through m, filling absences with UNDEFINED.
func MinimizeHeader(m Mapping, header map[string]string) map[string]string {
	minimized := map[string]string{}
	for _, key := range m.RequiredParkeys() {
		value, ok := header[key]
		if !ok {
			value, ok = header[strings.ToUpper(key)]
		}
		if !ok {
			value, ok = header[strings.ToLower(key)]
		}
		if !ok {
			value = "UNDEFINED"
		}
		minimized[strings.ToUpper(key)] = value
	}
	return minimized
}

// ToDict returns a pure-data representation of the mapping closure suitable
// for JSON encoding.
func ToDict(m Mapping) map[string]any {
	dict := map[string]any{
		"header":     m.RawHeader(),
		"parameters": m.Header().Parkey,
	}
	switch concrete := m.(type) {
	case *PipelineContext:
		dict["selections"] = selectionsToDict(concrete.selections)
	case *InstrumentContext:
		dict["selections"] = selectionsToDict(concrete.selections)
	case *ReferenceMapping:
		dict["selections"] = concrete.ReferenceNames()
	}
	return dict
}

// ToJSON renders ToDict as JSON.
func ToJSON(m Mapping) ([]byte, error) {
	data, err := json.Marshal(ToDict(m))
	if err != nil {
		return nil, fmt.Errorf("mapping: encode %q: %w", m.Basename(), err)
	}
	return data, nil
}

func selectionsToDict(selections map[string]*Selection) map[string]any {
	dict := make(map[string]any, len(selections))
	for key, sel := range selections {
		if sel.Resolved != nil {
			dict[key] = ToDict(sel.Resolved)
			continue
		}
		dict[key] = sel.Value
	}
	return dict
}

// copyRaw duplicates the raw header record so edits on a copy, version bumps
// in particular, do not leak into the original.
func copyRaw(raw map[string]any) map[string]any {
	clone := make(map[string]any, len(raw))
	for key, value := range raw {
		clone[key] = value
	}
	return clone
}

// copySelections duplicates a selection table, dropping resolved mappings.
func copySelections(selections map[string]*Selection) map[string]*Selection {
	clone := make(map[string]*Selection, len(selections))
	for key, sel := range selections {
		clone[key] = &Selection{Value: sel.Value}
	}
	return clone
}

func sortedSelectionKeys(selections map[string]*Selection) []string {
	keys := make([]string, 0, len(selections))
	for key := range selections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func gatherReferenceNames(selections map[string]*Selection) []string {
	seen := map[string]bool{}
	for _, sel := range selections {
		if sel.Resolved == nil {
			continue
		}
		for _, name := range sel.Resolved.ReferenceNames() {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func gatherReferenceNameMap(selections map[string]*Selection) map[string][]string {
	nameMap := make(map[string][]string, len(selections))
	for key, sel := range selections {
		if sel.IsSpecial() || sel.Resolved == nil {
			nameMap[key] = []string{sel.Value}
			continue
		}
		nameMap[key] = sel.Resolved.ReferenceNames()
	}
	return nameMap
}

func gatherRequiredParkeys(parkey Parkey, selections map[string]*Selection) []string {
	seen := map[string]bool{}
	for _, key := range parkey.Flatten() {
		seen[key] = true
	}
	for _, sel := range selections {
		if sel.Resolved == nil {
			continue
		}
		for _, key := range sel.Resolved.RequiredParkeys() {
			seen[key] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
