package mapping

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Parkey is the ordered tuple of parameter-key groups used to select a
// mapping. Each group feeds one selector stage: the first group drives the
// match stage, a trailing date group drives use-after selection.
type Parkey [][]string

// Flatten returns every parameter name in declaration order.
func (p Parkey) Flatten() []string {
	var keys []string
	for _, group := range p {
		keys = append(keys, group...)
	}
	return keys
}

// Header is the typed view of a mapping's key-value record. Unknown keys are
// preserved in Extra so serialization round-trips hand-authored files.
type Header struct {
	Mapping            string            `mapstructure:"mapping"`
	Observatory        string            `mapstructure:"observatory"`
	Instrument         string            `mapstructure:"instrument"`
	Filekind           string            `mapstructure:"filekind"`
	Filetype           string            `mapstructure:"filetype"`
	FileExt            string            `mapstructure:"file_ext"`
	Suffix             string            `mapstructure:"suffix"`
	Name               string            `mapstructure:"name"`
	DerivedFrom        string            `mapstructure:"derived_from"`
	SHA1Sum            string            `mapstructure:"sha1sum"`
	TextDescr          string            `mapstructure:"text_descr"`
	Parkey             Parkey            `mapstructure:"parkey"`
	ReferenceToDataset map[string]string `mapstructure:"reference_to_dataset"`
	ExtraKeys          []string          `mapstructure:"extra_keys"`
	RmapRelevance      string            `mapstructure:"rmap_relevance"`
	ReffileRequired    string            `mapstructure:"reffile_required"`
	ReffileSwitch      string            `mapstructure:"reffile_switch"`
	ReffileFormat      string            `mapstructure:"reffile_format"`

	Extra map[string]any `mapstructure:",remain"`
}

// requiredKeys lists the header keys each mapping kind must define, layered
// the same way the loaders check them.
var requiredKeys = map[Kind][]string{
	KindPipeline:   {"mapping", "observatory", "name", "parkey", "derived_from"},
	KindInstrument: {"mapping", "observatory", "name", "parkey", "derived_from", "instrument"},
	KindReference:  {"mapping", "observatory", "name", "parkey", "derived_from", "instrument", "filekind"},
	KindSpec:       {"observatory", "name", "instrument"},
}

// DecodeHeader converts a parsed key-value record into a typed Header.
// Plain string values are normalized to lower case unless parenthesized,
// which marks case-sensitive expression text.
func DecodeHeader(raw map[string]any) (Header, error) {
	if len(raw) == 0 {
		return Header{}, errors.New("mapping: header record is empty")
	}

	normalized := make(map[string]any, len(raw))
	for key, value := range raw {
		if s, ok := value.(string); ok && !isEscapedExpression(s) {
			normalized[key] = strings.ToLower(s)
			continue
		}
		normalized[key] = value
	}

	var header Header
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &header,
		DecodeHook: parkeyDecodeHook,
	})
	if err != nil {
		return Header{}, fmt.Errorf("mapping: build header decoder: %w", err)
	}
	if err := decoder.Decode(normalized); err != nil {
		return Header{}, fmt.Errorf("mapping: decode header: %w", err)
	}
	return header, nil
}

// Validate checks the required keys for the given mapping kind and that the
// declared mapping type matches it.
func (h Header) Validate(kind Kind) error {
	for _, key := range requiredKeys[kind] {
		if h.lookup(key) == "" {
			return fmt.Errorf("mapping: required header key %q is missing", key)
		}
	}
	if kind != KindSpec && h.Mapping != string(kind) {
		return fmt.Errorf("mapping: expected mapping=%q but got mapping=%q in %q",
			kind, h.Mapping, h.Name)
	}
	return nil
}

// HasDerivation reports whether derived_from names an actual precursor file.
// Root mappings record how they were bootstrapped instead.
func (h Header) HasDerivation() bool {
	if h.DerivedFrom == "" {
		return false
	}
	for _, marker := range []string{"generated", "cloning", "by hand"} {
		if strings.Contains(h.DerivedFrom, marker) {
			return false
		}
	}
	return true
}

func (h Header) lookup(key string) string {
	switch key {
	case "mapping":
		return h.Mapping
	case "observatory":
		return h.Observatory
	case "instrument":
		return h.Instrument
	case "filekind":
		return h.Filekind
	case "name":
		return h.Name
	case "derived_from":
		return h.DerivedFrom
	case "parkey":
		if len(h.Parkey) == 0 {
			return ""
		}
		return "set"
	}
	return ""
}

// isEscapedExpression reports whether a header value is a parenthesized
// expression that must keep its original case.
func isEscapedExpression(s string) bool {
	return strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
}

// parkeyDecodeHook converts the parsed parkey value, a tuple whose elements
// are strings or nested tuples, into the canonical group form. A bare string
// element becomes a single-key group.
func parkeyDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(Parkey(nil)) {
		return data, nil
	}
	items, ok := data.([]any)
	if !ok {
		if s, ok := data.(string); ok {
			return Parkey{{s}}, nil
		}
		return nil, fmt.Errorf("mapping: parkey must be a tuple, got %T", data)
	}
	parkey := make(Parkey, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			parkey = append(parkey, []string{v})
		case []any:
			group := make([]string, 0, len(v))
			for _, elem := range v {
				s, ok := elem.(string)
				if !ok {
					return nil, fmt.Errorf("mapping: parkey group element must be a string, got %T", elem)
				}
				group = append(group, s)
			}
			parkey = append(parkey, group)
		default:
			return nil, fmt.Errorf("mapping: parkey element must be a string or tuple, got %T", item)
		}
	}
	return parkey, nil
}
