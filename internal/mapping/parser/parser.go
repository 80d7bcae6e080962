// Package parser converts mapping documents into their typed form: the
// header record, optional comment, and an instantiated selector body.
package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	pkgmapping "github.com/goliatone/go-refmap/pkg/mapping"
	"github.com/goliatone/go-refmap/pkg/selector"
)

// Parser implements pkgmapping.Parser over the restricted literal grammar.
type Parser struct {
	options pkgmapping.ParserOptions
	log     hclog.Logger
}

// Ensure the implementation satisfies the public interface.
var _ pkgmapping.Parser = (*Parser)(nil)

// New constructs a Parser with the given options and a null logger.
func New(options pkgmapping.ParserOptions) pkgmapping.Parser {
	return NewWithLogger(options, hclog.NewNullLogger())
}

// NewWithLogger constructs a Parser that reports checksum warnings and parse
// diagnostics through logger.
func NewWithLogger(options pkgmapping.ParserOptions, logger hclog.Logger) pkgmapping.Parser {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Parser{options: options, log: logger}
}

// Parse converts a Document into the Mapping matching its extension.
func (p *Parser) Parse(ctx context.Context, doc pkgmapping.Document) (pkgmapping.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return nil, fmt.Errorf("mapping parser: document %q is empty", doc.Basename())
	}
	basename := doc.Basename()
	kind, err := pkgmapping.KindForName(basename)
	if err != nil {
		return nil, err
	}

	g, err := newGrammar(string(raw))
	if err != nil {
		return nil, fmt.Errorf("mapping parser: %q: %w", basename, err)
	}
	file, err := g.parseFile()
	if err != nil {
		return nil, fmt.Errorf("mapping parser: %q: %w", basename, err)
	}

	headerDict, comment, body, err := splitSections(file, kind)
	if err != nil {
		return nil, fmt.Errorf("mapping parser: %q: %w", basename, err)
	}

	headerMap, err := dictToMap(headerDict)
	if err != nil {
		return nil, fmt.Errorf("mapping parser: %q: %w", basename, err)
	}
	header, err := pkgmapping.DecodeHeader(headerMap)
	if err != nil {
		return nil, fmt.Errorf("mapping parser: %q: %w", basename, err)
	}

	if err := p.checkChecksum(string(raw), basename, header); err != nil {
		return nil, err
	}

	return p.build(kind, basename, header, headerMap, comment, body)
}

func (p *Parser) checkChecksum(text, basename string, header pkgmapping.Header) error {
	err := pkgmapping.VerifyChecksum(text, basename, header)
	if err == nil {
		return nil
	}
	switch p.options.ChecksumMode {
	case pkgmapping.ChecksumIgnore:
		return nil
	case pkgmapping.ChecksumWarn:
		p.log.Warn("checksum problem", "mapping", basename, "error", err)
		return nil
	default:
		return err
	}
}

func (p *Parser) build(kind pkgmapping.Kind, basename string, header pkgmapping.Header,
	headerMap map[string]any, comment string, body any) (pkgmapping.Mapping, error) {

	switch kind {
	case pkgmapping.KindSpec:
		return pkgmapping.NewSpecRecord(basename, header, headerMap, comment)

	case pkgmapping.KindPipeline, pkgmapping.KindInstrument:
		dict, ok := body.(*dictNode)
		if !ok {
			return nil, fmt.Errorf("mapping parser: %q: context selector must be a plain dict", basename)
		}
		selections, err := dictToSelections(dict)
		if err != nil {
			return nil, fmt.Errorf("mapping parser: %q: %w", basename, err)
		}
		if kind == pkgmapping.KindPipeline {
			return pkgmapping.NewPipelineContext(basename, header, headerMap, comment, selections)
		}
		return pkgmapping.NewInstrumentContext(basename, header, headerMap, comment, selections)

	case pkgmapping.KindReference:
		call, ok := body.(*callNode)
		if !ok {
			return nil, fmt.Errorf("mapping parser: %q: reference selector must be a selector call", basename)
		}
		sel, err := buildSelector(call, header.Parkey, 0)
		if err != nil {
			return nil, fmt.Errorf("mapping parser: %q: %w", basename, err)
		}
		return pkgmapping.NewReferenceMapping(basename, header, headerMap, comment, sel)
	}
	return nil, fmt.Errorf("mapping parser: %q: unsupported kind %q", basename, kind)
}

// splitSections pulls the header, comment, and selector body out of the
// parsed file, tolerating bare records for .spec files.
func splitSections(file *fileNode, kind pkgmapping.Kind) (*dictNode, string, any, error) {
	if file.bare != nil {
		if kind != pkgmapping.KindSpec {
			return nil, "", nil, fmt.Errorf("bare records are only legal for %s files", pkgmapping.ExtSpec)
		}
		return file.bare, "", nil, nil
	}

	headerValue, ok := file.sections["header"]
	if !ok {
		return nil, "", nil, fmt.Errorf("missing header section")
	}
	headerDict, ok := headerValue.(*dictNode)
	if !ok {
		return nil, "", nil, fmt.Errorf("header section must be a dict")
	}

	comment := ""
	if commentValue, ok := file.sections["comment"]; ok {
		comment, ok = commentValue.(string)
		if !ok {
			return nil, "", nil, fmt.Errorf("comment section must be a string")
		}
	}

	if kind == pkgmapping.KindSpec {
		return headerDict, comment, nil, nil
	}
	body, ok := file.sections["selector"]
	if !ok {
		return nil, "", nil, fmt.Errorf("missing selector section")
	}
	return headerDict, comment, body, nil
}

// dictToMap converts a string keyed dict node into plain Go data.
func dictToMap(dict *dictNode) (map[string]any, error) {
	result := make(map[string]any, len(dict.entries))
	for _, entry := range dict.entries {
		key, ok := entry.key.(string)
		if !ok {
			return nil, fmt.Errorf("record keys must be strings, got %v at line %d", entry.key, dict.line)
		}
		value, err := nodeToValue(entry.value)
		if err != nil {
			return nil, err
		}
		if _, dup := result[key]; dup {
			return nil, fmt.Errorf("duplicate record key %q at line %d", key, dict.line)
		}
		result[key] = value
	}
	return result, nil
}

func nodeToValue(node any) (any, error) {
	switch v := node.(type) {
	case string, int64, float64:
		return v, nil
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			converted, err := nodeToValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = converted
		}
		return items, nil
	case *dictNode:
		return dictToMap(v)
	case *callNode:
		return nil, fmt.Errorf("selector calls are not legal inside records, found %q at line %d", v.name, v.line)
	}
	return nil, fmt.Errorf("unsupported value %T", node)
}

// dictToSelections converts a context body into name -> value selections.
func dictToSelections(dict *dictNode) (map[string]string, error) {
	selections := make(map[string]string, len(dict.entries))
	for _, entry := range dict.entries {
		key, ok := entry.key.(string)
		if !ok {
			return nil, fmt.Errorf("selection keys must be strings at line %d", dict.line)
		}
		value, ok := entry.value.(string)
		if !ok {
			return nil, fmt.Errorf("selection for %q must be a file name or special value at line %d",
				key, dict.line)
		}
		selections[key] = value
	}
	return selections, nil
}

// buildSelector instantiates the selector stage at depth, consuming one
// parkey group per nesting level.
func buildSelector(call *callNode, parkey pkgmapping.Parkey, depth int) (selector.Selector, error) {
	group := parkeyGroup(parkey, depth)
	if len(group) == 0 {
		return nil, fmt.Errorf("selector %q at line %d has no parkey group for nesting depth %d",
			call.name, call.line, depth)
	}

	entries, err := callEntries(call, parkey, depth)
	if err != nil {
		return nil, err
	}

	switch call.name {
	case "Match":
		return selector.NewMatch(group, parkeyGroup(parkey, depth+1), entries)
	case "UseAfter":
		dated, err := selector.ParseDateEntries(entries)
		if err != nil {
			return nil, err
		}
		return selector.NewUseAfter(group, dated), nil
	}
	return nil, fmt.Errorf("selector %q is not supported at line %d", call.name, call.line)
}

func callEntries(call *callNode, parkey pkgmapping.Parkey, depth int) ([]selector.MatchEntry, error) {
	entries := make([]selector.MatchEntry, 0, len(call.arg.entries))
	for _, entry := range call.arg.entries {
		key, err := selectorKey(entry.key)
		if err != nil {
			return nil, fmt.Errorf("in selector %q at line %d: %w", call.name, call.line, err)
		}
		var value any
		switch v := entry.value.(type) {
		case string:
			value = v
		case *callNode:
			nested, err := buildSelector(v, parkey, depth+1)
			if err != nil {
				return nil, err
			}
			value = nested
		default:
			return nil, fmt.Errorf("selector %q values must be file names or nested selectors at line %d",
				call.name, call.line)
		}
		entries = append(entries, selector.MatchEntry{Key: key, Value: value})
	}
	return entries, nil
}

func selectorKey(key any) ([]string, error) {
	switch v := key.(type) {
	case string:
		return []string{v}, nil
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("selector key elements must be strings, got %T", item)
			}
			parts[i] = s
		}
		return parts, nil
	}
	return nil, fmt.Errorf("selector keys must be strings or tuples, got %T", key)
}

func parkeyGroup(parkey pkgmapping.Parkey, depth int) []string {
	if depth >= len(parkey) {
		return nil
	}
	group := make([]string, len(parkey[depth]))
	for i, name := range parkey[depth] {
		group[i] = strings.ToUpper(name)
	}
	return group
}
