package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-refmap/pkg/selector"
)

// AST shapes. Values flow through as string, int64, float64, []any (tuple),
// *dictNode, or *callNode.
type dictNode struct {
	entries []entryNode
	line    int
}

type entryNode struct {
	key   any
	value any
}

type callNode struct {
	name string
	arg  *dictNode
	line int
}

// fileNode is the parsed top level: named sections for regular mappings, or
// a bare record for .spec files.
type fileNode struct {
	sections map[string]any
	bare     *dictNode
}

// grammar is a recursive descent parser over the lexer token stream.
type grammar struct {
	lex  *lexer
	tok  token
	peek *token
}

func newGrammar(input string) (*grammar, error) {
	g := &grammar{lex: newLexer(input)}
	if err := g.advance(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *grammar) advance() error {
	if g.peek != nil {
		g.tok = *g.peek
		g.peek = nil
		return nil
	}
	tok, err := g.lex.next()
	if err != nil {
		return err
	}
	g.tok = tok
	return nil
}

func (g *grammar) peekToken() (token, error) {
	if g.peek == nil {
		tok, err := g.lex.next()
		if err != nil {
			return token{}, err
		}
		g.peek = &tok
	}
	return *g.peek, nil
}

func (g *grammar) expect(kind tokenKind, what string) (token, error) {
	if g.tok.kind != kind {
		return token{}, fmt.Errorf("mapping parser: expected %s but found %s at line %d",
			what, g.tok, g.tok.line)
	}
	tok := g.tok
	if err := g.advance(); err != nil {
		return token{}, err
	}
	return tok, nil
}

// parseFile reads either `name = value` sections or a single bare dict.
func (g *grammar) parseFile() (*fileNode, error) {
	if g.tok.kind == tokenLBrace {
		dict, err := g.parseDict()
		if err != nil {
			return nil, err
		}
		if g.tok.kind != tokenEOF {
			return nil, fmt.Errorf("mapping parser: extraneous input after record at line %d", g.tok.line)
		}
		return &fileNode{bare: dict}, nil
	}

	sections := map[string]any{}
	for g.tok.kind != tokenEOF {
		name, err := g.expect(tokenIdent, "a section name")
		if err != nil {
			return nil, err
		}
		if _, dup := sections[name.text]; dup {
			return nil, fmt.Errorf("mapping parser: duplicate section %q at line %d", name.text, name.line)
		}
		if name.text != "header" && name.text != "selector" && name.text != "comment" {
			return nil, fmt.Errorf("mapping parser: only header, selector, or comment sections are legal, found %q at line %d",
				name.text, name.line)
		}
		if _, err := g.expect(tokenEquals, "'='"); err != nil {
			return nil, err
		}
		value, err := g.parseValue()
		if err != nil {
			return nil, err
		}
		sections[name.text] = value
	}
	return &fileNode{sections: sections}, nil
}

func (g *grammar) parseValue() (any, error) {
	switch g.tok.kind {
	case tokenLBrace:
		return g.parseDict()
	case tokenLParen:
		return g.parseTuple()
	case tokenString, tokenTripleString:
		text := g.tok.text
		if err := g.advance(); err != nil {
			return nil, err
		}
		return text, nil
	case tokenNumber:
		return g.parseNumber()
	case tokenIdent:
		return g.parseCall()
	}
	return nil, fmt.Errorf("mapping parser: unexpected %s at line %d", g.tok, g.tok.line)
}

func (g *grammar) parseDict() (*dictNode, error) {
	open, err := g.expect(tokenLBrace, "'{'")
	if err != nil {
		return nil, err
	}
	dict := &dictNode{line: open.line}
	for g.tok.kind != tokenRBrace {
		key, err := g.parseKey()
		if err != nil {
			return nil, err
		}
		if _, err := g.expect(tokenColon, "':'"); err != nil {
			return nil, err
		}
		value, err := g.parseValue()
		if err != nil {
			return nil, err
		}
		dict.entries = append(dict.entries, entryNode{key: key, value: value})
		if g.tok.kind == tokenComma {
			if err := g.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := g.expect(tokenRBrace, "'}'"); err != nil {
		return nil, err
	}
	return dict, nil
}

func (g *grammar) parseKey() (any, error) {
	switch g.tok.kind {
	case tokenString:
		text := g.tok.text
		if err := g.advance(); err != nil {
			return nil, err
		}
		return text, nil
	case tokenLParen:
		return g.parseTuple()
	case tokenNumber:
		return g.parseNumber()
	}
	return nil, fmt.Errorf("mapping parser: invalid dict key %s at line %d", g.tok, g.tok.line)
}

func (g *grammar) parseTuple() ([]any, error) {
	if _, err := g.expect(tokenLParen, "'('"); err != nil {
		return nil, err
	}
	var items []any
	for g.tok.kind != tokenRParen {
		value, err := g.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, value)
		if g.tok.kind == tokenComma {
			if err := g.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := g.expect(tokenRParen, "')'"); err != nil {
		return nil, err
	}
	return items, nil
}

func (g *grammar) parseNumber() (any, error) {
	text := g.tok.text
	line := g.tok.line
	if err := g.advance(); err != nil {
		return nil, err
	}
	if !strings.ContainsAny(text, ".eE") {
		n, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("mapping parser: invalid number %q at line %d", text, line)
	}
	return f, nil
}

// parseCall accepts only registered selector calls wrapping a dict argument.
func (g *grammar) parseCall() (*callNode, error) {
	name, err := g.expect(tokenIdent, "a selector name")
	if err != nil {
		return nil, err
	}
	if !selector.IsRegistered(name.text) {
		return nil, fmt.Errorf("mapping parser: %q is not a supported selector at line %d",
			name.text, name.line)
	}
	if _, err := g.expect(tokenLParen, "'('"); err != nil {
		return nil, err
	}
	arg, err := g.parseDict()
	if err != nil {
		return nil, err
	}
	if g.tok.kind == tokenComma {
		if err := g.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := g.expect(tokenRParen, "')'"); err != nil {
		return nil, err
	}
	return &callNode{name: name.text, arg: arg, line: name.line}, nil
}
