package parser

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenString
	tokenTripleString
	tokenNumber
	tokenIdent
	tokenLBrace
	tokenRBrace
	tokenLParen
	tokenRParen
	tokenColon
	tokenComma
	tokenEquals
)

type token struct {
	kind tokenKind
	text string
	line int
}

func (t token) String() string {
	switch t.kind {
	case tokenEOF:
		return "end of input"
	case tokenString, tokenTripleString:
		return fmt.Sprintf("string %q", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// lexer tokenizes the restricted literal grammar of mapping files: quoted
// strings, numbers, identifiers, dict/tuple punctuation, and '#' comments.
type lexer struct {
	input string
	pos   int
	line  int
}

func newLexer(input string) *lexer {
	return &lexer{input: input, line: 1}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, line: l.line}, nil
	}

	start := l.line
	ch := l.input[l.pos]
	switch ch {
	case '{':
		l.pos++
		return token{kind: tokenLBrace, text: "{", line: start}, nil
	case '}':
		l.pos++
		return token{kind: tokenRBrace, text: "}", line: start}, nil
	case '(':
		l.pos++
		return token{kind: tokenLParen, text: "(", line: start}, nil
	case ')':
		l.pos++
		return token{kind: tokenRParen, text: ")", line: start}, nil
	case ':':
		l.pos++
		return token{kind: tokenColon, text: ":", line: start}, nil
	case ',':
		l.pos++
		return token{kind: tokenComma, text: ",", line: start}, nil
	case '=':
		l.pos++
		return token{kind: tokenEquals, text: "=", line: start}, nil
	case '\'', '"':
		return l.lexString(ch)
	}

	if ch == '-' || ch == '+' || unicode.IsDigit(rune(ch)) {
		return l.lexNumber()
	}
	if isIdentStart(rune(ch)) {
		return l.lexIdent()
	}
	return token{}, fmt.Errorf("mapping parser: unexpected character %q at line %d", ch, start)
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '\n':
			l.line++
			l.pos++
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.pos++
		case ch == '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.line
	triple := strings.HasPrefix(l.input[l.pos:], strings.Repeat(string(quote), 3))
	if triple {
		l.pos += 3
		end := strings.Index(l.input[l.pos:], strings.Repeat(string(quote), 3))
		if end < 0 {
			return token{}, fmt.Errorf("mapping parser: unterminated comment block at line %d", start)
		}
		text := l.input[l.pos : l.pos+end]
		l.line += strings.Count(text, "\n")
		l.pos += end + 3
		return token{kind: tokenTripleString, text: text, line: start}, nil
	}

	l.pos++
	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch ch {
		case quote:
			l.pos++
			return token{kind: tokenString, text: b.String(), line: start}, nil
		case '\\':
			if l.pos+1 < len(l.input) {
				l.pos++
				b.WriteByte(l.input[l.pos])
				l.pos++
				continue
			}
			l.pos++
		case '\n':
			return token{}, fmt.Errorf("mapping parser: unterminated string at line %d", start)
		default:
			b.WriteByte(ch)
			l.pos++
		}
	}
	return token{}, fmt.Errorf("mapping parser: unterminated string at line %d", start)
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	l.pos++
	for l.pos < len(l.input) {
		ch := rune(l.input[l.pos])
		if unicode.IsDigit(ch) || ch == '.' || ch == 'e' || ch == 'E' || ch == '-' || ch == '+' {
			l.pos++
			continue
		}
		break
	}
	return token{kind: tokenNumber, text: l.input[start:l.pos], line: l.line}, nil
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(rune(l.input[l.pos])) {
		l.pos++
	}
	return token{kind: tokenIdent, text: l.input[start:l.pos], line: l.line}, nil
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}
