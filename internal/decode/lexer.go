// Package decode recovers sensor readings from the radio coordinator's frame dumps.
//
// The coordinator prints each received frame as a loosely quoted key/value dump
// (single quotes, byte-string values with \x escapes, nested payload objects).
// Decoding tokenizes the line, runs an ordered list of named rewrite rules over
// the token stream, emits strict JSON and parses that.
package decode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokLBrace tokenKind = iota
	tokRBrace
	tokLBracket
	tokRBracket
	tokColon
	tokComma
	tokString // quoted text, already unescaped
	tokBytes  // b'...' literal, raw escaped content
	tokNumber // bare numeric literal
	tokBare   // any other bare word (True, None, identifiers)
)

func (k tokenKind) String() string {
	switch k {
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokColon:
		return "':'"
	case tokComma:
		return "','"
	case tokString:
		return "string"
	case tokBytes:
		return "bytes"
	case tokNumber:
		return "number"
	case tokBare:
		return "word"
	}
	return "unknown"
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

var errUnterminated = errors.New("unterminated quoted value")

// tokenize splits one frame dump into tokens.
func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '{':
			toks = append(toks, token{kind: tokLBrace, text: "{", pos: i})
			i++
		case c == '}':
			toks = append(toks, token{kind: tokRBrace, text: "}", pos: i})
			i++
		case c == '[':
			toks = append(toks, token{kind: tokLBracket, text: "[", pos: i})
			i++
		case c == ']':
			toks = append(toks, token{kind: tokRBracket, text: "]", pos: i})
			i++
		case c == ':':
			toks = append(toks, token{kind: tokColon, text: ":", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case (c == 'b' || c == 'B') && i+1 < len(s) && isQuote(s[i+1]):
			raw, next, err := scanQuoted(s, i+1)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokBytes, text: raw, pos: i})
			i = next
		case isQuote(c):
			raw, next, err := scanQuoted(s, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: unescape(raw), pos: i})
			i = next
		default:
			start := i
			for i < len(s) && !isDelimiter(s[i]) {
				i++
			}
			word := s[start:i]
			kind := tokBare
			if isNumber(word) {
				kind = tokNumber
			}
			toks = append(toks, token{kind: kind, text: word, pos: start})
		}
	}
	return toks, nil
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"'
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '{', '}', '[', ']', ':', ',', '\'', '"':
		return true
	}
	return false
}

// scanQuoted reads a quoted literal starting at the opening quote s[at].
// It returns the raw content between the quotes and the index after the closing quote.
func scanQuoted(s string, at int) (string, int, error) {
	q := s[at]
	for i := at + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case q:
			return s[at+1 : i], i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("%w at offset %d", errUnterminated, at)
}

var unescaper = strings.NewReplacer(
	`\\`, `\`,
	`\'`, `'`,
	`\"`, `"`,
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
)

func unescape(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	return unescaper.Replace(raw)
}

func isNumber(word string) bool {
	f, err := strconv.ParseFloat(word, 64)
	if err != nil {
		return false
	}
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
