package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rule is one named rewrite over the token stream.
type Rule struct {
	Name  string
	Apply func([]token) ([]token, error)
}

// maxNesting bounds how deep byte-string payloads are re-tokenized.
const maxNesting = 4

// Rules are applied in order by Normalize.
var Rules = []Rule{
	{Name: "strip-byte-markers", Apply: stripByteMarkers},
	{Name: "inflate-nested", Apply: func(toks []token) ([]token, error) { return inflateNested(toks, 0) }},
	{Name: "quote-bare-values", Apply: quoteBareValues},
	{Name: "repair-braces", Apply: repairBraces},
	{Name: "coerce-eui64", Apply: coerceEUI64},
}

// Normalize rewrites one frame dump into strict JSON.
func Normalize(line string) (string, error) {
	toks, err := tokenize(line)
	if err != nil {
		return "", fmt.Errorf("tokenize: %w", err)
	}
	if len(toks) == 0 {
		return "", errors.New("empty frame")
	}
	for _, r := range Rules {
		toks, err = r.Apply(toks)
		if err != nil {
			return "", fmt.Errorf("%s: %w", r.Name, err)
		}
	}
	return emit(toks)
}

// stripByteMarkers turns b'\x00\x13A' into the string "0013A": the prefix and
// every \x marker are dropped, the hex digits kept.
func stripByteMarkers(toks []token) ([]token, error) {
	out := make([]token, len(toks))
	for i, t := range toks {
		if t.kind == tokBytes {
			t = token{kind: tokString, text: unescape(strings.ReplaceAll(t.text, `\x`, "")), pos: t.pos}
		}
		out[i] = t
	}
	return out, nil
}

// inflateNested replaces a string value holding an object with that object's tokens.
// Text that does not tokenize is left as a plain string.
func inflateNested(toks []token, depth int) ([]token, error) {
	out := make([]token, 0, len(toks))
	for i, t := range toks {
		if t.kind != tokString || isKey(toks, i) || !looksLikeObject(t.text) {
			out = append(out, t)
			continue
		}
		if depth >= maxNesting {
			return nil, fmt.Errorf("payload nested deeper than %d levels", maxNesting)
		}
		inner, err := tokenize(t.text)
		if err != nil {
			out = append(out, t)
			continue
		}
		inner, err = stripByteMarkers(inner)
		if err != nil {
			return nil, err
		}
		inner, err = inflateNested(inner, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, inner...)
	}
	return out, nil
}

func looksLikeObject(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "{")
}

// isKey reports whether toks[i] is immediately followed by a colon.
func isKey(toks []token, i int) bool {
	return i+1 < len(toks) && toks[i+1].kind == tokColon
}

// quoteBareValues turns bare words into strings. Numbers stay numeric unless
// they are used as keys.
func quoteBareValues(toks []token) ([]token, error) {
	out := make([]token, len(toks))
	for i, t := range toks {
		switch {
		case t.kind == tokBare:
			t.kind = tokString
		case t.kind == tokNumber && isKey(toks, i):
			t.kind = tokString
		}
		out[i] = t
	}
	return out, nil
}

// repairBraces drops surplus trailing closers and removes commas that precede
// a closer. An object or list still open at the end means the frame was cut
// off, and the last value cannot be trusted.
func repairBraces(toks []token) ([]token, error) {
	out := make([]token, 0, len(toks))
	var stack []tokenKind
	for _, t := range toks {
		switch t.kind {
		case tokLBrace, tokLBracket:
			stack = append(stack, t.kind)
		case tokRBrace, tokRBracket:
			if len(stack) == 0 {
				// surplus closer, nothing left to close
				continue
			}
			want := tokRBrace
			if stack[len(stack)-1] == tokLBracket {
				want = tokRBracket
			}
			if t.kind != want {
				return nil, fmt.Errorf("unexpected %s at offset %d", t.kind, t.pos)
			}
			stack = stack[:len(stack)-1]
			out = trimTrailingComma(out)
		case tokComma:
			if len(out) > 0 && out[len(out)-1].kind == tokComma {
				continue
			}
		}
		out = append(out, t)
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("truncated frame: %d unclosed", len(stack))
	}
	return out, nil
}

func trimTrailingComma(toks []token) []token {
	for len(toks) > 0 && toks[len(toks)-1].kind == tokComma {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// coerceEUI64 forces the value of any *eui64 key to a string so that
// all-digit identifiers keep their leading zeros.
func coerceEUI64(toks []token) ([]token, error) {
	out := make([]token, len(toks))
	copy(out, toks)
	for i := 0; i+2 < len(out); i++ {
		if out[i].kind != tokString || out[i+1].kind != tokColon {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(out[i].text), "eui64") {
			continue
		}
		if v := &out[i+2]; v.kind == tokNumber {
			v.kind = tokString
		}
	}
	return out, nil
}

// emit writes the token stream as JSON using double quotes throughout.
func emit(toks []token) (string, error) {
	var b strings.Builder
	for _, t := range toks {
		switch t.kind {
		case tokString:
			q, err := json.Marshal(t.text)
			if err != nil {
				return "", fmt.Errorf("quote %q: %w", t.text, err)
			}
			b.Write(q)
		case tokNumber:
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return "", fmt.Errorf("number %q: %w", t.text, err)
			}
			b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		case tokBytes, tokBare:
			return "", fmt.Errorf("unnormalized %s %q at offset %d", t.kind, t.text, t.pos)
		default:
			b.WriteString(t.text)
		}
	}
	return b.String(), nil
}
