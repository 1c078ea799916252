package compiler

import (
	"fmt"
	"unicode/utf8"
)

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent         // response, predictor, group or keyword-argument name
	TokCall          // identifier immediately followed by "(": log(, C(, Gamma(
	TokNumber        // integer or decimal literal, including the 0/1 intercept literals
	TokTilde         // "~"
	TokPlus          // "+"
	TokMinus         // "-" (only valid as a sign in keyword values)
	TokColon         // ":"
	TokPow           // "**"
	TokLParen        // "("
	TokRParen        // ")"
	TokComma         // ","
	TokEquals        // "="
	TokPipe          // "|"
)

var tokenNames = map[TokenKind]string{
	TokEOF:    "end of formula",
	TokIdent:  "identifier",
	TokCall:   "call",
	TokNumber: "number",
	TokTilde:  "'~'",
	TokPlus:   "'+'",
	TokMinus:  "'-'",
	TokColon:  "':'",
	TokPow:    "'**'",
	TokLParen: "'('",
	TokRParen: "')'",
	TokComma:  "','",
	TokEquals: "'='",
	TokPipe:   "'|'",
}

func (k TokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is one lexeme of a formula.
//
// Depth is the parenthesis nesting level the token sits at; a "(" and its
// matching ")" share a depth. For parentheses, Match is the index of the
// partner token, which lets the parser recover call boundaries directly.
type Token struct {
	Kind  TokenKind
	Text  string
	Span  Span
	Depth int
	Match int
}

// Tokenize splits a formula into tokens. The returned slice always ends
// with a TokEOF token. Whitespace is insignificant; any character outside
// the formula alphabet, a stray ")" or an unclosed "(" is a lexical error.
func Tokenize(src string) ([]Token, error) {
	var (
		toks  []Token
		open  []int // indices of unmatched "(" tokens
		depth int
	)
	emit := func(kind TokenKind, start, end int) {
		toks = append(toks, Token{Kind: kind, Text: src[start:end], Span: span(start, end), Depth: depth, Match: -1})
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case isSpace(c):
			i++
		case isDigit(c) || c == '.' && i+1 < len(src) && isDigit(src[i+1]):
			start := i
			end, err := scanNumber(src, i)
			if err != nil {
				return nil, err
			}
			i = end
			emit(TokNumber, start, i)
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			kind := TokIdent
			if j := skipSpace(src, i); j < len(src) && src[j] == '(' {
				kind = TokCall
			}
			emit(kind, start, i)
		case c == '*':
			if i+1 < len(src) && src[i+1] == '*' {
				emit(TokPow, i, i+2)
				i += 2
				continue
			}
			return nil, newError(ErrLexical, "", span(i, i+1), "'*' is not an operator; use ':' for interactions or '**' for powers")
		case c == '(':
			open = append(open, len(toks))
			emit(TokLParen, i, i+1)
			depth++
			i++
		case c == ')':
			if len(open) == 0 {
				return nil, newError(ErrLexical, "", span(i, i+1), "unmatched ')'")
			}
			depth--
			lp := open[len(open)-1]
			open = open[:len(open)-1]
			toks[lp].Match = len(toks)
			emit(TokRParen, i, i+1)
			toks[len(toks)-1].Match = lp
			i++
		default:
			kind, ok := punct[c]
			if !ok {
				r, size := utf8.DecodeRuneInString(src[i:])
				return nil, newError(ErrLexical, "", span(i, i+size), "unexpected character %q", r)
			}
			emit(kind, i, i+1)
			i++
		}
	}

	if len(open) > 0 {
		idx := open[len(open)-1]
		lp := toks[idx]
		if idx > 0 && toks[idx-1].Kind == TokCall {
			return nil, newError(ErrLexical, "", toks[idx-1].Span.to(lp.Span), "unterminated call to %s", toks[idx-1].Text)
		}
		return nil, newError(ErrLexical, "", lp.Span, "unclosed '('")
	}

	toks = append(toks, Token{Kind: TokEOF, Span: span(len(src), len(src)), Match: -1})
	return toks, nil
}

var punct = map[byte]TokenKind{
	'~': TokTilde,
	'+': TokPlus,
	'-': TokMinus,
	':': TokColon,
	',': TokComma,
	'=': TokEquals,
	'|': TokPipe,
}

// scanNumber accepts digits, an optional fraction and an optional exponent.
// The integer part may be empty when a fraction follows, as in ".5".
func scanNumber(src string, i int) (int, error) {
	start := i
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j >= len(src) || !isDigit(src[j]) {
			return 0, newError(ErrLexical, "", span(start, j), "malformed exponent in number")
		}
		for j < len(src) && isDigit(src[j]) {
			j++
		}
		i = j
	}
	if i < len(src) && isIdentStart(src[i]) {
		return 0, newError(ErrLexical, "", span(start, i+1), "identifier cannot start with a digit")
	}
	return i, nil
}

func skipSpace(src string, i int) int {
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool      { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
