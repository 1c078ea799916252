package compiler

import (
	"fmt"
	"strings"
)

type parser struct {
	src  string
	toks []Token
	pos  int
}

// Parse turns a formula into its syntax tree. It performs no expansion and
// no tying; unknown families and transforms are rejected here because the
// grammar names them.
func Parse(src string) (*Formula, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	return p.formula()
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) next() Token {
	tok := p.toks[p.pos]
	if tok.Kind != TokEOF {
		p.pos++
	}
	return tok
}

// groupSpan covers the "(" at index lp through its matching ")".
func (p *parser) groupSpan(start Span, lp int) Span {
	if m := p.toks[lp].Match; m >= 0 {
		return start.to(p.toks[m].Span)
	}
	return start.to(p.toks[lp].Span)
}

func (p *parser) expect(kind TokenKind, production string, prod Span, what string) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, newError(ErrSyntax, production, prod, "expected %s, found %s", what, describeToken(tok))
	}
	return p.next(), nil
}

func describeToken(tok Token) string {
	if tok.Kind == TokEOF {
		return "end of formula"
	}
	return fmt.Sprintf("%q", tok.Text)
}

// formula := response '~' rhs
func (p *parser) formula() (*Formula, error) {
	if p.peek().Kind == TokEOF {
		return nil, newError(ErrSyntax, "formula", span(0, len(p.src)), "empty formula")
	}
	resp, err := p.varExpr("response")
	if err != nil {
		return nil, err
	}
	whole := span(0, len(p.src))
	if _, err := p.expect(TokTilde, "formula", whole, "'~' after the response"); err != nil {
		return nil, err
	}
	if p.peek().Kind == TokEOF {
		return nil, newError(ErrSyntax, "formula", whole, "missing right-hand side after '~'")
	}
	rhs, err := p.rhs(false)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind != TokEOF {
		return nil, newError(ErrSyntax, "rhs", tok.Span, "unexpected %s after the last term", describeToken(tok))
	}
	return &Formula{Source: p.src, Response: resp, RHS: rhs, Span: whole}, nil
}

// rhs := rhs_term ('+' rhs_term)*
func (p *parser) rhs(inBlock bool) ([]RHSTerm, error) {
	var terms []RHSTerm
	for {
		term, err := p.rhsTerm(inBlock)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
		if p.peek().Kind != TokPlus {
			return terms, nil
		}
		p.next()
	}
}

// rhs_term := '0' | '1' | conv_call | random_block
func (p *parser) rhsTerm(inBlock bool) (RHSTerm, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokNumber:
		p.next()
		switch tok.Text {
		case "0":
			return &InterceptLit{Present: false, Span: tok.Span}, nil
		case "1":
			return &InterceptLit{Present: true, Span: tok.Span}, nil
		}
		return nil, newError(ErrSyntax, "rhs_term", tok.Span, "only 0 or 1 may appear as a literal term, found %s", tok.Text)
	case TokCall:
		if tok.Text == "C" {
			return p.convCall()
		}
		return nil, newError(ErrSyntax, "rhs_term", p.groupSpan(tok.Span, p.pos+1),
			"%s(...) must appear inside a convolution C(<predictors>, <IRF>())", tok.Text)
	case TokLParen:
		if inBlock {
			return nil, newError(ErrSyntax, "random_block", p.groupSpan(tok.Span, p.pos), "random-effect blocks cannot be nested")
		}
		return p.randomBlock()
	case TokIdent:
		return nil, newError(ErrSyntax, "rhs_term", tok.Span,
			"predictor %q must appear inside a convolution C(%s, <IRF>())", tok.Text, tok.Text)
	}
	return nil, newError(ErrSyntax, "rhs_term", tok.Span, "expected a term, found %s", describeToken(tok))
}

// conv_call := 'C' '(' term_expr ',' irf_call ')'
func (p *parser) convCall() (*ConvCall, error) {
	name := p.next()
	lp := p.pos
	p.next()
	prod := p.groupSpan(name.Span, lp)

	if p.peek().Kind == TokRParen {
		return nil, newError(ErrSyntax, "conv_call", prod, "C() needs predictors and an IRF")
	}
	expr, err := p.termExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokComma, "conv_call", prod, "',' between the predictors and the IRF"); err != nil {
		return nil, err
	}
	irf, err := p.irfCall()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen, "conv_call", prod, "')' closing C(...)"); err != nil {
		return nil, err
	}
	return &ConvCall{Expr: expr, IRF: irf, Span: prod}, nil
}

// term_expr := term_atom ('+' term_atom)*
func (p *parser) termExpr() (TermExpr, error) {
	first, err := p.termAtom()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != TokPlus {
		return first, nil
	}
	items := []TermExpr{first}
	for p.peek().Kind == TokPlus {
		p.next()
		item, err := p.termAtom()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return &Sum{Items: items, Span: first.Pos().to(items[len(items)-1].Pos())}, nil
}

// term_atom := interaction | '(' term_expr ')' ('**' INT)?
func (p *parser) termAtom() (TermExpr, error) {
	if p.peek().Kind != TokLParen {
		return p.interaction()
	}
	lpTok := p.peek()
	lp := p.pos
	p.next()
	prod := p.groupSpan(lpTok.Span, lp)
	inner, err := p.termExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen, "power_expr", prod, "')'"); err != nil {
		return nil, err
	}

	switch p.peek().Kind {
	case TokPow:
		pow := p.next()
		exp := p.peek()
		switch exp.Kind {
		case TokNumber:
			p.next()
			return &Power{Base: inner, Exponent: exp.Text, ExpSpan: exp.Span, Span: lpTok.Span.to(exp.Span)}, nil
		case TokMinus:
			p.next()
			if num := p.next(); num.Kind == TokNumber {
				return nil, newError(ErrInvalidPowerExponent, "power_expr", exp.Span.to(num.Span),
					"power exponent must be a positive integer, found -%s", num.Text)
			}
		}
		return nil, newError(ErrSyntax, "power_expr", lpTok.Span.to(pow.Span), "expected an integer exponent after '**', found %s", describeToken(exp))
	case TokColon:
		return nil, newError(ErrSyntax, "interaction", lpTok.Span.to(p.peek().Span), "a parenthesized group cannot be an interaction operand")
	}
	return inner, nil
}

// interaction := var_expr (':' var_expr)*
func (p *parser) interaction() (*Interaction, error) {
	v, err := p.varExpr("interaction")
	if err != nil {
		return nil, err
	}
	vars := []VarExpr{v}
	for p.peek().Kind == TokColon {
		colon := p.next()
		if p.peek().Kind == TokLParen {
			return nil, newError(ErrSyntax, "interaction", vars[0].Span.to(colon.Span), "interaction operands must be variables")
		}
		v, err := p.varExpr("interaction")
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	return &Interaction{Vars: vars, Span: vars[0].Span.to(vars[len(vars)-1].Span)}, nil
}

// var_expr := IDENT | FUNC_NAME '(' var_expr ')'
func (p *parser) varExpr(production string) (VarExpr, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokIdent:
		p.next()
		return VarExpr{Name: tok.Text, Span: tok.Span}, nil
	case TokCall:
		if err := checkTransform(tok); err != nil {
			return VarExpr{}, err
		}
		p.next()
		lp := p.pos
		p.next()
		prod := p.groupSpan(tok.Span, lp)
		inner, err := p.varExpr("var_expr")
		if err != nil {
			return VarExpr{}, err
		}
		rp, err := p.expect(TokRParen, "var_expr", prod, fmt.Sprintf("')' closing %s(...); a transform takes exactly one variable", tok.Text))
		if err != nil {
			return VarExpr{}, err
		}
		return VarExpr{
			Name:       inner.Name,
			Transforms: append([]string{tok.Text}, inner.Transforms...),
			Span:       tok.Span.to(rp.Span),
		}, nil
	case TokNumber:
		return VarExpr{}, newError(ErrSyntax, production, tok.Span, "expected a variable, found the number %s", tok.Text)
	}
	return VarExpr{}, newError(ErrSyntax, production, tok.Span, "expected a variable, found %s", describeToken(tok))
}

// irf_call := FAMILY_NAME '(' (kwarg (',' kwarg)*)? ')'
func (p *parser) irfCall() (IRFCall, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokCall:
	case TokIdent:
		if _, ok := LookupFamily(tok.Text); ok {
			return IRFCall{}, newError(ErrSyntax, "irf_call", tok.Span, "IRF family must be called, e.g. %s()", tok.Text)
		}
		return IRFCall{}, unknownFamily(tok)
	default:
		return IRFCall{}, newError(ErrSyntax, "irf_call", tok.Span, "expected an IRF call such as Gamma(), found %s", describeToken(tok))
	}
	if _, ok := LookupFamily(tok.Text); !ok {
		return IRFCall{}, unknownFamily(tok)
	}
	p.next()
	lp := p.pos
	p.next()
	prod := p.groupSpan(tok.Span, lp)

	call := IRFCall{Family: tok.Text, Span: prod}
	if p.peek().Kind != TokRParen {
		for {
			kw, err := p.kwarg(prod)
			if err != nil {
				return IRFCall{}, err
			}
			call.Args = append(call.Args, kw)
			if p.peek().Kind != TokComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(TokRParen, "irf_call", prod, fmt.Sprintf("',' or ')' in %s(...)", tok.Text)); err != nil {
		return IRFCall{}, err
	}
	return call, nil
}

// kwarg := IDENT '=' value
func (p *parser) kwarg(call Span) (KwArg, error) {
	key := p.peek()
	if key.Kind == TokCall {
		if _, ok := LookupFamily(key.Text); ok {
			return KwArg{}, newError(ErrUnsupported, "irf_call", call, "hierarchical IRF composition with %s(...) is not supported", key.Text)
		}
	}
	if key.Kind != TokIdent {
		return KwArg{}, newError(ErrSyntax, "kwarg", key.Span, "expected name=value, found %s", describeToken(key))
	}
	p.next()
	if _, err := p.expect(TokEquals, "kwarg", key.Span.to(p.peek().Span), fmt.Sprintf("'=' after %s", key.Text)); err != nil {
		return KwArg{}, err
	}

	tok := p.peek()
	var val Value
	switch tok.Kind {
	case TokIdent:
		p.next()
		val = Value{Kind: ValueIdent, Text: tok.Text, Span: tok.Span}
	case TokNumber:
		p.next()
		val = Value{Kind: ValueNumber, Text: tok.Text, Span: tok.Span}
	case TokMinus:
		p.next()
		num := p.peek()
		if num.Kind != TokNumber {
			return KwArg{}, newError(ErrSyntax, "kwarg", tok.Span.to(num.Span), "expected a number after '-', found %s", describeToken(num))
		}
		p.next()
		val = Value{Kind: ValueNumber, Text: "-" + num.Text, Span: tok.Span.to(num.Span)}
	case TokCall:
		if _, ok := LookupFamily(tok.Text); ok {
			return KwArg{}, newError(ErrUnsupported, "irf_call", call, "hierarchical IRF composition with %s(...) is not supported", tok.Text)
		}
		return KwArg{}, newError(ErrSyntax, "kwarg", p.groupSpan(tok.Span, p.pos+1), "keyword values must be names or numbers")
	default:
		return KwArg{}, newError(ErrSyntax, "kwarg", key.Span.to(tok.Span), "expected a value for %s, found %s", key.Text, describeToken(tok))
	}
	return KwArg{Key: key.Text, Value: val, Span: key.Span.to(val.Span)}, nil
}

// random_block := '(' rhs ('+' rhs)* '|' IDENT ')'
func (p *parser) randomBlock() (*RandomBlock, error) {
	lpTok := p.next()
	prod := p.groupSpan(lpTok.Span, p.pos-1)

	terms, err := p.rhs(true)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokPipe, "random_block", prod, "'|' followed by a grouping factor"); err != nil {
		return nil, err
	}
	group := p.peek()
	if group.Kind != TokIdent {
		return nil, newError(ErrSyntax, "random_block", prod, "grouping factor must be a bare column name, found %s", describeToken(group))
	}
	p.next()
	if _, err := p.expect(TokRParen, "random_block", prod, "')' after the grouping factor"); err != nil {
		return nil, err
	}
	return &RandomBlock{Terms: terms, Group: group.Text, GroupSpan: group.Span, Span: prod}, nil
}

func unknownFamily(tok Token) error {
	return newError(ErrUnknownFamily, "irf_call", tok.Span, "unknown IRF family %q (expected one of %s)",
		tok.Text, strings.Join(FamilyNames(), ", "))
}
