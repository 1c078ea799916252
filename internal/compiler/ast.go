package compiler

// Formula is the unevaluated syntax tree of one formula: no expansion and
// no tying has happened yet.
type Formula struct {
	Source   string
	Response VarExpr
	RHS      []RHSTerm
	Span     Span
}

// RHSTerm is a sealed sum type over right-hand-side terms:
// *InterceptLit, *ConvCall and *RandomBlock.
type RHSTerm interface {
	rhsTerm()
	Pos() Span
}

// InterceptLit is a literal 0 or 1 on a right-hand side.
type InterceptLit struct {
	Present bool
	Span    Span
}

// ConvCall is C(term_expr, irf_call).
type ConvCall struct {
	Expr TermExpr
	IRF  IRFCall
	Span Span
}

// RandomBlock is (rhs | group).
type RandomBlock struct {
	Terms     []RHSTerm
	Group     string
	GroupSpan Span
	Span      Span
}

func (*InterceptLit) rhsTerm() {}
func (*ConvCall) rhsTerm()     {}
func (*RandomBlock) rhsTerm()  {}

func (n *InterceptLit) Pos() Span { return n.Span }
func (n *ConvCall) Pos() Span     { return n.Span }
func (n *RandomBlock) Pos() Span  { return n.Span }

// TermExpr is a sealed sum type over the predictor argument of C(...):
// *Sum, *Interaction and *Power.
type TermExpr interface {
	termExpr()
	Pos() Span
}

// Sum is X + Y + ...
type Sum struct {
	Items []TermExpr
	Span  Span
}

// Interaction is A:B:... (a single variable is an interaction of order one).
type Interaction struct {
	Vars []VarExpr
	Span Span
}

// Power is (term_expr)**k. Exponent holds the literal text; the expander
// validates it.
type Power struct {
	Base     TermExpr
	Exponent string
	ExpSpan  Span
	Span     Span
}

func (*Sum) termExpr()         {}
func (*Interaction) termExpr() {}
func (*Power) termExpr()       {}

func (n *Sum) Pos() Span         { return n.Span }
func (n *Interaction) Pos() Span { return n.Span }
func (n *Power) Pos() Span       { return n.Span }

// VarExpr is a column name wrapped in zero or more transforms, outermost first.
type VarExpr struct {
	Name       string
	Transforms []string
	Span       Span
}

// IRFCall is FAMILY(kwarg, ...).
type IRFCall struct {
	Family string
	Args   []KwArg
	Span   Span
}

// KwArg is key=value inside an IRF call.
type KwArg struct {
	Key   string
	Value Value
	Span  Span
}

// ValueKind classifies a keyword-argument value.
type ValueKind int

const (
	ValueIdent ValueKind = iota
	ValueNumber
)

// Value is a keyword-argument value; numbers keep their signed source text.
type Value struct {
	Kind ValueKind
	Text string
	Span Span
}
