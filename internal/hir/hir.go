// Package hir defines the classified shell syntax tree consumed by the
// evaluator and by alias shape inference. Expressions and commands are closed
// sum types: every variant implements a marker method and callers switch
// over the concrete pointer types.
package hir

import (
	"fmt"
	"strings"

	"github.com/nushape/nushape/internal/position"
)

// Node is implemented by every tree node
type Node interface {
	GetSpan() position.Span
	String() string
}

// Expression is a value-producing node
type Expression interface {
	Node
	hirExpressionNode()
}

// ClassifiedCommand is one stage of a pipeline as classified by the parser
type ClassifiedCommand interface {
	Node
	hirCommandNode()
}

// =============================================================================
// Expressions
// =============================================================================

// LiteralKind identifies the literal category
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralInt
	LiteralDecimal
	LiteralBool
	LiteralPath
	LiteralPattern
	LiteralColumnPath
	LiteralWord
)

// Literal is a constant. Value holds string, int64, float64, bool or []string
// (column paths) depending on Kind.
type Literal struct {
	Span  position.Span
	Kind  LiteralKind
	Raw   string
	Value interface{}
}

func (l *Literal) GetSpan() position.Span { return l.Span }
func (l *Literal) hirExpressionNode()     {}
func (l *Literal) String() string {
	if l.Kind == LiteralString {
		return fmt.Sprintf("%q", l.Raw)
	}
	return l.Raw
}

// VariableKind distinguishes the pipeline input variable from named ones
type VariableKind int

const (
	// VariableIt is $it, the implicit pipeline-input variable.
	VariableIt VariableKind = iota
	VariableOther
)

// Variable is a reference such as $name
type Variable struct {
	Span position.Span
	Kind VariableKind
	Name string
}

func (v *Variable) GetSpan() position.Span { return v.Span }
func (v *Variable) hirExpressionNode()     {}
func (v *Variable) String() string         { return "$" + v.Name }

// Operator is a binary operator in a math expression
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var operatorText = map[Operator]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
}

func (o Operator) String() string { return operatorText[o] }

// LookupOperator maps operator text to an Operator.
func LookupOperator(text string) (Operator, bool) {
	for op, t := range operatorText {
		if t == text {
			return op, true
		}
	}
	return 0, false
}

// Precedence returns the binding power of the operator; higher binds tighter.
func (o Operator) Precedence() int {
	switch o {
	case OpMul, OpDiv:
		return 3
	case OpAdd, OpSub:
		return 2
	default:
		return 1
	}
}

// Binary is a binary operator application
type Binary struct {
	Span     position.Span
	Left     Expression
	Operator Operator
	Right    Expression
}

func (b *Binary) GetSpan() position.Span { return b.Span }
func (b *Binary) hirExpressionNode()     {}
func (b *Binary) String() string {
	return fmt.Sprintf("%s %s %s", b.Left, b.Operator, b.Right)
}

// BlockExpr is a literal block { ... } passed as a value
type BlockExpr struct {
	Span  position.Span
	Block *Block
}

func (b *BlockExpr) GetSpan() position.Span { return b.Span }
func (b *BlockExpr) hirExpressionNode()     {}
func (b *BlockExpr) String() string         { return "{ " + b.Block.String() + " }" }

// Invocation is a block evaluated as a sub-expression, $( ... )
type Invocation struct {
	Span  position.Span
	Block *Block
}

func (i *Invocation) GetSpan() position.Span { return i.Span }
func (i *Invocation) hirExpressionNode()     {}
func (i *Invocation) String() string         { return "$(" + i.Block.String() + ")" }

// PathExpr is a head expression followed by member accesses ($row.name).
// Variables and invocations always appear wrapped in a PathExpr.
type PathExpr struct {
	Span position.Span
	Head Expression
	Tail []string
}

func (p *PathExpr) GetSpan() position.Span { return p.Span }
func (p *PathExpr) hirExpressionNode()     {}
func (p *PathExpr) String() string {
	if len(p.Tail) == 0 {
		return p.Head.String()
	}
	return p.Head.String() + "." + strings.Join(p.Tail, ".")
}

// List is a [ ... ] table literal
type List struct {
	Span  position.Span
	Items []Expression
}

func (l *List) GetSpan() position.Span { return l.Span }
func (l *List) hirExpressionNode()     {}
func (l *List) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// RangeExpr is an inclusive a..b range
type RangeExpr struct {
	Span position.Span
	From Expression
	To   Expression
}

func (r *RangeExpr) GetSpan() position.Span { return r.Span }
func (r *RangeExpr) hirExpressionNode()     {}
func (r *RangeExpr) String() string         { return r.From.String() + ".." + r.To.String() }

// Garbage marks an expression the parser could not make sense of
type Garbage struct {
	Span position.Span
	Raw  string
}

func (g *Garbage) GetSpan() position.Span { return g.Span }
func (g *Garbage) hirExpressionNode()     {}
func (g *Garbage) String() string         { return g.Raw }

// =============================================================================
// Commands
// =============================================================================

// ExprCommand is a pipeline stage that is a bare expression
type ExprCommand struct {
	Span position.Span
	Expr Expression
}

func (e *ExprCommand) GetSpan() position.Span { return e.Span }
func (e *ExprCommand) hirCommandNode()        {}
func (e *ExprCommand) String() string         { return e.Expr.String() }

// NamedValueKind describes how a flag appeared at a call site
type NamedValueKind int

const (
	AbsentSwitch NamedValueKind = iota
	PresentSwitch
	WithValue
	AbsentValue
)

// NamedValue is the value side of a named argument
type NamedValue struct {
	Kind NamedValueKind
	Span position.Span
	// Expr is set only for Kind == WithValue.
	Expr Expression
}

// NamedArgument pairs a flag's long name with its value
type NamedArgument struct {
	Name  string
	Value NamedValue
}

// Call holds the arguments of an internal command invocation
type Call struct {
	Positional []Expression
	Named      []NamedArgument
}

// Flag returns the named argument with the given long name.
func (c *Call) Flag(name string) (NamedValue, bool) {
	for _, n := range c.Named {
		if n.Name == name {
			return n.Value, true
		}
	}
	return NamedValue{}, false
}

// InternalCommand is a call to a command known to the registry
type InternalCommand struct {
	Span     position.Span
	Name     string
	NameSpan position.Span
	Args     Call
}

func (c *InternalCommand) GetSpan() position.Span { return c.Span }
func (c *InternalCommand) hirCommandNode()        {}
func (c *InternalCommand) String() string {
	parts := []string{c.Name}
	for _, p := range c.Args.Positional {
		parts = append(parts, p.String())
	}
	for _, n := range c.Args.Named {
		switch n.Value.Kind {
		case PresentSwitch:
			parts = append(parts, "--"+n.Name)
		case WithValue:
			parts = append(parts, "--"+n.Name, n.Value.Expr.String())
		}
	}
	return strings.Join(parts, " ")
}

// DynamicCommand is a call whose target could not be resolved at parse time
type DynamicCommand struct {
	Span position.Span
	Name string
	Args []Expression
}

func (d *DynamicCommand) GetSpan() position.Span { return d.Span }
func (d *DynamicCommand) hirCommandNode()        {}
func (d *DynamicCommand) String() string {
	parts := []string{d.Name}
	for _, a := range d.Args {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, " ")
}

// ErrorCommand replaces a pipeline stage that failed to parse
type ErrorCommand struct {
	Span position.Span
	Err  error
}

func (e *ErrorCommand) GetSpan() position.Span { return e.Span }
func (e *ErrorCommand) hirCommandNode()        {}
func (e *ErrorCommand) String() string         { return fmt.Sprintf("<error: %v>", e.Err) }

// =============================================================================
// Blocks
// =============================================================================

// Pipeline is an ordered sequence of commands joined by |
type Pipeline struct {
	Span     position.Span
	Commands []ClassifiedCommand
}

func (p *Pipeline) String() string {
	parts := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		parts[i] = c.String()
	}
	return strings.Join(parts, " | ")
}

// Block is an ordered sequence of pipelines
type Block struct {
	Span      position.Span
	Pipelines []*Pipeline
}

func (b *Block) GetSpan() position.Span { return b.Span }
func (b *Block) String() string {
	parts := make([]string, len(b.Pipelines))
	for i, p := range b.Pipelines {
		parts[i] = p.String()
	}
	return strings.Join(parts, "; ")
}
