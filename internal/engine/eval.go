package engine

import (
	stderrors "errors"
	"fmt"
	"strings"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/hir"
	"github.com/nushape/nushape/internal/position"
)

// RunBlock runs every pipeline of block in order. input feeds the first
// pipeline; the output of the last pipeline is returned.
func RunBlock(ctx *Context, block *hir.Block, input []Value) ([]Value, error) {
	var out []Value
	for i, p := range block.Pipelines {
		in := input
		if i > 0 {
			in = nil
		}
		res, err := RunPipeline(ctx, p, in)
		if err != nil {
			return nil, err
		}
		out = res
	}
	return out, nil
}

// RunPipeline feeds the output of each stage into the next
func RunPipeline(ctx *Context, p *hir.Pipeline, input []Value) ([]Value, error) {
	var err error
	for _, cmd := range p.Commands {
		input, err = runCommand(ctx, cmd, input)
		if err != nil {
			return nil, err
		}
	}
	return input, nil
}

// RunBlockValue runs a block argument once with $it bound to it
func RunBlockValue(ctx *Context, bv *BlockValue, it Value) ([]Value, error) {
	child := ctx.WithIt(it)
	if bv.Source != "" {
		child.Source = bv.Source
	}
	for k, v := range bv.Vars {
		child.Vars[k] = v
	}
	return RunBlock(child, bv.Block, []Value{it})
}

func runCommand(ctx *Context, c hir.ClassifiedCommand, input []Value) ([]Value, error) {
	switch cmd := c.(type) {
	case *hir.ExprCommand:
		v, err := Eval(ctx, cmd.Expr)
		if err != nil {
			return nil, err
		}
		return Spread(v), nil

	case *hir.InternalCommand:
		impl, ok := ctx.Registry.Lookup(cmd.Name)
		if !ok {
			return nil, nserrors.CommandNotFound(cmd.Name, cmd.NameSpan)
		}
		args, err := EvalCall(ctx, cmd)
		if err != nil {
			return nil, err
		}
		out, err := impl.Run(ctx, args, input)
		if err != nil {
			return nil, wrapRunError(cmd, err)
		}
		return out, nil

	case *hir.DynamicCommand:
		return nil, nserrors.CommandNotFound(cmd.Name, cmd.Span)

	case *hir.ErrorCommand:
		return nil, cmd.Err
	}
	return nil, fmt.Errorf("unknown command node %T", c)
}

func wrapRunError(cmd *hir.InternalCommand, err error) error {
	var se *nserrors.StandardError
	if stderrors.As(err, &se) {
		return err
	}
	wrapped := nserrors.RuntimeError(fmt.Sprintf("%s failed", cmd.Name), cmd.NameSpan)
	wrapped.Cause = err
	return wrapped
}

// Spread turns a table value into a stream of its rows
func Spread(v Value) []Value {
	switch x := v.(type) {
	case nil:
		return nil
	case []Value:
		return x
	}
	return []Value{v}
}

// Collapse turns a stream back into a single value
func Collapse(out []Value) Value {
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// EvalCall evaluates the arguments of an internal command
func EvalCall(ctx *Context, cmd *hir.InternalCommand) (*CallArgs, error) {
	args := &CallArgs{
		Name:     cmd.Name,
		Span:     cmd.Span,
		Named:    make(map[string]Value),
		Switches: make(map[string]bool),
	}

	for _, expr := range cmd.Args.Positional {
		v, err := Eval(ctx, expr)
		if err != nil {
			return nil, err
		}
		args.Positional = append(args.Positional, v)
	}

	for _, named := range cmd.Args.Named {
		switch named.Value.Kind {
		case hir.PresentSwitch:
			args.Switches[named.Name] = true
		case hir.WithValue:
			v, err := Eval(ctx, named.Value.Expr)
			if err != nil {
				return nil, err
			}
			args.Named[named.Name] = v
		}
	}

	return args, nil
}

// Eval evaluates one expression
func Eval(ctx *Context, expr hir.Expression) (Value, error) {
	switch x := expr.(type) {
	case *hir.Literal:
		if x.Kind == hir.LiteralColumnPath {
			if parts, ok := x.Value.([]string); ok {
				return ColumnPath(parts), nil
			}
		}
		return x.Value, nil

	case *hir.Variable:
		if x.Kind == hir.VariableIt {
			if !ctx.HasIt {
				return nil, nserrors.UnknownVariable(x.Name, x.Span)
			}
			return ctx.It, nil
		}
		v, ok := ctx.Vars[x.Name]
		if !ok {
			return nil, nserrors.UnknownVariable(x.Name, x.Span)
		}
		return v, nil

	case *hir.PathExpr:
		v, err := Eval(ctx, x.Head)
		if err != nil {
			return nil, err
		}
		for _, member := range x.Tail {
			if v, err = Member(v, member, x.Span); err != nil {
				return nil, err
			}
		}
		return v, nil

	case *hir.Invocation:
		out, err := RunBlock(ctx.Child(), x.Block, nil)
		if err != nil {
			return nil, err
		}
		return Collapse(out), nil

	case *hir.Binary:
		left, err := Eval(ctx, x.Left)
		if err != nil {
			return nil, err
		}
		right, err := Eval(ctx, x.Right)
		if err != nil {
			return nil, err
		}
		return evalBinary(x.Operator, left, right, x.Span)

	case *hir.BlockExpr:
		vars := make(map[string]Value, len(ctx.Vars))
		for k, v := range ctx.Vars {
			vars[k] = v
		}
		return &BlockValue{Block: x.Block, Vars: vars, Source: ctx.Source}, nil

	case *hir.List:
		items := make([]Value, 0, len(x.Items))
		for _, item := range x.Items {
			v, err := Eval(ctx, item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil

	case *hir.RangeExpr:
		from, err := Eval(ctx, x.From)
		if err != nil {
			return nil, err
		}
		to, err := Eval(ctx, x.To)
		if err != nil {
			return nil, err
		}
		a, okA := from.(int64)
		b, okB := to.(int64)
		if !okA || !okB {
			return nil, nserrors.RuntimeError("range bounds must be integers", x.Span)
		}
		return Range{From: a, To: b}, nil

	case *hir.Garbage:
		return nil, nserrors.RuntimeError(fmt.Sprintf("cannot evaluate '%s'", x.Raw), x.Span)
	}
	return nil, fmt.Errorf("unknown expression node %T", expr)
}

// Member reads column name from a row, or from every row of a table
func Member(v Value, name string, span position.Span) (Value, error) {
	switch x := v.(type) {
	case *Row:
		cell, ok := x.Get(name)
		if !ok {
			return nil, nserrors.RuntimeError(fmt.Sprintf("Unknown column '%s'", name), span)
		}
		return cell, nil
	case []Value:
		out := make([]Value, 0, len(x))
		for _, item := range x {
			cell, err := Member(item, name, span)
			if err != nil {
				return nil, err
			}
			out = append(out, cell)
		}
		return out, nil
	}
	return nil, nserrors.RuntimeError(fmt.Sprintf("Expected row or table, found %s", TypeName(v)), span)
}

func evalBinary(op hir.Operator, left, right Value, span position.Span) (Value, error) {
	mismatch := func() (Value, error) {
		return nil, nserrors.RuntimeError(
			fmt.Sprintf("cannot apply '%s' to %s and %s", op, TypeName(left), TypeName(right)), span)
	}

	if a, ok := left.(int64); ok {
		if b, ok := right.(int64); ok {
			return intBinary(op, a, b, span)
		}
	}

	if a, okA := AsFloat(left); okA {
		b, okB := AsFloat(right)
		if !okB {
			return mismatch()
		}
		return floatBinary(op, a, b, span)
	}

	if a, okA := left.(string); okA {
		b, okB := right.(string)
		if !okB {
			return mismatch()
		}
		switch op {
		case hir.OpAdd:
			return a + b, nil
		case hir.OpEq, hir.OpNe, hir.OpLt, hir.OpLe, hir.OpGt, hir.OpGe:
			return compare(op, strings.Compare(a, b)), nil
		}
		return mismatch()
	}

	switch op {
	case hir.OpEq:
		return TypeName(left) == TypeName(right) && Format(left) == Format(right), nil
	case hir.OpNe:
		return TypeName(left) != TypeName(right) || Format(left) != Format(right), nil
	}
	return mismatch()
}

func intBinary(op hir.Operator, a, b int64, span position.Span) (Value, error) {
	switch op {
	case hir.OpAdd:
		return a + b, nil
	case hir.OpSub:
		return a - b, nil
	case hir.OpMul:
		return a * b, nil
	case hir.OpDiv:
		if b == 0 {
			return nil, nserrors.RuntimeError("division by zero", span)
		}
		if a%b == 0 {
			return a / b, nil
		}
		return float64(a) / float64(b), nil
	}
	switch {
	case a < b:
		return compare(op, -1), nil
	case a > b:
		return compare(op, 1), nil
	}
	return compare(op, 0), nil
}

func floatBinary(op hir.Operator, a, b float64, span position.Span) (Value, error) {
	switch op {
	case hir.OpAdd:
		return a + b, nil
	case hir.OpSub:
		return a - b, nil
	case hir.OpMul:
		return a * b, nil
	case hir.OpDiv:
		if b == 0 {
			return nil, nserrors.RuntimeError("division by zero", span)
		}
		return a / b, nil
	}
	switch {
	case a < b:
		return compare(op, -1), nil
	case a > b:
		return compare(op, 1), nil
	}
	return compare(op, 0), nil
}

func compare(op hir.Operator, cmp int) bool {
	switch op {
	case hir.OpEq:
		return cmp == 0
	case hir.OpNe:
		return cmp != 0
	case hir.OpLt:
		return cmp < 0
	case hir.OpLe:
		return cmp <= 0
	case hir.OpGt:
		return cmp > 0
	case hir.OpGe:
		return cmp >= 0
	}
	return false
}
