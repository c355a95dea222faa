package hir

import (
	"reflect"
	"testing"
)

func variable(name string) Expression {
	return &PathExpr{Head: &Variable{Kind: VariableOther, Name: name}}
}

func call(name string, args ...Expression) *InternalCommand {
	return &InternalCommand{Name: name, Args: Call{Positional: args}}
}

func block(cmds ...ClassifiedCommand) *Block {
	return &Block{Pipelines: []*Pipeline{{Commands: cmds}}}
}

func TestWalkOrder(t *testing.T) {
	inner := block(call("ls", variable("x")))
	b := block(
		call("echo", &Binary{
			Left:     &Literal{Kind: LiteralInt, Raw: "1", Value: int64(1)},
			Operator: OpAdd,
			Right:    &PathExpr{Head: &Invocation{Block: inner}},
		}),
		call("each", &BlockExpr{Block: block(call("str from"))}),
	)

	if got := CommandNames(b); !reflect.DeepEqual(got, []string{"echo", "ls", "each", "str from"}) {
		t.Errorf("Expected commands in source order, got %v", got)
	}

	var vars []string
	Walk(b, func(n Node) bool {
		if v, ok := n.(*Variable); ok {
			vars = append(vars, v.Name)
		}
		return true
	})
	if !reflect.DeepEqual(vars, []string{"x"}) {
		t.Errorf("Expected variable inside the invocation, got %v", vars)
	}
}

func TestWalkStopsDescent(t *testing.T) {
	b := block(call("each", &BlockExpr{Block: block(call("ls"))}))

	var seen []string
	Walk(b, func(n Node) bool {
		if c, ok := n.(*InternalCommand); ok {
			seen = append(seen, c.Name)
		}
		_, isBlock := n.(*BlockExpr)
		return !isBlock
	})
	if !reflect.DeepEqual(seen, []string{"each"}) {
		t.Errorf("Expected descent to stop at the block, got %v", seen)
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{call("ls", variable("x")), "ls $x"},
		{&Binary{Left: &Literal{Raw: "2", Kind: LiteralInt}, Operator: OpMul, Right: variable("n")}, "2 * $n"},
		{&PathExpr{Head: &Variable{Name: "row", Kind: VariableOther}, Tail: []string{"a", "b"}}, "$row.a.b"},
		{&Literal{Kind: LiteralString, Raw: "hi there"}, `"hi there"`},
		{&InternalCommand{Name: "str from", Args: Call{Named: []NamedArgument{
			{Name: "decimals", Value: NamedValue{Kind: WithValue, Expr: variable("d")}},
			{Name: "raw", Value: NamedValue{Kind: AbsentSwitch}},
		}}}, "str from --decimals $d"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.node.String(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLookupOperator(t *testing.T) {
	op, ok := LookupOperator("<=")
	if !ok || op != OpLe {
		t.Errorf("Expected OpLe, got %v %v", op, ok)
	}
	if OpMul.Precedence() <= OpAdd.Precedence() || OpAdd.Precedence() <= OpEq.Precedence() {
		t.Error("Expected * to bind tighter than + and + tighter than ==")
	}
	if _, ok := LookupOperator("%"); ok {
		t.Error("Expected % to be unknown")
	}
}
