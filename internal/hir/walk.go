package hir

// Visitor is called for every node reached by Walk. Returning false stops the
// descent below that node.
type Visitor func(n Node) bool

// Walk traverses a block depth first in source order.
func Walk(b *Block, v Visitor) {
	if b == nil {
		return
	}
	for _, p := range b.Pipelines {
		for _, c := range p.Commands {
			walkCommand(c, v)
		}
	}
}

func walkCommand(c ClassifiedCommand, v Visitor) {
	if !v(c) {
		return
	}
	switch cmd := c.(type) {
	case *ExprCommand:
		walkExpr(cmd.Expr, v)
	case *InternalCommand:
		for _, p := range cmd.Args.Positional {
			walkExpr(p, v)
		}
		for _, n := range cmd.Args.Named {
			if n.Value.Kind == WithValue {
				walkExpr(n.Value.Expr, v)
			}
		}
	case *DynamicCommand:
		for _, a := range cmd.Args {
			walkExpr(a, v)
		}
	case *ErrorCommand:
	}
}

func walkExpr(e Expression, v Visitor) {
	if e == nil || !v(e) {
		return
	}
	switch x := e.(type) {
	case *Binary:
		walkExpr(x.Left, v)
		walkExpr(x.Right, v)
	case *BlockExpr:
		Walk(x.Block, v)
	case *Invocation:
		Walk(x.Block, v)
	case *PathExpr:
		walkExpr(x.Head, v)
	case *List:
		for _, item := range x.Items {
			walkExpr(item, v)
		}
	case *RangeExpr:
		walkExpr(x.From, v)
		walkExpr(x.To, v)
	case *Literal, *Variable, *Garbage:
	}
}

// CommandNames returns the names of every internal command in the block,
// including nested blocks and invocations, in source order.
func CommandNames(b *Block) []string {
	var names []string
	Walk(b, func(n Node) bool {
		if c, ok := n.(*InternalCommand); ok {
			names = append(names, c.Name)
		}
		return true
	})
	return names
}
