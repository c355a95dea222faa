// Package alias implements shell aliases with statically inferred parameter
// shapes.
//
// When an alias is declared its body is walked once. Every use of a formal
// parameter as an argument to a known command pins that parameter to the
// shape the command's signature declares for the position, so call sites of
// the alias can be parsed (and rejected) with the same precision as calls to
// the underlying commands. The walk also snapshots the scope handle of every
// command the body references; invoking the alias installs that snapshot
// first, so the body keeps resolving names the way it did at definition time.
package alias

import (
	"fmt"
	"sort"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/hir"
	"github.com/nushape/nushape/internal/position"
	"github.com/nushape/nushape/internal/shape"
)

// Catalogue resolves command names during inference. *engine.Registry
// satisfies it.
type Catalogue interface {
	Get(name string) (*shape.Signature, bool)
	GetScope(name string) (*engine.ScopedCommand, bool)
}

// Inference is the result of walking an alias body
type Inference struct {
	// Shapes has exactly one entry per declared parameter.
	Shapes map[string]shape.SyntaxShape
	// Scopes maps every command name in the body to its handle at definition time.
	Scopes map[string]*engine.ScopedCommand
}

// finding records where a variable was seen and, once known, its shape
type finding struct {
	span     position.Span
	shape    shape.SyntaxShape
	hasShape bool
}

type blockInfo struct {
	shapes map[string]finding
	scopes map[string]*engine.ScopedCommand
}

func newBlockInfo() blockInfo {
	return blockInfo{
		shapes: make(map[string]finding),
		scopes: make(map[string]*engine.ScopedCommand),
	}
}

// Infer walks body and returns the shape of every parameter in params along
// with the scope snapshot. It fails with a TYPE_CONFLICT error when a
// parameter is used at two different concrete shapes.
//
// The parser guarantees every internal command in body is in the catalogue
// and that its arguments fit its signature; a violation panics.
func Infer(body *hir.Block, params []string, cat Catalogue) (*Inference, error) {
	info, err := inspectBlock(body, cat)
	if err != nil {
		return nil, err
	}

	result := &Inference{
		Shapes: make(map[string]shape.SyntaxShape, len(params)),
		Scopes: make(map[string]*engine.ScopedCommand, len(info.scopes)),
	}
	for _, p := range params {
		result.Shapes[p] = shape.Any
		if f, ok := info.shapes[p]; ok && f.hasShape {
			result.Shapes[p] = f.shape
		}
	}
	for name, sc := range info.scopes {
		result.Scopes[name] = sc
	}
	return result, nil
}

// checkMerge folds next into existing. A finding without a shape never
// replaces one with a shape, Any yields to any concrete shape, and two
// different concrete shapes are a conflict. Scope handles are first-writer-wins.
func checkMerge(existing *blockInfo, next blockInfo) error {
	for name, sc := range next.scopes {
		if _, ok := existing.scopes[name]; !ok {
			existing.scopes[name] = sc
		}
	}

	names := make([]string, 0, len(next.shapes))
	for name := range next.shapes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := next.shapes[name]
		cur, ok := existing.shapes[name]

		switch {
		case !ok:
			existing.shapes[name] = f
		case !f.hasShape:
		case !cur.hasShape || cur.shape == shape.Any:
			existing.shapes[name] = f
		case f.shape == shape.Any || f.shape == cur.shape:
			// Any after a concrete shape is not a conflict either, so the
			// outcome does not depend on the order of uses.
		default:
			return nserrors.TypeConflict(name, f.span)
		}
	}
	return nil
}

// applyShape gives s to every finding that has no shape yet
func applyShape(info *blockInfo, s shape.SyntaxShape) {
	for name, f := range info.shapes {
		if !f.hasShape {
			f.shape = s
			f.hasShape = true
			info.shapes[name] = f
		}
	}
}

func inspectExpr(expr hir.Expression, cat Catalogue) (blockInfo, error) {
	switch x := expr.(type) {
	case *hir.Binary:
		left, err := inspectExpr(x.Left, cat)
		if err != nil {
			return blockInfo{}, err
		}
		right, err := inspectExpr(x.Right, cat)
		if err != nil {
			return blockInfo{}, err
		}
		if err := checkMerge(&left, right); err != nil {
			return blockInfo{}, err
		}
		return left, nil

	case *hir.BlockExpr:
		return inspectBlock(x.Block, cat)

	case *hir.PathExpr:
		switch head := x.Head.(type) {
		case *hir.Invocation:
			return inspectBlock(head.Block, cat)
		case *hir.Variable:
			info := newBlockInfo()
			if head.Kind == hir.VariableOther {
				info.shapes[head.Name] = finding{span: x.Span}
			}
			return info, nil
		}
	}
	return newBlockInfo(), nil
}

func inspectBlock(block *hir.Block, cat Catalogue) (blockInfo, error) {
	info := newBlockInfo()

	for _, pipeline := range block.Pipelines {
		for _, classified := range pipeline.Commands {
			switch cmd := classified.(type) {
			case *hir.ExprCommand:
				found, err := inspectExpr(cmd.Expr, cat)
				if err != nil {
					return blockInfo{}, err
				}
				if err := checkMerge(&info, found); err != nil {
					return blockInfo{}, err
				}

			case *hir.InternalCommand:
				if err := inspectCall(&info, cmd, cat); err != nil {
					return blockInfo{}, err
				}

			case *hir.DynamicCommand, *hir.ErrorCommand:
			}
		}
	}

	return info, nil
}

func inspectCall(info *blockInfo, cmd *hir.InternalCommand, cat Catalogue) error {
	sig, ok := cat.Get(cmd.Name)
	if !ok {
		panic(fmt.Sprintf("alias: catalogue has no signature for parsed command %q", cmd.Name))
	}

	if _, seen := info.scopes[cmd.Name]; !seen {
		sc, ok := cat.GetScope(cmd.Name)
		if !ok {
			panic(fmt.Sprintf("alias: catalogue has no scope for parsed command %q", cmd.Name))
		}
		info.scopes[cmd.Name] = sc
	}

	for i, arg := range cmd.Args.Positional {
		found, err := inspectExpr(arg, cat)
		if err != nil {
			return err
		}
		argShape, ok := sig.PositionalShape(i)
		if !ok {
			panic(fmt.Sprintf("alias: positional %d of %q exceeds its signature", i, cmd.Name))
		}
		applyShape(&found, argShape)
		if err := checkMerge(info, found); err != nil {
			return err
		}
	}

	for _, named := range cmd.Args.Named {
		if named.Value.Kind != hir.WithValue {
			continue
		}
		found, err := inspectExpr(named.Value.Expr, cat)
		if err != nil {
			return err
		}
		param, ok := sig.NamedParam(named.Name)
		if !ok {
			panic(fmt.Sprintf("alias: flag --%s is not declared by %q", named.Name, cmd.Name))
		}
		if !param.TakesValue() {
			continue
		}
		applyShape(&found, param.Shape)
		if err := checkMerge(info, found); err != nil {
			return err
		}
	}

	return nil
}
