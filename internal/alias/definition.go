package alias

import (
	"fmt"
	"sort"
	"strings"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/hir"
	"github.com/nushape/nushape/internal/shape"
)

// Definition is an alias after inference. It is never modified once built;
// redefining the alias creates a new Definition.
type Definition struct {
	Name   string
	Params []string
	Body   *hir.Block
	Shapes map[string]shape.SyntaxShape
	Scopes map[string]*engine.ScopedCommand

	// Source is the text Body was parsed from
	Source string
}

// Define validates the parameter list and infers parameter shapes and the
// scope snapshot for body. No Definition is returned on error.
func Define(name string, params []string, body *hir.Block, cat Catalogue) (*Definition, error) {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p == "" || p == "it" {
			return nil, nserrors.InvalidAlias(fmt.Sprintf("alias %s: invalid parameter name %q", name, p), body.Span)
		}
		if seen[p] {
			return nil, nserrors.InvalidAlias(fmt.Sprintf("alias %s: duplicate parameter %q", name, p), body.Span)
		}
		seen[p] = true
	}

	inf, err := Infer(body, params, cat)
	if err != nil {
		return nil, err
	}

	return &Definition{
		Name:   name,
		Params: append([]string(nil), params...),
		Body:   body,
		Shapes: inf.Shapes,
		Scopes: inf.Scopes,
	}, nil
}

// Signature declares every parameter as an optional positional carrying its
// inferred shape, in declaration order.
func (d *Definition) Signature() *shape.Signature {
	sig := shape.Build(d.Name).Desc(d.Usage())
	for _, p := range d.Params {
		sig.Optional(p, d.Shapes[p], "")
	}
	return sig
}

// Usage summarises the alias body
func (d *Definition) Usage() string {
	return fmt.Sprintf("alias for { %s }", d.Body)
}

// CapturedCommands returns the names in the scope snapshot, sorted
func (d *Definition) CapturedCommands() []string {
	names := make([]string, 0, len(d.Scopes))
	for name := range d.Scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the definition with inferred shapes, e.g.
// "round-to [num:any digits:integer] { ... }"
func (d *Definition) String() string {
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = p + ":" + d.Shapes[p].String()
	}
	return fmt.Sprintf("%s [%s] { %s }", d.Name, strings.Join(params, " "), d.Body)
}
