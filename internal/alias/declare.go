package alias

import (
	"fmt"
	"strings"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/shape"
)

// Saver persists alias declarations so they are replayed at startup
type Saver interface {
	SaveAlias(name, declaration string) error
}

// DeclareCommand is the alias builtin
type DeclareCommand struct {
	Saver Saver
}

func (d *DeclareCommand) Name() string { return "alias" }

func (d *DeclareCommand) Usage() string { return "Define a shortcut for another command." }

func (d *DeclareCommand) Signature() *shape.Signature {
	return shape.Build("alias").
		Desc(d.Usage()).
		Required("name", shape.String, "the name of the alias").
		Required("args", shape.Table, "the arguments to the alias").
		Required("block", shape.Block, "the block to run as the body of the alias").
		Switch("save", "save the alias to your config", 's')
}

// Run infers the alias and registers it in the caller's registry, replacing
// any previous binding of the name. With --save the declaration is persisted
// only after inference succeeds.
func (d *DeclareCommand) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	name, ok := args.Nth(0).(string)
	if !ok || name == "" {
		return nil, nserrors.InvalidAlias("Expected a name for the alias", args.Span)
	}

	list, ok := args.Nth(1).([]engine.Value)
	if !ok {
		return nil, nserrors.InvalidAlias(fmt.Sprintf("alias %s: expected a table of parameter names", name), args.Span)
	}
	params := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, nserrors.InvalidAlias(
				fmt.Sprintf("alias %s: Expected a string parameter name, found %s", name, engine.TypeName(item)), args.Span)
		}
		params = append(params, s)
	}

	block, ok := args.Nth(2).(*engine.BlockValue)
	if !ok {
		return nil, nserrors.InvalidAlias(fmt.Sprintf("alias %s: expected a block body", name), args.Span)
	}

	def, err := Define(name, params, block.Block, ctx.Registry)
	if err != nil {
		return nil, err
	}
	def.Source = block.Source

	if args.Switches["save"] {
		if d.Saver == nil {
			return nil, nserrors.RuntimeError("alias --save needs a config store", args.Span)
		}
		decl := strings.TrimSpace(ctx.SourceText(args.Span))
		if decl == "" {
			return nil, nserrors.RuntimeError(fmt.Sprintf("alias %s: declaration text is unavailable, not saved", name), args.Span)
		}
		if err := d.Saver.SaveAlias(name, decl); err != nil {
			return nil, fmt.Errorf("saving alias %s: %w", name, err)
		}
	}

	ctx.Registry.Register(NewCommand(def))
	ctx.Logger.Debug("defined alias %s", def)
	return nil, nil
}
