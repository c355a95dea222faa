package alias

import (
	"fmt"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/shape"
)

// Command runs an alias definition
type Command struct {
	def *Definition
}

// NewCommand wraps a definition as a registry command
func NewCommand(def *Definition) *Command {
	return &Command{def: def}
}

func (c *Command) Name() string                { return c.def.Name }
func (c *Command) Signature() *shape.Signature { return c.def.Signature() }
func (c *Command) Usage() string               { return c.def.Usage() }

// Definition returns the alias definition
func (c *Command) Definition() *Definition { return c.def }

// Run installs the definition-time scope snapshot into a private copy of the
// registry, binds call arguments to parameters in declaration order and runs
// the body. Parameters without an argument are bound to nothing.
func (c *Command) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	if len(args.Positional) > len(c.def.Params) {
		return nil, nserrors.RuntimeError(
			fmt.Sprintf("%s takes %d arguments, got %d", c.def.Name, len(c.def.Params), len(args.Positional)), args.Span)
	}

	reg := ctx.Registry.Clone()
	for name, sc := range c.def.Scopes {
		reg.SetScope(name, sc)
	}

	child := ctx.Child()
	child.Registry = reg
	if c.def.Source != "" {
		child.Source = c.def.Source
	}
	for i, p := range c.def.Params {
		child.Vars[p] = args.Nth(i)
	}

	ctx.Logger.Debug("running alias %s with %d args", c.def.Name, len(args.Positional))
	return engine.RunBlock(child, c.def.Body, input)
}
