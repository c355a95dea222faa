// Package commands provides the builtin shell commands.
package commands

import (
	"fmt"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/engine"
)

// Builtins returns a fresh instance of every builtin command
func Builtins() []engine.Command {
	return []engine.Command{
		&Echo{},
		&Each{},
		&Range{},
		&Get{},
		&ToJSON{},
		&StrFrom{},
		&StrToDecimal{},
		&MathProduct{},
		&Ls{},
		&Cd{},
		&Pwd{},
		&Open{},
		&History{},
	}
}

// Register adds every builtin to reg
func Register(reg *engine.Registry) {
	for _, cmd := range Builtins() {
		reg.Register(cmd)
	}
}

func typeError(args *engine.CallArgs, expected string, got engine.Value) error {
	return nserrors.RuntimeError(
		fmt.Sprintf("%s: expected %s, found %s", args.Name, expected, engine.TypeName(got)), args.Span)
}
