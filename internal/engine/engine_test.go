package engine

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/parser"
	"github.com/nushape/nushape/internal/position"
	"github.com/nushape/nushape/internal/shape"
)

type echoCommand struct{ name string }

func (e *echoCommand) Name() string                { return e.name }
func (e *echoCommand) Usage() string               { return "echo values" }
func (e *echoCommand) Signature() *shape.Signature { return shape.Build(e.name).Rest(shape.Any, "values") }

func (e *echoCommand) Run(ctx *Context, args *CallArgs, input []Value) ([]Value, error) {
	var out []Value
	for _, v := range args.Positional {
		out = append(out, Spread(v)...)
	}
	return out, nil
}

type countCommand struct{}

func (countCommand) Name() string                { return "count" }
func (countCommand) Usage() string               { return "count rows" }
func (countCommand) Signature() *shape.Signature { return shape.Build("count") }

func (countCommand) Run(ctx *Context, args *CallArgs, input []Value) ([]Value, error) {
	return []Value{int64(len(input))}, nil
}

func newTestContext() *Context {
	reg := NewRegistry()
	reg.Register(&echoCommand{name: "echo"})
	reg.Register(countCommand{})
	return NewContext(reg, &Env{Cwd: "/work", Home: "/home/user"}, &bytes.Buffer{}, nil)
}

func run(t *testing.T, ctx *Context, src string) []Value {
	t.Helper()
	block, err := parser.Parse(src, "", ctx.Registry)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	out, err := RunBlock(ctx, block, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return out
}

func TestRegistryScopes(t *testing.T) {
	reg := NewRegistry()
	first := reg.Register(&echoCommand{name: "echo"})

	clone := reg.Clone()
	second := reg.Register(&echoCommand{name: "echo"})

	if first == second || first.ID() == second.ID() {
		t.Fatal("Expected re-registration to create a new handle")
	}

	if sc, _ := clone.GetScope("echo"); sc != first {
		t.Error("Expected clone to keep the original handle")
	}
	if sc, _ := reg.GetScope("echo"); sc != second {
		t.Error("Expected registry to resolve to the new handle")
	}

	clone.SetScope("echo", second)
	if sc, _ := clone.GetScope("echo"); sc != second {
		t.Error("Expected SetScope to rebind the clone")
	}

	if sig, ok := reg.Get("echo"); !ok || sig.RestPositional == nil {
		t.Errorf("Expected echo signature with rest, got %v", sig)
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "echo" {
		t.Errorf("Expected [echo], got %v", names)
	}
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"= 1 + 2 * 3", "7"},
		{"= 7 / 2", "3.5"},
		{"= 8 / 2", "4"},
		{"= 1.5 + 1", "2.5"},
		{"= 2 > 1", "true"},
		{"= 'a' + 'b'", "ab"},
		{"= abc == abc", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			out := run(t, newTestContext(), tt.src)
			if len(out) != 1 || Format(out[0]) != tt.want {
				t.Errorf("Expected %s, got %v", tt.want, out)
			}
		})
	}
}

func TestEvalVariablesAndPaths(t *testing.T) {
	ctx := newTestContext()
	row := NewRow()
	row.Set("name", "nushape")
	ctx.Vars["pkg"] = row
	ctx.Vars["n"] = int64(2)

	out := run(t, ctx, "echo $pkg.name $n")
	if len(out) != 2 || out[0] != "nushape" || out[1] != int64(2) {
		t.Errorf("Expected [nushape 2], got %v", out)
	}
}

func TestEvalPipelineAndInvocation(t *testing.T) {
	ctx := newTestContext()

	out := run(t, ctx, "echo 1 2 3 | count")
	if len(out) != 1 || out[0] != int64(3) {
		t.Errorf("Expected 3, got %v", out)
	}

	out = run(t, ctx, "= $(echo 1 2 | count) + 1")
	if len(out) != 1 || out[0] != int64(3) {
		t.Errorf("Expected 3, got %v", out)
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"unknown variable", "echo $missing", nserrors.CodeUnknownVariable},
		{"external command", "git status", nserrors.CodeCommandNotFound},
		{"member of string", "echo $s.name", nserrors.CodeRuntime},
		{"division by zero", "= 1 / 0", nserrors.CodeRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext()
			ctx.Vars["s"] = "text"

			block, err := parser.Parse(tt.src, "", ctx.Registry)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			_, err = RunBlock(ctx, block, nil)
			if !nserrors.HasCode(err, tt.code) {
				t.Errorf("Expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestMemberOnString(t *testing.T) {
	_, err := Member("raw text", "bread", position.Span{})
	if err == nil || !strings.Contains(err.Error(), "Expected row or table") {
		t.Errorf("Expected row-or-table error, got %v", err)
	}
}

func TestMarshalValue(t *testing.T) {
	row := NewRow()
	row.Set("b", int64(1))
	row.Set("a", []Value{"x", 2.5})

	data, err := MarshalValue([]Value{row, true})
	if err != nil {
		t.Fatalf("MarshalValue: %v", err)
	}
	if got := string(data); got != `[{"b":1,"a":["x",2.5]},true]` {
		t.Errorf("Unexpected JSON %s", got)
	}
}

func TestEnvResolve(t *testing.T) {
	env := &Env{Cwd: "/work", Home: "/home/user"}

	tests := map[string]string{
		"~":        "/home/user",
		"~/src":    "/home/user/src",
		"data.txt": "/work/data.txt",
		"/etc/../": "/",
		"...":      "/",
		"a/b/...":  "/work",
		"~/....":   "/",
	}
	for in, want := range tests {
		if got := env.Resolve(in); got != want {
			t.Errorf("Resolve(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestExpandNDots(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("expansion uses the platform separator")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"../hola", "../hola"},
		{"a...b", "a...b"},
		{"a..b", "a..b"},
		{"a.b", "a.b"},
		{"...", "../.."},
		{"....", "../../.."},
		{".../", "../../"},
		{"a...b/./c..d/../e.f/....//.", "a...b/./c..d/../e.f/../../..//."},
		{"ls .../ garbage.*[", "ls ../../ garbage.*["},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandNDots(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
