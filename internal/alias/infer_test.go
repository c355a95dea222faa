package alias

import (
	"strings"
	"testing"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/hir"
	"github.com/nushape/nushape/internal/parser"
	"github.com/nushape/nushape/internal/position"
	"github.com/nushape/nushape/internal/shape"
)

type stubCommand struct {
	sig *shape.Signature
}

func (s *stubCommand) Name() string                { return s.sig.Name }
func (s *stubCommand) Signature() *shape.Signature { return s.sig }
func (s *stubCommand) Usage() string               { return "" }

func (s *stubCommand) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	return input, nil
}

func newCatalogue() *engine.Registry {
	reg := engine.NewRegistry()
	for _, sig := range []*shape.Signature{
		shape.Build("echo").Rest(shape.Any, "values"),
		shape.Build("ls").Optional("pattern", shape.Pattern, "glob"),
		shape.Build("cd").Optional("directory", shape.Path, "target"),
		shape.Build("each").Required("block", shape.Block, "body"),
		shape.Build("range").Required("rows", shape.Range, "rows"),
		shape.Build("str from").Flag("decimals", shape.Int, "digits", 'd'),
		shape.Build("str find").Required("pattern", shape.String, "text"),
		shape.Build("str to-decimal"),
		shape.Build("to json").Switch("pretty", "indent", 'p'),
	} {
		reg.Register(&stubCommand{sig: sig})
	}
	return reg
}

func parseBody(t *testing.T, reg *engine.Registry, src string) *hir.Block {
	t.Helper()
	block, err := parser.Parse(src, "", reg)
	if err != nil {
		t.Fatalf("Parse %q: %v", src, err)
	}
	return block
}

func some(s shape.SyntaxShape) finding { return finding{shape: s, hasShape: true} }

func TestCheckMerge(t *testing.T) {
	none := finding{}

	tests := []struct {
		name     string
		existing *finding
		next     finding
		want     *finding
		conflict bool
	}{
		{"absent + none", nil, none, &none, false},
		{"absent + shape", nil, some(shape.Int), ptr(some(shape.Int)), false},
		{"none + none", &none, none, &none, false},
		{"none + shape", &none, some(shape.Path), ptr(some(shape.Path)), false},
		{"any + none", ptr(some(shape.Any)), none, ptr(some(shape.Any)), false},
		{"any + shape", ptr(some(shape.Any)), some(shape.Int), ptr(some(shape.Int)), false},
		{"any + any", ptr(some(shape.Any)), some(shape.Any), ptr(some(shape.Any)), false},
		{"shape + none", ptr(some(shape.Int)), none, ptr(some(shape.Int)), false},
		{"shape + same", ptr(some(shape.Int)), some(shape.Int), ptr(some(shape.Int)), false},
		{"shape + any", ptr(some(shape.Int)), some(shape.Any), ptr(some(shape.Int)), false},
		{"shape + different", ptr(some(shape.Int)), some(shape.String), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := newBlockInfo()
			if tt.existing != nil {
				existing.shapes["x"] = *tt.existing
			}
			next := newBlockInfo()
			next.shapes["x"] = tt.next

			err := checkMerge(&existing, next)
			if tt.conflict {
				if !nserrors.IsTypeConflict(err) {
					t.Fatalf("Expected type conflict, got %v", err)
				}
				if v, _ := nserrors.Variable(err); v != "x" {
					t.Errorf("Expected conflict on x, got %q", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			got := existing.shapes["x"]
			if got.hasShape != tt.want.hasShape || got.shape != tt.want.shape {
				t.Errorf("Expected %+v, got %+v", *tt.want, got)
			}
		})
	}
}

func ptr(f finding) *finding { return &f }

func TestCheckMergeConflictSpan(t *testing.T) {
	first := position.Span{Start: position.Position{Line: 1, Column: 1, Offset: 0}, End: position.Position{Line: 1, Column: 3, Offset: 2}}
	second := position.Span{Start: position.Position{Line: 1, Column: 9, Offset: 8}, End: position.Position{Line: 1, Column: 11, Offset: 10}}

	existing := newBlockInfo()
	existing.shapes["a"] = finding{span: first, shape: shape.Int, hasShape: true}
	next := newBlockInfo()
	next.shapes["a"] = finding{span: second, shape: shape.Path, hasShape: true}

	err := checkMerge(&existing, next)
	var se *nserrors.StandardError
	if !asStandard(err, &se) {
		t.Fatalf("Expected StandardError, got %v", err)
	}
	if se.Span != second {
		t.Errorf("Expected conflict at the new finding %s, got %s", second, se.Span)
	}
}

func asStandard(err error, target **nserrors.StandardError) bool {
	se, ok := err.(*nserrors.StandardError)
	if ok {
		*target = se
	}
	return ok
}

func TestCheckMergeScopesFirstWriterWins(t *testing.T) {
	a := engine.NewScopedCommand(&stubCommand{sig: shape.Build("ls")})
	b := engine.NewScopedCommand(&stubCommand{sig: shape.Build("ls")})

	existing := newBlockInfo()
	existing.scopes["ls"] = a
	next := newBlockInfo()
	next.scopes["ls"] = b
	next.scopes["echo"] = b

	if err := checkMerge(&existing, next); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if existing.scopes["ls"] != a {
		t.Error("Expected the first ls handle to be kept")
	}
	if existing.scopes["echo"] != b {
		t.Error("Expected new echo handle to be inserted")
	}
}

func TestApplyShapeFillsGapsOnly(t *testing.T) {
	info := newBlockInfo()
	info.shapes["a"] = finding{}
	info.shapes["b"] = some(shape.Int)

	applyShape(&info, shape.Path)

	if got := info.shapes["a"]; !got.hasShape || got.shape != shape.Path {
		t.Errorf("Expected a to take path, got %+v", got)
	}
	if got := info.shapes["b"]; got.shape != shape.Int {
		t.Errorf("Expected b to keep integer, got %+v", got)
	}
}

func TestInferShapes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		params []string
		want   map[string]shape.SyntaxShape
		scopes int
	}{
		{
			name:   "no parameters",
			body:   "echo 'Hello!'",
			params: nil,
			want:   map[string]shape.SyntaxShape{},
			scopes: 1,
		},
		{
			name:   "unused parameters are any",
			body:   "echo 1 | to json",
			params: []string{"a", "b"},
			want:   map[string]shape.SyntaxShape{"a": shape.Any, "b": shape.Any},
			scopes: 2,
		},
		{
			name:   "no commands leaves every parameter any",
			body:   "= 1 + 2",
			params: []string{"a", "b"},
			want:   map[string]shape.SyntaxShape{"a": shape.Any, "b": shape.Any},
			scopes: 0,
		},
		{
			name:   "sole positional",
			body:   "ls $x",
			params: []string{"x"},
			want:   map[string]shape.SyntaxShape{"x": shape.Pattern},
			scopes: 1,
		},
		{
			name:   "rest positional",
			body:   "echo $a $b",
			params: []string{"a", "b"},
			want:   map[string]shape.SyntaxShape{"a": shape.Any, "b": shape.Any},
			scopes: 1,
		},
		{
			name:   "named flag",
			body:   "echo $num | str from -d $digits",
			params: []string{"num", "digits"},
			want:   map[string]shape.SyntaxShape{"num": shape.Any, "digits": shape.Int},
			scopes: 2,
		},
		{
			name:   "consistent use is idempotent",
			body:   "cd $dir; cd $dir",
			params: []string{"dir"},
			want:   map[string]shape.SyntaxShape{"dir": shape.Path},
			scopes: 1,
		},
		{
			name:   "any then concrete",
			body:   "echo $dir; cd $dir",
			params: []string{"dir"},
			want:   map[string]shape.SyntaxShape{"dir": shape.Path},
			scopes: 2,
		},
		{
			name:   "concrete then any",
			body:   "cd $dir; echo $dir",
			params: []string{"dir"},
			want:   map[string]shape.SyntaxShape{"dir": shape.Path},
			scopes: 2,
		},
		{
			name:   "nested block keeps shape over later bare use",
			body:   "each { str from -d $d }; = $d + 1",
			params: []string{"d"},
			want:   map[string]shape.SyntaxShape{"d": shape.Int},
			scopes: 2,
		},
		{
			name:   "invocation inside block argument",
			body:   "echo $nums | each {= $(str from -d $digits)}",
			params: []string{"nums", "digits"},
			want:   map[string]shape.SyntaxShape{"nums": shape.Any, "digits": shape.Int},
			scopes: 3,
		},
		{
			name:   "binary inside invocation",
			body:   "echo $num | str from -d $(= $digits + 1)",
			params: []string{"num", "digits"},
			want:   map[string]shape.SyntaxShape{"num": shape.Any, "digits": shape.Int},
			scopes: 2,
		},
		{
			name:   "it is not a parameter",
			body:   "each { cd $it }",
			params: []string{"x"},
			want:   map[string]shape.SyntaxShape{"x": shape.Any},
			scopes: 2,
		},
		{
			name:   "dynamic commands are skipped",
			body:   "git checkout $branch",
			params: []string{"branch"},
			want:   map[string]shape.SyntaxShape{"branch": shape.Any},
			scopes: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newCatalogue()
			inf, err := Infer(parseBody(t, reg, tt.body), tt.params, reg)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if len(inf.Shapes) != len(tt.want) {
				t.Errorf("Expected %d shapes, got %v", len(tt.want), inf.Shapes)
			}
			if len(inf.Scopes) != tt.scopes {
				t.Errorf("Expected %d scopes, got %v", tt.scopes, inf.Scopes)
			}
			for name, want := range tt.want {
				if got, ok := inf.Shapes[name]; !ok || got != want {
					t.Errorf("Expected %s: %s, got %s (present=%v)", name, want, got, ok)
				}
			}
		})
	}
}

func TestInferConflicts(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		params   []string
		variable string
	}{
		{"two calls", "cd $x; ls $x", []string{"x"}, "x"},
		{"round-to pinned to string", "echo $num | str from -d $digits | str find $digits", []string{"num", "digits"}, "digits"},
		{"nested block", "echo 1.1 2 3 | each { str from -d $a } | range $a", []string{"a"}, "a"},
		{"deep invocation", "each { cd $(str from -d $p) ; cd $p }", []string{"p"}, "p"},
		{"binary operands", "= $(cd $v) + $(ls $v)", []string{"v"}, "v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newCatalogue()
			_, err := Infer(parseBody(t, reg, tt.body), tt.params, reg)
			if !nserrors.IsTypeConflict(err) {
				t.Fatalf("Expected type conflict, got %v", err)
			}
			if v, _ := nserrors.Variable(err); v != tt.variable {
				t.Errorf("Expected conflict on %s, got %s", tt.variable, v)
			}
			if !strings.Contains(err.Error(), "alias") {
				t.Errorf("Expected error to mention alias, got %v", err)
			}
		})
	}
}

func TestInferScopes(t *testing.T) {
	reg := newCatalogue()
	body := parseBody(t, reg, "echo 'Hello!' | to json; each { echo 2 }")

	echoHandle, _ := reg.GetScope("echo")
	inf, err := Infer(body, nil, reg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(inf.Scopes) != 3 {
		t.Errorf("Expected scopes for echo, to json and each, got %v", inf.Scopes)
	}
	if inf.Scopes["echo"] != echoHandle {
		t.Error("Expected echo to resolve to its registered handle")
	}
}

// shiftingCatalogue hands out a new handle on every scope lookup
type shiftingCatalogue struct {
	*engine.Registry
	handed []*engine.ScopedCommand
}

func (s *shiftingCatalogue) GetScope(name string) (*engine.ScopedCommand, bool) {
	cmd, ok := s.Registry.Lookup(name)
	if !ok {
		return nil, false
	}
	sc := engine.NewScopedCommand(cmd)
	s.handed = append(s.handed, sc)
	return sc, true
}

func TestInferScopesFirstWriteWins(t *testing.T) {
	reg := newCatalogue()
	body := parseBody(t, reg, "each { echo 1 }; echo 2; each { echo 3 }")

	cat := &shiftingCatalogue{Registry: reg}
	inf, err := Infer(body, nil, cat)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var firstEcho *engine.ScopedCommand
	for _, sc := range cat.handed {
		if sc.Command().Name() == "echo" {
			firstEcho = sc
			break
		}
	}
	if firstEcho == nil || inf.Scopes["echo"] != firstEcho {
		t.Errorf("Expected the first echo resolution to win")
	}
}

func TestInferInvariantViolationsPanic(t *testing.T) {
	reg := newCatalogue()

	call := func(name string, positional []hir.Expression, named []hir.NamedArgument) *hir.Block {
		cmd := &hir.InternalCommand{Name: name, Args: hir.Call{Positional: positional, Named: named}}
		return &hir.Block{Pipelines: []*hir.Pipeline{{Commands: []hir.ClassifiedCommand{cmd}}}}
	}
	lit := &hir.Literal{Kind: hir.LiteralInt, Raw: "1", Value: int64(1)}

	tests := []struct {
		name  string
		block *hir.Block
	}{
		{"unknown command", call("frobnicate", nil, nil)},
		{"excess positional without rest", call("cd", []hir.Expression{lit, lit}, nil)},
		{"undeclared flag", call("str from", nil, []hir.NamedArgument{
			{Name: "width", Value: hir.NamedValue{Kind: hir.WithValue, Expr: lit}},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Expected panic")
				}
			}()
			Infer(tt.block, nil, reg)
		})
	}
}
