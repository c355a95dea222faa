package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/parser"
)

func newTestContext(t *testing.T) *engine.Context {
	t.Helper()
	reg := engine.NewRegistry()
	Register(reg)
	dir := t.TempDir()
	env := &engine.Env{Cwd: dir, Home: dir, HistoryPath: filepath.Join(dir, "history.txt")}
	return engine.NewContext(reg, env, &bytes.Buffer{}, nil)
}

func runSource(ctx *engine.Context, src string) ([]engine.Value, error) {
	block, err := parser.Parse(src, "", ctx.Registry)
	if err != nil {
		return nil, err
	}
	return engine.RunBlock(ctx, block, nil)
}

func mustRun(t *testing.T, ctx *engine.Context, src string) []engine.Value {
	t.Helper()
	out, err := runSource(ctx, src)
	if err != nil {
		t.Fatalf("%s: %v", src, err)
	}
	return out
}

func formatAll(values []engine.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = engine.Format(v)
	}
	return strings.Join(parts, " ")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestBuiltinPipelines(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"echo spreads tables", "echo [1 2] 3", "1 2 3"},
		{"echo expands ranges", "echo 3..1", "3 2 1"},
		{"each binds it", "echo 1 2 3 | each {= $it * 2}", "2 4 6"},
		{"range selects rows", "echo a b c d | range 1..2", "b c"},
		{"to json stream", "echo 1 2 | to json", "[1,2]"},
		{"to json single", "echo hi | to json", `"hi"`},
		{"str from decimals", "echo 3.456 2 | str from -d 2", "3.46 2.00"},
		{"str from plain", "echo 3.5 true | str from", "3.5 true"},
		{"str to-decimal", "echo '1.25' | str to-decimal", "1.25"},
		{"math product ints", "echo [1 2 3 4] | math product", "24"},
		{"math product decimals", "echo 1.5 2 | math product", "3"},
		{"math product empty", "math product", "0"},
		{"invocation in math", "= $(echo 2 3 | math product) + 1", "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustRun(t, newTestContext(t), tt.src)
			if got := formatAll(out); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestMathProductColumns(t *testing.T) {
	ctx := newTestContext(t)
	writeFile(t, ctx.Env.Cwd, "t.json", `[{"a": 2, "b": 1.5}, {"a": 3, "b": 2}]`)

	out := mustRun(t, ctx, "open t.json | math product")
	if got := formatAll(out); got != "{a: 6, b: 3}" {
		t.Errorf("Expected column products, got %q", got)
	}
}

func TestOpenFormats(t *testing.T) {
	ctx := newTestContext(t)
	dir := ctx.Env.Cwd
	writeFile(t, dir, "sample.url", "bread=baguette&cheese=comte&meat=ham&fruit=apple\n")
	writeFile(t, dir, "pkg.json", `{"name": "nushape", "tags": ["shell", "alias"]}`)
	writeFile(t, dir, "pkg.yaml", "name: nushape\nversion: 1\n")
	writeFile(t, dir, "notes.txt", "plain text")

	tests := []struct {
		src  string
		want string
	}{
		{"open sample.url | get bread", "baguette"},
		{"open pkg.json | get tags", "shell alias"},
		{"open pkg.yaml | get version", "1"},
		{"open notes.txt", "plain text"},
		{"open -r pkg.yaml", "name: nushape\nversion: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := formatAll(mustRun(t, ctx, tt.src)); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetOnRawText(t *testing.T) {
	ctx := newTestContext(t)
	writeFile(t, ctx.Env.Cwd, "sample.url", "bread=baguette")

	_, err := runSource(ctx, "open --raw sample.url | get bread")
	if err == nil || !strings.Contains(err.Error(), "Expected row or table") {
		t.Errorf("Expected row-or-table error, got %v", err)
	}
}

func TestCdAndPwd(t *testing.T) {
	ctx := newTestContext(t)
	home := ctx.Env.Home
	if err := os.Mkdir(filepath.Join(home, "src"), 0755); err != nil {
		t.Fatal(err)
	}

	mustRun(t, ctx, "cd src")
	if got := formatAll(mustRun(t, ctx, "pwd")); got != filepath.Join(home, "src") {
		t.Errorf("Expected cwd %s, got %s", filepath.Join(home, "src"), got)
	}

	mustRun(t, ctx, "cd ~")
	if ctx.Env.Cwd != home {
		t.Errorf("Expected ~ to resolve to home, got %s", ctx.Env.Cwd)
	}

	if _, err := runSource(ctx, "cd missing"); !nserrors.HasCode(err, nserrors.CodeRuntime) {
		t.Errorf("Expected runtime error for missing directory, got %v", err)
	}
}

func TestLs(t *testing.T) {
	ctx := newTestContext(t)
	writeFile(t, ctx.Env.Cwd, "b.txt", "bb")
	writeFile(t, ctx.Env.Cwd, "a.txt", "a")
	writeFile(t, ctx.Env.Cwd, "c.md", "c")

	out := mustRun(t, ctx, "ls *.txt | get name")
	if got := formatAll(out); got != "a.txt b.txt" {
		t.Errorf("Expected a.txt b.txt, got %q", got)
	}

	out = mustRun(t, ctx, "ls | get size")
	if len(out) != 3 {
		t.Errorf("Expected 3 entries, got %v", out)
	}
}

func TestHistory(t *testing.T) {
	ctx := newTestContext(t)
	writeFile(t, ctx.Env.Cwd, "history.txt", "echo 1\nls a b\n\npwd\n")

	out := mustRun(t, ctx, "history")
	if len(out) != 3 || out[1] != "ls a b" {
		t.Errorf("Expected three raw lines, got %v", out)
	}

	out = mustRun(t, ctx, "history -s")
	if len(out) != 2 {
		t.Fatalf("Expected the unparsable line to be skipped, got %v", out)
	}
	if _, ok := out[0].(*engine.BlockValue); !ok {
		t.Errorf("Expected block values, got %T", out[0])
	}
}

func TestHistoryMissingFile(t *testing.T) {
	ctx := newTestContext(t)
	_, err := runSource(ctx, "history")
	if err == nil || !strings.Contains(err.Error(), "Could not open history") {
		t.Errorf("Expected missing history error, got %v", err)
	}
}
