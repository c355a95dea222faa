package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/shape"
)

// Ls lists directory entries as rows
type Ls struct{}

func (l *Ls) Name() string  { return "ls" }
func (l *Ls) Usage() string { return "View the contents of the current or given path." }
func (l *Ls) Signature() *shape.Signature {
	return shape.Build("ls").Desc(l.Usage()).Optional("path", shape.Pattern, "a path to get the directory contents from")
}

func (l *Ls) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	pattern := "*"
	if p, ok := engine.AsString(args.Nth(0)); ok && p != "" {
		pattern = p
	}

	resolved := ctx.Env.Resolve(pattern)
	if info, err := os.Stat(resolved); err == nil && info.IsDir() {
		resolved = filepath.Join(resolved, "*")
	}

	matches, err := filepath.Glob(resolved)
	if err != nil {
		return nil, nserrors.RuntimeError(fmt.Sprintf("invalid pattern '%s'", pattern), args.Span)
	}
	if len(matches) == 0 && !strings.ContainsAny(pattern, "*?[") {
		return nil, nserrors.RuntimeError(fmt.Sprintf("No such file or directory: %s", pattern), args.Span)
	}
	sort.Strings(matches)

	out := make([]engine.Value, 0, len(matches))
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil {
			continue
		}
		row := engine.NewRow()
		row.Set("name", displayName(ctx.Env.Cwd, m))
		row.Set("type", fileType(info))
		row.Set("size", info.Size())
		out = append(out, row)
	}
	return out, nil
}

func displayName(cwd, path string) string {
	if rel, err := filepath.Rel(cwd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func fileType(info os.FileInfo) string {
	switch {
	case info.IsDir():
		return "Dir"
	case info.Mode()&os.ModeSymlink != 0:
		return "Symlink"
	}
	return "File"
}

// Cd changes the session working directory
type Cd struct{}

func (c *Cd) Name() string  { return "cd" }
func (c *Cd) Usage() string { return "Change to a new path." }
func (c *Cd) Signature() *shape.Signature {
	return shape.Build("cd").Desc(c.Usage()).Optional("directory", shape.Path, "the directory to change to")
}

func (c *Cd) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	target := ctx.Env.Home
	if p, ok := engine.AsString(args.Nth(0)); ok && p != "" {
		target = ctx.Env.Resolve(p)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, nserrors.RuntimeError(fmt.Sprintf("Cannot change to directory: %v", err), args.Span)
	}
	if !info.IsDir() {
		return nil, nserrors.RuntimeError(fmt.Sprintf("Cannot change to directory: %s is not a directory", target), args.Span)
	}

	ctx.Env.Cwd = target
	return nil, nil
}

// Pwd outputs the working directory
type Pwd struct{}

func (p *Pwd) Name() string                { return "pwd" }
func (p *Pwd) Usage() string               { return "Output the current working directory." }
func (p *Pwd) Signature() *shape.Signature { return shape.Build("pwd").Desc(p.Usage()) }

func (p *Pwd) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	return []engine.Value{ctx.Env.Cwd}, nil
}

// Open loads a file, converting known formats to structured values
type Open struct{}

func (o *Open) Name() string { return "open" }
func (o *Open) Usage() string {
	return "Load a file into a cell, convert to table if possible (avoid by appending '--raw')."
}
func (o *Open) Signature() *shape.Signature {
	return shape.Build("open").Desc(o.Usage()).
		Required("path", shape.Path, "the file path to load values from").
		Switch("raw", "load content as a string instead of a table", 'r')
}

func (o *Open) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	name, ok := engine.AsString(args.Nth(0))
	if !ok {
		return nil, typeError(args, "path", args.Nth(0))
	}

	path := ctx.Env.Resolve(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nserrors.RuntimeError(fmt.Sprintf("Cannot open %s: %v", name, err), args.Span)
	}

	if args.Switches["raw"] {
		return []engine.Value{string(data)}, nil
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	reader, known := readers[ext]
	if !known {
		return []engine.Value{string(data)}, nil
	}

	v, err := reader(data)
	if err != nil {
		return nil, nserrors.RuntimeError(fmt.Sprintf("Could not parse %s as %s: %v", name, ext, err), args.Span)
	}
	return engine.Spread(v), nil
}

// readers convert file contents by extension
var readers = map[string]func([]byte) (engine.Value, error){
	"json": readJSON,
	"yaml": readYAML,
	"yml":  readYAML,
	"url":  readURL,
}

func readJSON(data []byte) (engine.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return engine.FromNative(v), nil
}

func readYAML(data []byte) (engine.Value, error) {
	var v interface{}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return engine.FromNative(v), nil
}

// readURL decodes url-encoded key=value pairs into a row
func readURL(data []byte) (engine.Value, error) {
	values, err := url.ParseQuery(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := engine.NewRow()
	for _, k := range keys {
		vs := values[k]
		if len(vs) == 1 {
			row.Set(k, vs[0])
			continue
		}
		list := make([]engine.Value, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		row.Set(k, list)
	}
	return row, nil
}
