package engine

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nushape/nushape/internal/cli"
	"github.com/nushape/nushape/internal/position"
)

// Env is the mutable shell environment shared by every context of a session
type Env struct {
	Cwd         string
	Home        string
	HistoryPath string
}

// Resolve expands a leading ~ and n-dot components ("..." is "../..") and
// makes p absolute against the working directory
func (e *Env) Resolve(p string) string {
	if p == "~" {
		return e.Home
	}
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		p = filepath.Join(e.Home, p[2:])
	}
	p = ExpandNDots(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(e.Cwd, p)
	}
	return filepath.Clean(p)
}

func isSeparator(c byte) bool {
	return c == '/' || c == filepath.Separator
}

// ExpandNDots rewrites every run of n > 2 dots that ends at a separator or
// the end of p into n-1 parent references. Dots followed by any other
// character are kept.
func ExpandNDots(p string) string {
	if !strings.Contains(p, "...") {
		return p
	}

	var b strings.Builder
	dots := 0
	flush := func() {
		if dots > 1 {
			b.WriteString(strings.Repeat(".."+string(filepath.Separator), dots-1)[:3*(dots-1)-1])
		} else {
			b.WriteString(strings.Repeat(".", dots))
		}
		dots = 0
	}

	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '.':
			dots++
			continue
		case isSeparator(c):
			flush()
		default:
			b.WriteString(strings.Repeat(".", dots))
			dots = 0
		}
		b.WriteByte(c)
	}
	flush()
	return b.String()
}

// Context carries everything a command needs while it runs
type Context struct {
	Registry *Registry
	Vars     map[string]Value
	It       Value
	HasIt    bool
	Env      *Env
	Out      io.Writer
	Logger   *cli.Logger

	// Source is the text the current statement was parsed from; spans index into it.
	Source string
}

// NewContext creates a top-level context
func NewContext(reg *Registry, env *Env, out io.Writer, logger *cli.Logger) *Context {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = cli.NewLogger(false, false)
	}
	return &Context{
		Registry: reg,
		Vars:     make(map[string]Value),
		Env:      env,
		Out:      out,
		Logger:   logger,
	}
}

// Child returns a context with a private copy of the variables
func (c *Context) Child() *Context {
	child := *c
	child.Vars = make(map[string]Value, len(c.Vars))
	for k, v := range c.Vars {
		child.Vars[k] = v
	}
	return &child
}

// WithIt returns a child context whose $it is v
func (c *Context) WithIt(v Value) *Context {
	child := c.Child()
	child.It = v
	child.HasIt = true
	return child
}

// SourceText returns the source covered by span, or "" when unavailable
func (c *Context) SourceText(span position.Span) string {
	start, end := span.Start.Offset, span.End.Offset
	if !span.IsValid() || start < 0 || end > len(c.Source) || start > end {
		return ""
	}
	return c.Source[start:end]
}
