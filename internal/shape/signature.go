package shape

import (
	"fmt"
	"sort"
	"strings"
)

// PositionalKind distinguishes mandatory from optional positionals
type PositionalKind int

const (
	Mandatory PositionalKind = iota
	Optional
)

// NamedKind distinguishes flags without a value from flags carrying one
type NamedKind int

const (
	Switch NamedKind = iota
	MandatoryNamed
	OptionalNamed
)

// PositionalParam declares one positional parameter
type PositionalParam struct {
	Kind        PositionalKind
	Name        string
	Shape       SyntaxShape
	Description string
}

// RestParam declares the shape of arguments past the declared positionals
type RestParam struct {
	Shape       SyntaxShape
	Description string
}

// NamedParam declares a --flag, optionally carrying a value of Shape
type NamedParam struct {
	Kind        NamedKind
	Short       rune
	Shape       SyntaxShape
	Description string
}

// TakesValue reports whether the flag consumes the following argument.
func (n NamedParam) TakesValue() bool { return n.Kind != Switch }

// Signature is the declared calling convention of a command
type Signature struct {
	Name           string
	Usage          string
	Positional     []PositionalParam
	RestPositional *RestParam
	Named          map[string]NamedParam
}

// Build starts a signature for the named command.
func Build(name string) *Signature {
	return &Signature{Name: name, Named: make(map[string]NamedParam)}
}

func (s *Signature) Desc(usage string) *Signature {
	s.Usage = usage
	return s
}

func (s *Signature) Required(name string, shape SyntaxShape, desc string) *Signature {
	s.Positional = append(s.Positional, PositionalParam{Kind: Mandatory, Name: name, Shape: shape, Description: desc})
	return s
}

func (s *Signature) Optional(name string, shape SyntaxShape, desc string) *Signature {
	s.Positional = append(s.Positional, PositionalParam{Kind: Optional, Name: name, Shape: shape, Description: desc})
	return s
}

func (s *Signature) Rest(shape SyntaxShape, desc string) *Signature {
	s.RestPositional = &RestParam{Shape: shape, Description: desc}
	return s
}

// Switch declares a boolean flag. A zero short rune means no short form.
func (s *Signature) Switch(name, desc string, short rune) *Signature {
	s.Named[name] = NamedParam{Kind: Switch, Short: short, Description: desc}
	return s
}

func (s *Signature) Flag(name string, shape SyntaxShape, desc string, short rune) *Signature {
	s.Named[name] = NamedParam{Kind: OptionalNamed, Short: short, Shape: shape, Description: desc}
	return s
}

func (s *Signature) RequiredFlag(name string, shape SyntaxShape, desc string, short rune) *Signature {
	s.Named[name] = NamedParam{Kind: MandatoryNamed, Short: short, Shape: shape, Description: desc}
	return s
}

// PositionalShape returns the declared shape for argument i, falling back to
// the rest parameter past the declared positionals.
func (s *Signature) PositionalShape(i int) (SyntaxShape, bool) {
	if i < len(s.Positional) {
		return s.Positional[i].Shape, true
	}
	if s.RestPositional != nil {
		return s.RestPositional.Shape, true
	}
	return Any, false
}

// MandatoryCount returns the number of leading mandatory positionals.
func (s *Signature) MandatoryCount() int {
	n := 0
	for _, p := range s.Positional {
		if p.Kind == Mandatory {
			n++
		}
	}
	return n
}

func (s *Signature) NamedParam(name string) (NamedParam, bool) {
	p, ok := s.Named[name]
	return p, ok
}

// NamedByShort resolves a short flag to its long name.
func (s *Signature) NamedByShort(short rune) (string, NamedParam, bool) {
	for name, p := range s.Named {
		if p.Short != 0 && p.Short == short {
			return name, p, true
		}
	}
	return "", NamedParam{}, false
}

// NamedNames returns the declared flag names in sorted order.
func (s *Signature) NamedNames() []string {
	names := make([]string, 0, len(s.Named))
	for name := range s.Named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders a usage line such as "str from <rest:any> --decimals <integer>".
func (s *Signature) String() string {
	parts := []string{s.Name}
	for _, p := range s.Positional {
		if p.Kind == Mandatory {
			parts = append(parts, fmt.Sprintf("<%s:%s>", p.Name, p.Shape))
		} else {
			parts = append(parts, fmt.Sprintf("(%s:%s)", p.Name, p.Shape))
		}
	}
	if s.RestPositional != nil {
		parts = append(parts, fmt.Sprintf("...(%s)", s.RestPositional.Shape))
	}
	for _, name := range s.NamedNames() {
		p := s.Named[name]
		if p.TakesValue() {
			parts = append(parts, fmt.Sprintf("--%s <%s>", name, p.Shape))
		} else {
			parts = append(parts, "--"+name)
		}
	}
	return strings.Join(parts, " ")
}
