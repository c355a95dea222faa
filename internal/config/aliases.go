package config

import (
	"sort"
	"strings"

	"github.com/nushape/nushape/internal/lexer"
)

// StripSaveFlag removes --save and -s from an alias declaration. Only words
// outside any bracketed group are removed, so a body like { ls -s } is kept.
func StripSaveFlag(decl string) string {
	type cut struct{ start, end int }
	var cuts []cut
	depth := 0

	for _, tok := range lexer.Tokenize(decl, "") {
		switch tok.Type {
		case lexer.TokenLBrace, lexer.TokenLBracket, lexer.TokenLParen, lexer.TokenInvocationStart:
			depth++
		case lexer.TokenRBrace, lexer.TokenRBracket, lexer.TokenRParen:
			depth--
		case lexer.TokenWord:
			if depth == 0 && (tok.Literal == "--save" || tok.Literal == "-s") {
				start := tok.Span.Start.Offset
				for start > 0 && (decl[start-1] == ' ' || decl[start-1] == '\t') {
					start--
				}
				cuts = append(cuts, cut{start, tok.Span.End.Offset})
			}
		}
	}

	var b strings.Builder
	last := 0
	for _, c := range cuts {
		b.WriteString(decl[last:c.start])
		last = c.end
	}
	b.WriteString(decl[last:])
	return strings.TrimSpace(b.String())
}

// AliasName returns the alias an "alias <name> ..." startup line declares
func AliasName(line string) (string, bool) {
	toks := lexer.Tokenize(StripSaveFlag(line), "")
	if len(toks) < 2 || toks[0].Type != lexer.TokenWord || toks[0].Literal != "alias" {
		return "", false
	}
	if toks[1].Type != lexer.TokenWord && toks[1].Type != lexer.TokenString {
		return "", false
	}
	return toks[1].Literal, true
}

// SetAlias replaces the startup line declaring name, or appends one
func (c *Config) SetAlias(name, decl string) {
	decl = StripSaveFlag(decl)
	for i, line := range c.Startup {
		if n, ok := AliasName(line); ok && n == name {
			c.Startup[i] = decl
			return
		}
	}
	c.Startup = append(c.Startup, decl)
}

// Aliases returns the names of aliases declared in startup, sorted
func (c *Config) Aliases() []string {
	var names []string
	for _, line := range c.Startup {
		if n, ok := AliasName(line); ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// SaveAlias persists an alias declaration into the startup list
func (s *Store) SaveAlias(name, decl string) error {
	return s.Update(func(cfg *Config) error {
		cfg.SetAlias(name, decl)
		return nil
	})
}
