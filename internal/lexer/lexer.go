// Package lexer splits shell input into tokens. Shell words are whitespace
// delimited, so most text ends up in Word tokens and the parser decides what a
// word means from the shape expected at its position.
package lexer

import (
	"fmt"
	"strings"

	"github.com/nushape/nushape/internal/position"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenNewline
	TokenWord
	TokenString
	TokenVariable
	TokenInvocationStart
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenLParen
	TokenRParen
	TokenPipe
	TokenSemicolon
)

var tokenNames = map[TokenType]string{
	TokenEOF:             "EOF",
	TokenError:           "ERROR",
	TokenNewline:         "NEWLINE",
	TokenWord:            "WORD",
	TokenString:          "STRING",
	TokenVariable:        "VARIABLE",
	TokenInvocationStart: "$(",
	TokenLBrace:          "{",
	TokenRBrace:          "}",
	TokenLBracket:        "[",
	TokenRBracket:        "]",
	TokenLParen:          "(",
	TokenRParen:          ")",
	TokenPipe:            "|",
	TokenSemicolon:       ";",
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

// Token represents a lexical token with position information.
// For TokenString, Literal holds the unquoted text; for TokenVariable it holds
// the name without the leading '$'.
type Token struct {
	Type    TokenType
	Literal string
	Span    position.Span
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, At: %s}", t.Type, t.Literal, t.Span.Start)
}

// Lexer holds scanning state over one input
type Lexer struct {
	input    string
	filename string
	pos      int  // index of ch
	ch       byte // current char, 0 at EOF
	line     int
	column   int
}

// New creates a new lexer for interactive input
func New(input string) *Lexer {
	return NewWithFilename(input, "")
}

// NewWithFilename creates a new lexer with filename for error reporting
func NewWithFilename(input, filename string) *Lexer {
	l := &Lexer{input: input, filename: filename, pos: -1, line: 1}
	l.readChar()
	return l
}

// readChar advances to the next character, tracking line and column
func (l *Lexer) readChar() {
	if l.pos >= 0 && l.pos < len(l.input) && l.input[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	if l.pos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		return
	}
	l.ch = l.input[l.pos]
}

func (l *Lexer) peekChar() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) current() position.Position {
	return position.Position{Filename: l.filename, Line: l.line, Column: l.column, Offset: l.pos}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// isDelimiter reports characters that always end a word
func isDelimiter(ch byte) bool {
	switch ch {
	case 0, ' ', '\t', '\r', '\n', '|', ';', '{', '}', '[', ']', '(', ')':
		return true
	}
	return false
}

func isVariableChar(ch byte) bool {
	return ch == '_' || ch == '-' || ch == '.' ||
		('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ('0' <= ch && ch <= '9')
}

// NextToken scans and returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	if l.ch == '#' {
		l.skipComment()
	}

	start := l.current()

	switch l.ch {
	case 0:
		return l.finish(TokenEOF, "", start)
	case '\n':
		l.readChar()
		return l.finish(TokenNewline, "\n", start)
	case '|':
		l.readChar()
		return l.finish(TokenPipe, "|", start)
	case ';':
		l.readChar()
		return l.finish(TokenSemicolon, ";", start)
	case '{':
		l.readChar()
		return l.finish(TokenLBrace, "{", start)
	case '}':
		l.readChar()
		return l.finish(TokenRBrace, "}", start)
	case '[':
		l.readChar()
		return l.finish(TokenLBracket, "[", start)
	case ']':
		l.readChar()
		return l.finish(TokenRBracket, "]", start)
	case '(':
		l.readChar()
		return l.finish(TokenLParen, "(", start)
	case ')':
		l.readChar()
		return l.finish(TokenRParen, ")", start)
	case '\'', '"':
		return l.readString(start)
	case '$':
		if l.peekChar() == '(' {
			l.readChar()
			l.readChar()
			return l.finish(TokenInvocationStart, "$(", start)
		}
		if isVariableChar(l.peekChar()) {
			l.readChar()
			begin := l.pos
			for isVariableChar(l.ch) {
				l.readChar()
			}
			name := strings.TrimRight(l.input[begin:l.pos], ".")
			return l.finish(TokenVariable, name, start)
		}
	}

	begin := l.pos
	for !isDelimiter(l.ch) {
		l.readChar()
	}
	return l.finish(TokenWord, l.input[begin:l.pos], start)
}

// readString reads a quoted string. Double quotes honour \" \\ \n and \t.
func (l *Lexer) readString(start position.Position) Token {
	quote := l.ch
	l.readChar()

	var b strings.Builder
	for l.ch != quote {
		if l.ch == 0 {
			return l.finish(TokenError, "unterminated string", start)
		}
		if quote == '"' && l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 0:
				return l.finish(TokenError, "unterminated string", start)
			default:
				b.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar()
	return l.finish(TokenString, b.String(), start)
}

func (l *Lexer) finish(tt TokenType, literal string, start position.Position) Token {
	return Token{
		Type:    tt,
		Literal: literal,
		Span:    position.Span{Start: start, End: l.current()},
	}
}

// Tokenize scans the whole input. The final token is always EOF or an error.
func Tokenize(input, filename string) []Token {
	l := NewWithFilename(input, filename)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}
