package lexer

import (
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `alias round-to [num digits] { echo $num | str from -d $digits }`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenWord, "alias"},
		{TokenWord, "round-to"},
		{TokenLBracket, "["},
		{TokenWord, "num"},
		{TokenWord, "digits"},
		{TokenRBracket, "]"},
		{TokenLBrace, "{"},
		{TokenWord, "echo"},
		{TokenVariable, "num"},
		{TokenPipe, "|"},
		{TokenWord, "str"},
		{TokenWord, "from"},
		{TokenWord, "-d"},
		{TokenVariable, "digits"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestInvocationAndStrings(t *testing.T) {
	tokens := Tokenize(`each {= $(str from -d $digits) + 1} | echo 'Hello!' "a\"b"`, "")

	want := []TokenType{
		TokenWord, TokenLBrace, TokenWord, TokenInvocationStart, TokenWord, TokenWord, TokenWord,
		TokenVariable, TokenRParen, TokenWord, TokenWord, TokenRBrace, TokenPipe, TokenWord,
		TokenString, TokenString, TokenEOF,
	}

	if len(tokens) != len(want) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}

	for i, tt := range want {
		if tokens[i].Type != tt {
			t.Errorf("token %d: expected %s, got %s (%q)", i, tt, tokens[i].Type, tokens[i].Literal)
		}
	}

	if tokens[14].Literal != "Hello!" {
		t.Errorf("Expected unquoted 'Hello!', got %q", tokens[14].Literal)
	}
	if tokens[15].Literal != `a"b` {
		t.Errorf("Expected escaped quote, got %q", tokens[15].Literal)
	}
}

func TestSpansAndNewlines(t *testing.T) {
	tokens := Tokenize("ls $x # list\n  pwd", "startup.nu")

	if tokens[1].Type != TokenVariable || tokens[1].Literal != "x" {
		t.Fatalf("Expected variable x, got %v", tokens[1])
	}

	sp := tokens[1].Span
	if sp.Start.Offset != 3 || sp.End.Offset != 5 {
		t.Errorf("Expected variable span 3..5, got %d..%d", sp.Start.Offset, sp.End.Offset)
	}
	if sp.Start.Filename != "startup.nu" {
		t.Errorf("Expected filename on span, got %q", sp.Start.Filename)
	}

	if tokens[2].Type != TokenNewline {
		t.Fatalf("Expected comment to be skipped up to newline, got %v", tokens[2])
	}

	pwd := tokens[3]
	if pwd.Literal != "pwd" || pwd.Span.Start.Line != 2 || pwd.Span.Start.Column != 3 {
		t.Errorf("Expected pwd at 2:3, got %v", pwd)
	}
}

func TestUnterminatedString(t *testing.T) {
	tokens := Tokenize(`echo "never closed`, "")
	last := tokens[len(tokens)-1]

	if last.Type != TokenError {
		t.Fatalf("Expected error token, got %v", last)
	}
}
