package position

import (
	"testing"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		pos      Position
		isValid  bool
	}{
		{
			name:     "Valid position with filename",
			pos:      Position{Filename: "startup.nu", Line: 10, Column: 5, Offset: 100},
			isValid:  true,
			expected: "startup.nu:10:5",
		},
		{
			name:     "Valid position without filename",
			pos:      Position{Line: 1, Column: 1, Offset: 0},
			isValid:  true,
			expected: "1:1",
		},
		{
			name:    "Invalid position - zero line",
			pos:     Position{Line: 0, Column: 1},
			isValid: false,
		},
		{
			name:    "Invalid position - negative offset",
			pos:     Position{Line: 1, Column: 1, Offset: -1},
			isValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.IsValid(); got != tt.isValid {
				t.Errorf("IsValid() = %v, want %v", got, tt.isValid)
			}
			if tt.isValid {
				if got := tt.pos.String(); got != tt.expected {
					t.Errorf("String() = %q, want %q", got, tt.expected)
				}
			}
		})
	}
}

func span(start, end int) Span {
	return Span{
		Start: Position{Line: 1, Column: start + 1, Offset: start},
		End:   Position{Line: 1, Column: end + 1, Offset: end},
	}
}

func TestSpanUnion(t *testing.T) {
	a := span(2, 5)
	b := span(4, 9)

	u := a.Union(b)
	if u.Start.Offset != 2 || u.End.Offset != 9 {
		t.Errorf("Expected union 2..9, got %d..%d", u.Start.Offset, u.End.Offset)
	}

	if got := (Span{}).Union(b); got != b {
		t.Errorf("Union with invalid span should return other, got %v", got)
	}

	if u.Length() != 7 {
		t.Errorf("Expected length 7, got %d", u.Length())
	}

	if got := a.String(); got != "1:3-6" {
		t.Errorf("Expected '1:3-6', got '%s'", got)
	}
}

func TestSourceFileSpanText(t *testing.T) {
	sf := NewSourceFile("", "alias l [x] {\n  ls $x\n}")

	if got := sf.GetLine(2); got != "  ls $x" {
		t.Errorf("Expected second line, got %q", got)
	}
	if got := sf.GetLine(9); got != "" {
		t.Errorf("Expected empty line for out of range, got %q", got)
	}

	sp := Span{
		Start: Position{Line: 2, Column: 6, Offset: 19},
		End:   Position{Line: 2, Column: 8, Offset: 21},
	}
	if got := sf.GetSpanText(sp); got != "$x" {
		t.Errorf("Expected '$x', got %q", got)
	}
}
