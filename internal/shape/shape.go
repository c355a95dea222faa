// Package shape defines syntax shapes, the expected syntactic category of a
// command argument, and the command signatures that declare them.
package shape

import "fmt"

// SyntaxShape represents the expected category of an argument value.
type SyntaxShape int

const (
	// Any accepts every value and is overridden by any concrete shape.
	Any SyntaxShape = iota
	String
	ColumnPath
	Number
	Range
	Int
	Path
	Pattern
	Block
	Table
	Unit
	Math
)

var shapeNames = map[SyntaxShape]string{
	Any:        "any",
	String:     "string",
	ColumnPath: "column path",
	Number:     "number",
	Range:      "range",
	Int:        "integer",
	Path:       "path",
	Pattern:    "pattern",
	Block:      "block",
	Table:      "table",
	Unit:       "unit",
	Math:       "math",
}

func (s SyntaxShape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseSyntaxShape is the inverse of String.
func ParseSyntaxShape(name string) (SyntaxShape, error) {
	for s, n := range shapeNames {
		if n == name {
			return s, nil
		}
	}
	return Any, fmt.Errorf("unknown syntax shape %q", name)
}

// MarshalText lets shapes appear as readable names in JSON and YAML output.
func (s SyntaxShape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SyntaxShape) UnmarshalText(text []byte) error {
	parsed, err := ParseSyntaxShape(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
