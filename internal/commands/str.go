package commands

import (
	"strconv"
	"strings"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/shape"
)

// StrFrom converts values to text
type StrFrom struct{}

func (s *StrFrom) Name() string  { return "str from" }
func (s *StrFrom) Usage() string { return "Converts numbers to text with optional precision." }
func (s *StrFrom) Signature() *shape.Signature {
	return shape.Build("str from").Desc(s.Usage()).
		Flag("decimals", shape.Int, "decimal digits to which to round", 'd')
}

func (s *StrFrom) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	digits := -1
	if v, ok := args.Named["decimals"]; ok {
		n, isInt := v.(int64)
		if !isInt || n < 0 {
			return nil, typeError(args, "non-negative integer", v)
		}
		digits = int(n)
	}

	out := make([]engine.Value, 0, len(input))
	for _, v := range input {
		if f, ok := engine.AsFloat(v); ok && digits >= 0 {
			out = append(out, strconv.FormatFloat(f, 'f', digits, 64))
			continue
		}
		text, ok := engine.AsString(v)
		if !ok {
			return nil, typeError(args, "primitive value", v)
		}
		out = append(out, text)
	}
	return out, nil
}

// StrToDecimal parses text as a decimal number
type StrToDecimal struct{}

func (s *StrToDecimal) Name() string  { return "str to-decimal" }
func (s *StrToDecimal) Usage() string { return "Converts text into decimal." }
func (s *StrToDecimal) Signature() *shape.Signature {
	return shape.Build("str to-decimal").Desc(s.Usage())
}

func (s *StrToDecimal) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	out := make([]engine.Value, 0, len(input))
	for _, v := range input {
		if f, ok := engine.AsFloat(v); ok {
			out = append(out, f)
			continue
		}
		text, ok := v.(string)
		if !ok {
			return nil, typeError(args, "string", v)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, nserrors.RuntimeError("Could not convert '"+text+"' to decimal", args.Span)
		}
		out = append(out, f)
	}
	return out, nil
}
