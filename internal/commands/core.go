package commands

import (
	"bytes"
	"encoding/json"

	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/shape"
)

// Echo outputs its arguments. Tables are spread into rows.
type Echo struct{}

func (e *Echo) Name() string  { return "echo" }
func (e *Echo) Usage() string { return "Echo the arguments back to the user." }
func (e *Echo) Signature() *shape.Signature {
	return shape.Build("echo").Desc(e.Usage()).Rest(shape.Any, "the values to echo")
}

func (e *Echo) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	var out []engine.Value
	for _, v := range args.Positional {
		if r, ok := v.(engine.Range); ok {
			out = append(out, expandRange(r)...)
			continue
		}
		out = append(out, engine.Spread(v)...)
	}
	return out, nil
}

func expandRange(r engine.Range) []engine.Value {
	step := int64(1)
	if r.From > r.To {
		step = -1
	}
	var out []engine.Value
	for n := r.From; ; n += step {
		out = append(out, n)
		if n == r.To {
			return out
		}
	}
}

// Each runs a block once per input row with $it bound to the row
type Each struct{}

func (e *Each) Name() string  { return "each" }
func (e *Each) Usage() string { return "Run a block on each row of the table." }
func (e *Each) Signature() *shape.Signature {
	return shape.Build("each").Desc(e.Usage()).Required("block", shape.Block, "the block to run on each row")
}

func (e *Each) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	block, ok := args.Nth(0).(*engine.BlockValue)
	if !ok {
		return nil, typeError(args, "block", args.Nth(0))
	}

	var out []engine.Value
	for _, row := range input {
		res, err := engine.RunBlockValue(ctx, block, row)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

// Range selects input rows by index
type Range struct{}

func (r *Range) Name() string  { return "range" }
func (r *Range) Usage() string { return "Return only the selected rows." }
func (r *Range) Signature() *shape.Signature {
	return shape.Build("range").Desc(r.Usage()).Required("rows", shape.Range, "range of rows to return, e.g. 4..7")
}

func (r *Range) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	rows, ok := args.Nth(0).(engine.Range)
	if !ok {
		return nil, typeError(args, "range", args.Nth(0))
	}

	var out []engine.Value
	for i, v := range input {
		if rows.Contains(int64(i)) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Get reads columns out of rows
type Get struct{}

func (g *Get) Name() string  { return "get" }
func (g *Get) Usage() string { return "Open given cells as text." }
func (g *Get) Signature() *shape.Signature {
	return shape.Build("get").Desc(g.Usage()).
		Required("member", shape.ColumnPath, "the path to the data to get").
		Rest(shape.ColumnPath, "optionally return additional data by path")
}

func (g *Get) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	var out []engine.Value
	for _, row := range input {
		for _, p := range args.Positional {
			path, ok := p.(engine.ColumnPath)
			if !ok {
				s, isString := engine.AsString(p)
				if !isString {
					return nil, typeError(args, "column path", p)
				}
				path = engine.ColumnPath{s}
			}

			v := row
			for _, member := range path {
				var err error
				if v, err = engine.Member(v, member, args.Span); err != nil {
					return nil, err
				}
			}
			out = append(out, engine.Spread(v)...)
		}
	}
	return out, nil
}

// ToJSON serializes the input stream. A single row is written as itself,
// several as an array.
type ToJSON struct{}

func (t *ToJSON) Name() string  { return "to json" }
func (t *ToJSON) Usage() string { return "Convert table into JSON text." }
func (t *ToJSON) Signature() *shape.Signature {
	return shape.Build("to json").Desc(t.Usage()).Switch("pretty", "indent the output", 'p')
}

func (t *ToJSON) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	var value engine.Value = input
	if len(input) == 1 {
		value = input[0]
	}

	data, err := engine.MarshalValue(value)
	if err != nil {
		return nil, err
	}

	if args.Switches["pretty"] {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return nil, err
		}
		data = buf.Bytes()
	}
	return []engine.Value{string(data)}, nil
}
