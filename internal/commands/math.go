package commands

import (
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/shape"
)

// MathProduct multiplies a list of numbers, or each column of a table
type MathProduct struct{}

func (m *MathProduct) Name() string  { return "math product" }
func (m *MathProduct) Usage() string { return "Finds the product of a list of numbers or tables" }
func (m *MathProduct) Signature() *shape.Signature {
	return shape.Build("math product").Desc(m.Usage())
}

func (m *MathProduct) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	allPrimitive := true
	for _, v := range input {
		if _, ok := v.(*engine.Row); ok {
			allPrimitive = false
			break
		}
	}

	if allPrimitive {
		p, err := product(args, input)
		if err != nil {
			return nil, err
		}
		return []engine.Value{p}, nil
	}

	columns := engine.NewRow()
	for _, v := range input {
		row, ok := v.(*engine.Row)
		if !ok {
			continue
		}
		for _, col := range row.Columns() {
			cell, _ := row.Get(col)
			existing, _ := columns.Get(col)
			list, _ := existing.([]engine.Value)
			columns.Set(col, append(list, cell))
		}
	}

	totals := engine.NewRow()
	for _, col := range columns.Columns() {
		cells, _ := columns.Get(col)
		p, err := product(args, cells.([]engine.Value))
		if err != nil {
			return nil, err
		}
		totals.Set(col, p)
	}
	return []engine.Value{totals}, nil
}

// product keeps integer arithmetic until a decimal is seen. The product of
// nothing is zero.
func product(args *engine.CallArgs, values []engine.Value) (engine.Value, error) {
	if len(values) == 0 {
		return int64(0), nil
	}

	intProd := int64(1)
	floatProd := 1.0
	isFloat := false

	for _, v := range values {
		switch n := v.(type) {
		case int64:
			intProd *= n
			floatProd *= float64(n)
		case float64:
			isFloat = true
			floatProd *= n
		default:
			return nil, typeError(args, "number", v)
		}
	}

	if isFloat {
		return floatProd, nil
	}
	return intProd, nil
}
