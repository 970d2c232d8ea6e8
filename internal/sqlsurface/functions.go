package sqlsurface

import (
	"fmt"

	gms "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/sql"
	"github.com/dolthub/go-mysql-server/sql/types"
)

// registerFunctions adds the len(b) scalar UDF: the byte length of a
// binary column, valid over both 32-bit and 64-bit offset binary
// encodings because Go's []byte representation erases that distinction
// by the time it reaches this layer. It is immutable (same input always
// yields the same output) and variadic only in the sense that it accepts
// any single binary-typed expression, matching the one-argument call
// shape used against the rootfs table's data column.
func registerFunctions(engine *gms.Engine) error {
	return engine.Analyzer.Catalog.RegisterFunction(sql.NewEmptyContext(), sql.Function1{
		Name: "len",
		Fn: func(arg sql.Expression) sql.Expression {
			return &lenFunc{arg: arg}
		},
	})
}

// lenFunc implements sql.Expression for len(b).
type lenFunc struct {
	arg sql.Expression
}

func (f *lenFunc) Resolved() bool { return f.arg.Resolved() }
func (f *lenFunc) String() string { return fmt.Sprintf("len(%s)", f.arg) }
func (f *lenFunc) Type() sql.Type { return types.Uint64 }
func (f *lenFunc) IsNullable() bool {
	return f.arg.IsNullable()
}

func (f *lenFunc) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	v, err := f.arg.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("len: expected binary argument, got %T", v)
	}
	return uint64(len(b)), nil
}

func (f *lenFunc) Children() []sql.Expression {
	return []sql.Expression{f.arg}
}

func (f *lenFunc) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("len: expected 1 argument, got %d", len(children))
	}
	return &lenFunc{arg: children[0]}, nil
}

func (f *lenFunc) FunctionName() string { return "len" }
func (f *lenFunc) Description() string  { return "returns the byte length of a binary value" }
