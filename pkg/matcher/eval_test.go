package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthyCoercion(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.True(t, truthy(true))
	assert.True(t, truthy(float64(0)))
	assert.True(t, truthy(""))
}

func TestStringConcatenation(t *testing.T) {
	env := &Env{Vars: Record{}, Funcs: map[string]Func{}}
	v, err := Eval(compile(t, `"a" + "b"`), env)
	require.NoError(t, err)
	assert.Equal(t, "ab", v)
}

func TestArithmeticTypeMismatch(t *testing.T) {
	env := &Env{Vars: Record{}, Funcs: map[string]Func{}}
	_, err := Eval(compile(t, `"a" + 1`), env)
	require.Error(t, err)
	var target *ArithmeticError
	assert.ErrorAs(t, err, &target)
}

func TestDivideByZero(t *testing.T) {
	env := &Env{Vars: Record{}, Funcs: map[string]Func{}}
	_, err := Eval(compile(t, `1/0`), env)
	require.Error(t, err)
	var target *ArithmeticError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "divide_by_zero", target.Op)
}

func TestUndefinedVariable(t *testing.T) {
	env := &Env{Vars: Record{}, Funcs: map[string]Func{}}
	_, err := Eval(compile(t, `missing.sub`), env)
	require.Error(t, err)
	var target *UndefinedVariableError
	assert.ErrorAs(t, err, &target)
}

func TestUndefinedFunction(t *testing.T) {
	env := &Env{Vars: Record{}, Funcs: map[string]Func{}}
	_, err := Eval(compile(t, `missing(1,2)`), env)
	require.Error(t, err)
	var target *UndefinedFunctionError
	assert.ErrorAs(t, err, &target)
}

func TestAttributeErrorOnNonRecord(t *testing.T) {
	env := &Env{Vars: Record{"x": float64(1)}, Funcs: map[string]Func{}}
	_, err := Eval(compile(t, `x.sub`), env)
	require.Error(t, err)
	var target *AttributeError
	assert.ErrorAs(t, err, &target)
}

func TestRoleStubFunction(t *testing.T) {
	env := &Env{
		Vars: Record{
			"r": Record{"sub": "alice"},
			"p": Record{"sub": "admin"},
		},
		Funcs: map[string]Func{
			"g": func(args []any) (any, error) {
				a, _ := asString(args[0])
				b, _ := asString(args[1])
				return a == "alice" && b == "admin", nil
			},
		},
	}
	ok, err := EvalBool(compile(t, `g(r.sub, p.sub)`), env)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAndOrValueCombinators(t *testing.T) {
	env := &Env{Vars: Record{"f": false, "t": true}, Funcs: map[string]Func{}}

	v, err := Eval(compile(t, `f && t`), env)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = Eval(compile(t, `f || "fallback"`), env)
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

func TestComparisonOperators(t *testing.T) {
	env := &Env{Vars: Record{}, Funcs: map[string]Func{}}

	ok, err := EvalBool(compile(t, `1 < 2`), env)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalBool(compile(t, `"abc" < "abd"`), env)
	require.NoError(t, err)
	assert.True(t, ok)
}
