package matcher

import "fmt"

// Record is the attribute bag a request or policy line is represented as
// inside the matcher environment (e.g. the value bound to "r" or "p").
type Record = map[string]any

// Func is a callable exposed to matcher expressions: built-ins, role-graph
// inheritance stubs, and any user-registered function all share this shape.
type Func func(args []any) (any, error)

// Env is the evaluation environment a compiled [Program] runs against: the
// named records ("r", "p", ...) and the named callables ("g", "keyMatch",
// any user-added function) a matcher expression may reference.
type Env struct {
	Vars  map[string]any
	Funcs map[string]Func
}

// UndefinedVariableError is returned when a matcher references a variable
// not present in the evaluation environment.
type UndefinedVariableError struct {
	Name string
	Pos  Position
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined_variable: %q at %s", e.Name, e.Pos)
}

// UndefinedFunctionError is returned when a matcher calls a function not
// present in the evaluation environment.
type UndefinedFunctionError struct {
	Name string
	Pos  Position
}

func (e *UndefinedFunctionError) Error() string {
	return fmt.Sprintf("undefined_function: %q at %s", e.Name, e.Pos)
}

// AttributeError is returned when "." is applied to a non-record value, or
// the named attribute does not exist on the record.
type AttributeError struct {
	Attr string
	Pos  Position
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("no_such_attribute: %q at %s", e.Attr, e.Pos)
}

// ArithmeticError is returned when an arithmetic or comparison operator is
// applied to operands of an incompatible type.
type ArithmeticError struct {
	Op  string
	Pos Position
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("arithmetic_error: %s at %s", e.Op, e.Pos)
}

// truthy applies the matcher's boolean coercion: nil and false are falsy,
// everything else (including 0 and "") is truthy.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func asNumber(v any) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Eval runs a compiled program against env and returns its raw result
// value (a string, float64, or bool).
func Eval(prog *Program, env *Env) (any, error) {
	var stack []any

	push := func(v any) { stack = append(stack, v) }
	pop := func() any {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, in := range prog.Instructions {
		switch in.Op {
		case OpPushNum:
			push(in.Num)
		case OpPushStr:
			push(in.Str)
		case OpPushVar:
			v, ok := env.Vars[in.Str]
			if !ok {
				return nil, &UndefinedVariableError{Name: in.Str, Pos: in.Pos}
			}
			push(v)
		case OpFetchAttr:
			attr := pop().(string)
			base := pop()
			rec, ok := base.(Record)
			if !ok {
				return nil, &AttributeError{Attr: attr, Pos: in.Pos}
			}
			v, ok := rec[attr]
			if !ok {
				return nil, &AttributeError{Attr: attr, Pos: in.Pos}
			}
			push(v)
		case OpCall:
			fn, ok := env.Funcs[in.Str]
			if !ok {
				return nil, &UndefinedFunctionError{Name: in.Str, Pos: in.Pos}
			}
			args := make([]any, in.Argc)
			for i := in.Argc - 1; i >= 0; i-- {
				args[i] = pop()
			}
			result, err := fn(args)
			if err != nil {
				return nil, err
			}
			push(result)
		case OpNot:
			push(!truthy(pop()))
		case OpPos, OpNeg:
			n, ok := asNumber(pop())
			if !ok {
				return nil, &ArithmeticError{Op: in.Op.String(), Pos: in.Pos}
			}
			if in.Op == OpNeg {
				n = -n
			}
			push(n)
		case OpMul, OpDiv, OpSub:
			b, bok := asNumber(pop())
			a, aok := asNumber(pop())
			if !aok || !bok {
				return nil, &ArithmeticError{Op: in.Op.String(), Pos: in.Pos}
			}
			switch in.Op {
			case OpMul:
				push(a * b)
			case OpDiv:
				if b == 0 {
					return nil, &ArithmeticError{Op: "divide_by_zero", Pos: in.Pos}
				}
				push(a / b)
			case OpSub:
				push(a - b)
			}
		case OpAdd:
			bv, av := pop(), pop()
			if an, aok := asNumber(av); aok {
				bn, bok := asNumber(bv)
				if !bok {
					return nil, &ArithmeticError{Op: "add", Pos: in.Pos}
				}
				push(an + bn)
			} else if as, aok := asString(av); aok {
				bs, bok := asString(bv)
				if !bok {
					return nil, &ArithmeticError{Op: "add", Pos: in.Pos}
				}
				push(as + bs)
			} else {
				return nil, &ArithmeticError{Op: "add", Pos: in.Pos}
			}
		case OpLt, OpLe, OpGt, OpGe:
			bv, av := pop(), pop()
			cmp, err := compare(av, bv, in.Pos)
			if err != nil {
				return nil, err
			}
			switch in.Op {
			case OpLt:
				push(cmp < 0)
			case OpLe:
				push(cmp <= 0)
			case OpGt:
				push(cmp > 0)
			case OpGe:
				push(cmp >= 0)
			}
		case OpEq:
			b, a := pop(), pop()
			push(valuesEqual(a, b))
		case OpNe:
			b, a := pop(), pop()
			push(!valuesEqual(a, b))
		case OpAnd:
			b, a := pop(), pop()
			if !truthy(a) {
				push(a)
			} else {
				push(b)
			}
		case OpOr:
			b, a := pop(), pop()
			if truthy(a) {
				push(a)
			} else {
				push(b)
			}
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("matcher: malformed program, final stack depth %d", len(stack))
	}
	return stack[0], nil
}

// EvalBool runs prog and coerces its result with the matcher's truthiness
// rule; it is what the enforcer uses to decide whether a request matches.
func EvalBool(prog *Program, env *Env) (bool, error) {
	v, err := Eval(prog, env)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func compare(a, b any, pos Position) (int, error) {
	if an, aok := asNumber(a); aok {
		bn, bok := asNumber(b)
		if !bok {
			return 0, &ArithmeticError{Op: "compare", Pos: pos}
		}
		switch {
		case an < bn:
			return -1, nil
		case an > bn:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if as, aok := asString(a); aok {
		bs, bok := asString(b)
		if !bok {
			return 0, &ArithmeticError{Op: "compare", Pos: pos}
		}
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, &ArithmeticError{Op: "compare", Pos: pos}
}

func valuesEqual(a, b any) bool {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			return an == bn
		}
		return false
	}
	if as, aok := asString(a); aok {
		if bs, bok := asString(b); bok {
			return as == bs
		}
		return false
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ab == bb
		}
		return false
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return false
}
