package rolegraph

import "fmt"

// StubFunc is the shape a role group's generated matcher function takes:
// the same Func contract pkg/matcher expects of any callable.
type StubFunc func(args []any) (any, error)

func argString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("rolegraph: missing argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("rolegraph: argument %d is not a string", i)
	}
	return s, nil
}

// TwoArgStub returns the 2-argument matcher function for rg: g(a, b) is
// true when a inherits from b (directly, transitively, or a == b).
func TwoArgStub(rg *RoleGroup) StubFunc {
	return func(args []any) (any, error) {
		a, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argString(args, 1)
		if err != nil {
			return nil, err
		}
		return rg.InheritsFrom(a, b)
	}
}

// ThreeArgStub returns the 3-argument, domain-qualified matcher function
// for rg: g(a, b, domain) is true when a inherits from b within domain,
// both names joined to the domain via [Qualify] before the graph lookup.
func ThreeArgStub(rg *RoleGroup) StubFunc {
	return func(args []any) (any, error) {
		a, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argString(args, 1)
		if err != nil {
			return nil, err
		}
		domain, err := argString(args, 2)
		if err != nil {
			return nil, err
		}
		return rg.InheritsFrom(Qualify(a, domain), Qualify(b, domain))
	}
}
