package builtin

import (
	"fmt"

	"github.com/latticeauth/permengine/pkg/matcher"
)

func argString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("builtin: missing argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("builtin: argument %d is not a string", i)
	}
	return s, nil
}

// Funcs returns the nine built-in functions as a matcher-ready function
// table, keyed by the name a matcher expression calls them with. None of
// them ever returns an error to the matcher: a malformed pattern or address
// (a bad regex, a bad IP literal, a missing argument) surfaces as a false
// or "" result rather than aborting evaluation.
func Funcs() map[string]matcher.Func {
	return map[string]matcher.Func{
		"regexMatch": func(args []any) (any, error) {
			k1, err := argString(args, 0)
			if err != nil {
				return false, nil
			}
			k2, err := argString(args, 1)
			if err != nil {
				return false, nil
			}
			ok, err := RegexMatch(k1, k2)
			if err != nil {
				return false, nil
			}
			return ok, nil
		},
		"keyMatch": func(args []any) (any, error) {
			k1, err := argString(args, 0)
			if err != nil {
				return false, nil
			}
			k2, err := argString(args, 1)
			if err != nil {
				return false, nil
			}
			return KeyMatch(k1, k2), nil
		},
		"keyGet": func(args []any) (any, error) {
			k1, err := argString(args, 0)
			if err != nil {
				return "", nil
			}
			k2, err := argString(args, 1)
			if err != nil {
				return "", nil
			}
			return KeyGet(k1, k2), nil
		},
		"keyMatch2": func(args []any) (any, error) {
			k1, err := argString(args, 0)
			if err != nil {
				return false, nil
			}
			k2, err := argString(args, 1)
			if err != nil {
				return false, nil
			}
			ok, err := KeyMatch2(k1, k2)
			if err != nil {
				return false, nil
			}
			return ok, nil
		},
		"keyGet2": func(args []any) (any, error) {
			k1, err := argString(args, 0)
			if err != nil {
				return "", nil
			}
			k2, err := argString(args, 1)
			if err != nil {
				return "", nil
			}
			pathVar, err := argString(args, 2)
			if err != nil {
				return "", nil
			}
			v, err := KeyGet2(k1, k2, pathVar)
			if err != nil {
				return "", nil
			}
			return v, nil
		},
		"keyMatch3": func(args []any) (any, error) {
			k1, err := argString(args, 0)
			if err != nil {
				return false, nil
			}
			k2, err := argString(args, 1)
			if err != nil {
				return false, nil
			}
			ok, err := KeyMatch3(k1, k2)
			if err != nil {
				return false, nil
			}
			return ok, nil
		},
		"keyMatch4": func(args []any) (any, error) {
			k1, err := argString(args, 0)
			if err != nil {
				return false, nil
			}
			k2, err := argString(args, 1)
			if err != nil {
				return false, nil
			}
			ok, err := KeyMatch4(k1, k2)
			if err != nil {
				return false, nil
			}
			return ok, nil
		},
		"ipMatch": func(args []any) (any, error) {
			k1, err := argString(args, 0)
			if err != nil {
				return false, nil
			}
			k2, err := argString(args, 1)
			if err != nil {
				return false, nil
			}
			ok, err := IPMatch(k1, k2)
			if err != nil {
				return false, nil
			}
			return ok, nil
		},
		"globMatch": func(args []any) (any, error) {
			k1, err := argString(args, 0)
			if err != nil {
				return false, nil
			}
			k2, err := argString(args, 1)
			if err != nil {
				return false, nil
			}
			return GlobMatch(k1, k2), nil
		},
	}
}
