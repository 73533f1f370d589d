// Package builtin implements the nine built-in matcher functions every
// model environment exposes alongside its role-mapping stubs: RegexMatch,
// KeyMatch/KeyGet, KeyMatch2/KeyGet2, KeyMatch3, KeyMatch4, IPMatch, and
// GlobMatch.
package builtin

import (
	"net/netip"
	"regexp"
	"strings"
)

// RegexMatch reports whether key1 matches the regular expression key2.
// key2 is compiled as-is; callers that want a full-string match must anchor
// it themselves with ^ and $.
func RegexMatch(key1, key2 string) (bool, error) {
	re, err := regexp.Compile(key2)
	if err != nil {
		return false, err
	}
	return re.MatchString(key1), nil
}

// KeyMatch reports whether key1 matches key2, where key2 may contain a
// single "*" wildcard matching any suffix. Without a "*", it is exact
// equality.
func KeyMatch(key1, key2 string) bool {
	i := strings.Index(key2, "*")
	if i == -1 {
		return key1 == key2
	}
	if len(key1) > i {
		return key1[:i] == key2[:i]
	}
	return key1 == key2[:i]
}

// KeyGet returns the portion of key1 matched by key2's "*" wildcard, or ""
// if key2 has no wildcard or key1 doesn't reach it.
func KeyGet(key1, key2 string) string {
	i := strings.Index(key2, "*")
	if i == -1 {
		return ""
	}
	if len(key1) > i {
		return key1[i:]
	}
	return ""
}

var keyMatch2ParamRe = regexp.MustCompile(`:[^/]+`)

// KeyMatch2 reports whether key1 matches the URL-path pattern key2, where
// ":name" segments match a single path segment and a trailing "/*" matches
// any remaining depth.
func KeyMatch2(key1, key2 string) (bool, error) {
	key2 = strings.ReplaceAll(key2, "/*", "/.*")
	key2 = keyMatch2ParamRe.ReplaceAllString(key2, "[^/]+")
	return RegexMatch(key1, "^"+key2+"$")
}

// KeyGet2 reports the value bound to the named ":pathVar" segment of key2
// when key1 matches it, or "" if it doesn't match or the name is absent.
func KeyGet2(key1, key2, pathVar string) (string, error) {
	key2 = strings.ReplaceAll(key2, "/*", "/.*")

	var names []string
	pattern := keyMatch2ParamRe.ReplaceAllStringFunc(key2, func(m string) string {
		names = append(names, m[1:])
		return "([^/]+)"
	})

	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return "", err
	}
	values := re.FindStringSubmatch(key1)
	if values == nil {
		return "", nil
	}
	for i, name := range names {
		if name == pathVar {
			return values[i+1], nil
		}
	}
	return "", nil
}

var keyMatch3ParamRe = regexp.MustCompile(`\{[^/]+?\}`)

// KeyMatch3 is KeyMatch2 with "{name}" placeholders instead of ":name".
func KeyMatch3(key1, key2 string) (bool, error) {
	key2 = strings.ReplaceAll(key2, "/*", "/.*")
	key2 = keyMatch3ParamRe.ReplaceAllString(key2, "[^/]+")
	return RegexMatch(key1, "^"+key2+"$")
}

var keyMatch4ParamRe = regexp.MustCompile(`\{([^/]+?)\}`)

// KeyMatch4 is KeyMatch3, additionally requiring that repeated placeholder
// names (e.g. "/{id}/resource/{id}") bind to the same value within key1.
func KeyMatch4(key1, key2 string) (bool, error) {
	key2 = strings.ReplaceAll(key2, "/*", "/.*")

	var tokens []string
	pattern := keyMatch4ParamRe.ReplaceAllStringFunc(key2, func(m string) string {
		tokens = append(tokens, m)
		return "([^/]+)"
	})

	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return false, err
	}
	values := re.FindStringSubmatch(key1)
	if values == nil {
		return false, nil
	}
	values = values[1:]

	bound := map[string]string{}
	for i, token := range tokens {
		if prev, ok := bound[token]; ok {
			if prev != values[i] {
				return false, nil
			}
			continue
		}
		bound[token] = values[i]
	}
	return true, nil
}

// IPMatch reports whether the IP address key1 is contained in key2, which
// may be either a single address or a CIDR prefix.
func IPMatch(key1, key2 string) (bool, error) {
	addr, err := netip.ParseAddr(key1)
	if err != nil {
		return false, err
	}
	if prefix, err := netip.ParsePrefix(key2); err == nil {
		return prefix.Contains(addr), nil
	}
	other, err := netip.ParseAddr(key2)
	if err != nil {
		return false, err
	}
	return addr == other, nil
}

// GlobMatch reports whether key1 matches the "/"-segmented glob pattern
// key2, where a "*" segment matches exactly one path segment and a "**"
// segment matches any number of segments (including zero), at any depth.
func GlobMatch(key1, key2 string) bool {
	return globMatch(strings.Split(key1, "/"), strings.Split(key2, "/"))
}

func globMatch(key, pattern []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}
	head := pattern[0]
	switch {
	case head == "**":
		if globMatch(key, pattern[1:]) {
			return true
		}
		if len(key) == 0 {
			return false
		}
		return globMatch(key[1:], pattern)
	case head == "*":
		if len(key) == 0 {
			return false
		}
		return globMatch(key[1:], pattern[1:])
	default:
		if len(key) == 0 || key[0] != head {
			return false
		}
		return globMatch(key[1:], pattern[1:])
	}
}
