package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMatch(t *testing.T) {
	assert.True(t, KeyMatch("/foo/bar", "/foo/*"))
	assert.False(t, KeyMatch("/baz/bar", "/foo/*"))
	assert.True(t, KeyMatch("/foo", "/foo"))
}

func TestKeyGet(t *testing.T) {
	assert.Equal(t, "bar", KeyGet("/foo/bar", "/foo/*"))
	assert.Equal(t, "", KeyGet("/foo", "/foo/*"))
}

func TestKeyMatch2(t *testing.T) {
	ok, err := KeyMatch2("/alice/123", "/:name/:id")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = KeyMatch2("/alice/123/extra", "/:name/:id")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = KeyMatch2("/alice/123/extra", "/:name/*")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeyGet2(t *testing.T) {
	v, err := KeyGet2("/alice/123", "/:name/:id", "id")
	require.NoError(t, err)
	assert.Equal(t, "123", v)

	v, err = KeyGet2("/alice/123", "/:name/:id", "nope")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestKeyMatch3(t *testing.T) {
	ok, err := KeyMatch3("/alice/123", "/{name}/{id}")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeyMatch4RequiresConsistentBinding(t *testing.T) {
	ok, err := KeyMatch4("/parents/1/children/1", "/parents/{id}/children/{id}")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = KeyMatch4("/parents/1/children/2", "/parents/{id}/children/{id}")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIPMatchCIDR(t *testing.T) {
	ok, err := IPMatch("192.168.1.5", "192.168.1.0/24")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IPMatch("10.0.0.1", "192.168.1.0/24")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIPMatchLiteral(t *testing.T) {
	ok, err := IPMatch("127.0.0.1", "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGlobMatchSingleSegment(t *testing.T) {
	assert.True(t, GlobMatch("a/b/c", "a/*/c"))
	assert.False(t, GlobMatch("a/b/c/d", "a/*/c"))
}

func TestGlobMatchAnyDepth(t *testing.T) {
	assert.True(t, GlobMatch("a/b/c/d", "a/**/d"))
	assert.True(t, GlobMatch("a/d", "a/**/d"))
	assert.False(t, GlobMatch("a/d/e", "a/**/d"))
}

func TestRegexMatch(t *testing.T) {
	ok, err := RegexMatch("/foo123", `^/foo\d+$`)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFuncsTableSwallowsParseErrors(t *testing.T) {
	fns := Funcs()

	v, err := fns["regexMatch"]([]any{"abc", "("})
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = fns["ipMatch"]([]any{"not-an-ip", "10.0.0.0/8"})
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = fns["keyMatch2"]([]any{"/a", "("})
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestFuncsTableWiresAllNine(t *testing.T) {
	fns := Funcs()
	for _, name := range []string{
		"regexMatch", "keyMatch", "keyGet", "keyMatch2", "keyGet2",
		"keyMatch3", "keyMatch4", "ipMatch", "globMatch",
	} {
		_, ok := fns[name]
		assert.True(t, ok, "missing builtin %q", name)
	}
}
