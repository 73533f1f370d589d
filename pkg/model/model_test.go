package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeauth/permengine/pkg/matcher"
)

func newEnv(req, pol matcher.Record) *matcher.Env {
	return &matcher.Env{
		Vars:  matcher.Record{"r": req, "p": pol},
		Funcs: map[string]matcher.Func{},
	}
}

func TestLoadACLModel(t *testing.T) {
	m, err := Load("../../testdata/acl_model.conf")
	require.NoError(t, err)

	assert.Equal(t, []string{"sub", "obj", "act"}, m.Request.Fields)
	assert.Equal(t, EffectAllowOverride, m.Effect)
	assert.False(t, m.HasRoleMapping("g"))
}

func TestLoadRBACModel(t *testing.T) {
	m, err := Load("../../testdata/rbac_model.conf")
	require.NoError(t, err)
	assert.True(t, m.HasRoleMapping("g"))
	assert.Equal(t, 2, m.RoleMappings["g"].Arity)
}

func TestCreateRequestFieldCountMismatch(t *testing.T) {
	m, err := Load("../../testdata/acl_model.conf")
	require.NoError(t, err)

	_, err = m.CreateRequest("alice", "data1")
	assert.ErrorIs(t, err, ErrFieldCount)
}

func TestCreatePolicyUnknownDefinition(t *testing.T) {
	m, err := Load("../../testdata/acl_model.conf")
	require.NoError(t, err)

	_, err = m.CreatePolicy("q", "alice", "data1", "read")
	assert.ErrorIs(t, err, ErrMissingSection)
}

func TestMatchACL(t *testing.T) {
	m, err := Load("../../testdata/acl_model.conf")
	require.NoError(t, err)

	req, err := m.CreateRequest("alice", "data1", "read")
	require.NoError(t, err)
	pol, err := m.CreatePolicy("p", "alice", "data1", "read")
	require.NoError(t, err)

	ok, err := m.Match(newEnv(req, pol))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowOverrideAggregation(t *testing.T) {
	m, err := Load("../../testdata/acl_model.conf")
	require.NoError(t, err)

	assert.False(t, m.Allow(nil))
	assert.True(t, m.Allow([]string{"allow"}))
	assert.False(t, m.Allow([]string{"deny"}))
}

func TestDenyOverrideAggregation(t *testing.T) {
	m, err := Load("../../testdata/deny_override_model.conf")
	require.NoError(t, err)

	assert.True(t, m.Allow(nil), "vacuously true with no matched policies")
	assert.False(t, m.Allow([]string{"allow", "deny"}))
	assert.True(t, m.Allow([]string{"allow"}))
}

func TestPolicyDefinitionSynthesizesEft(t *testing.T) {
	m, err := Load("../../testdata/acl_model.conf")
	require.NoError(t, err)

	assert.Equal(t, []string{"sub", "obj", "act", "eft"}, m.Policies["p"].Fields)

	pol, err := m.CreatePolicy("p", "peter", "blog_post", "modify", "deny")
	require.NoError(t, err)
	assert.Equal(t, "deny", pol["eft"])

	pol, err = m.CreatePolicy("p", "alice", "data1", "read")
	require.NoError(t, err)
	assert.Equal(t, "allow", pol["eft"], "omitted eft defaults to allow")
}

func TestCreatePolicyRejectsInvalidEft(t *testing.T) {
	m, err := Load("../../testdata/acl_model.conf")
	require.NoError(t, err)

	_, err = m.CreatePolicy("p", "alice", "data1", "read", "maybe")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestCreateRequestRejectsNonStringNumberValue(t *testing.T) {
	m, err := Load("../../testdata/acl_model.conf")
	require.NoError(t, err)

	_, err = m.CreateRequest("alice", "data1", []string{"read"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRoleDefinitionRejectsInvalidShape(t *testing.T) {
	_, err := Parse([]byte(`
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = foo

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRoleDefinition)
}

func TestUnknownEffectExpression(t *testing.T) {
	_, err := Parse([]byte(`
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = bogus()

[matchers]
m = r.sub == p.sub
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPolicyEffect)
}
