package rolegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflexiveInheritance(t *testing.T) {
	rg := New("g")
	ok, err := rg.InheritsFrom("alice", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDirectInheritance(t *testing.T) {
	rg := New("g")
	require.NoError(t, rg.AddInheritance("alice", "admin"))

	ok, err := rg.InheritsFrom("alice", "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rg.InheritsFrom("admin", "alice")
	require.NoError(t, err)
	assert.False(t, ok, "inheritance is directional")
}

func TestTransitiveInheritance(t *testing.T) {
	rg := New("g")
	require.NoError(t, rg.AddInheritance("alice", "manager"))
	require.NoError(t, rg.AddInheritance("manager", "admin"))

	ok, err := rg.InheritsFrom("alice", "admin")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoInheritanceBetweenUnrelatedRoles(t *testing.T) {
	rg := New("g")
	require.NoError(t, rg.AddInheritance("alice", "admin"))
	require.NoError(t, rg.AddRole("bob"))

	ok, err := rg.InheritsFrom("bob", "admin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveInheritanceBreaksLink(t *testing.T) {
	rg := New("g")
	require.NoError(t, rg.AddInheritance("alice", "admin"))
	require.NoError(t, rg.RemoveInheritance("alice", "admin"))

	ok, err := rg.InheritsFrom("alice", "admin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveRolePrunesEdges(t *testing.T) {
	rg := New("g")
	require.NoError(t, rg.AddInheritance("alice", "manager"))
	require.NoError(t, rg.AddInheritance("manager", "admin"))
	require.NoError(t, rg.RemoveRole("manager"))

	ok, err := rg.InheritsFrom("alice", "admin")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, rg.HasRole("manager"))
}

func TestDuplicateEdgeIsIdempotent(t *testing.T) {
	rg := New("g")
	require.NoError(t, rg.AddInheritance("alice", "admin"))
	require.NoError(t, rg.AddInheritance("alice", "admin"))

	ok, err := rg.InheritsFrom("alice", "admin")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTwoArgStub(t *testing.T) {
	rg := New("g")
	require.NoError(t, rg.AddInheritance("alice", "admin"))

	fn := TwoArgStub(rg)
	v, err := fn([]any{"alice", "admin"})
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestThreeArgStubIsDomainScoped(t *testing.T) {
	rg := New("g2")
	require.NoError(t, rg.AddInheritance(Qualify("alice", "tenant1"), Qualify("admin", "tenant1")))

	fn := ThreeArgStub(rg)

	v, err := fn([]any{"alice", "admin", "tenant1"})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = fn([]any{"alice", "admin", "tenant2"})
	require.NoError(t, err)
	assert.Equal(t, false, v)
}
