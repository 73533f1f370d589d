package adapter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPoliciesFromRealFile(t *testing.T) {
	a := NewFileAdapter(filepath.Join("..", "..", "testdata", "acl_policy.csv"))
	lines, err := a.LoadPolicies()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "p", lines[0].Type)
	assert.Equal(t, []string{"alice", "data1", "read"}, lines[0].Values)
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	a := NewFileAdapter(filepath.Join(t.TempDir(), "nonexistent.csv"))
	lines, err := a.LoadPolicies()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAddAndRemovePolicyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	a := NewFileAdapter(path)

	require.NoError(t, a.AddPolicy(Line{Type: "p", Values: []string{"alice", "data1", "read"}}))
	require.NoError(t, a.AddPolicy(Line{Type: "p", Values: []string{"bob", "data2", "write"}}))

	lines, err := a.LoadPolicies()
	require.NoError(t, err)
	require.Len(t, lines, 2)

	require.NoError(t, a.RemovePolicy(Line{Type: "p", Values: []string{"alice", "data1", "read"}}))
	lines, err = a.LoadPolicies()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "bob", lines[0].Values[0])
}

func TestRemoveFilteredPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	a := NewFileAdapter(path)
	require.NoError(t, a.SavePolicies([]Line{
		{Type: "p", Values: []string{"alice", "data1", "read"}},
		{Type: "p", Values: []string{"alice", "data2", "write"}},
		{Type: "p", Values: []string{"bob", "data1", "read"}},
	}))

	require.NoError(t, a.RemoveFilteredPolicy("p", 0, "alice"))
	lines, err := a.LoadPolicies()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "bob", lines[0].Values[0])
}

func TestSavePoliciesOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	a := NewFileAdapter(path)
	require.NoError(t, a.SavePolicies([]Line{{Type: "p", Values: []string{"alice", "data1", "read"}}}))
	require.NoError(t, a.SavePolicies([]Line{{Type: "p", Values: []string{"carol", "data3", "read"}}}))

	lines, err := a.LoadPolicies()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "carol", lines[0].Values[0])
}
