// Package rolegraph implements the role-inheritance graph a model's
// role-mapping definitions (g, g2, ...) are backed by: a directed graph of
// role/user identifiers where an edge from a to b means "a inherits the
// permissions of b", and transitive reachability is decided by depth-first
// search.
package rolegraph

import (
	"errors"

	"github.com/dominikbraun/graph"
)

// domainSep joins a role/user name and a domain into the single vertex
// identifier a 3-argument (domain-qualified) role mapping operates on. This
// is the string-concatenation representation: "alice" in domain "tenant1"
// becomes the single graph vertex "alice::tenant1".
const domainSep = "::"

// Qualify returns the vertex identifier for name scoped to domain.
func Qualify(name, domain string) string {
	return name + domainSep + domain
}

// RoleGroup is one named role-mapping relation (what a model calls "g",
// "g2", ...): a directed graph of inheritance edges plus the DFS-based
// reachability check the enforcer's generated stub functions call into.
type RoleGroup struct {
	name string
	g    graph.Graph[string, string]
}

// New creates an empty role group named name (the mapping's symbol, e.g.
// "g").
func New(name string) *RoleGroup {
	return &RoleGroup{
		name: name,
		g:    graph.New(graph.StringHash, graph.Directed()),
	}
}

// Name returns the mapping symbol this group was created for.
func (rg *RoleGroup) Name() string { return rg.name }

// AddRole ensures name exists as a vertex, even with no edges yet. It is
// idempotent: adding an already-present role is not an error.
func (rg *RoleGroup) AddRole(name string) error {
	err := rg.g.AddVertex(name)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	return nil
}

// HasRole reports whether name has been added to the graph, either
// directly via AddRole or as an endpoint of an inheritance edge.
func (rg *RoleGroup) HasRole(name string) bool {
	_, _, err := rg.g.VertexWithProperties(name)
	return err == nil
}

// AddInheritance records that child inherits from parent (child -> parent).
// Both endpoints are added as vertices first if they don't already exist.
// Adding a duplicate edge is not an error.
func (rg *RoleGroup) AddInheritance(child, parent string) error {
	if err := rg.AddRole(child); err != nil {
		return err
	}
	if err := rg.AddRole(parent); err != nil {
		return err
	}
	err := rg.g.AddEdge(child, parent)
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return err
	}
	return nil
}

// RemoveInheritance removes the child -> parent edge, if present. It is not
// an error to remove an edge (or involve vertices) that don't exist.
func (rg *RoleGroup) RemoveInheritance(child, parent string) error {
	err := rg.g.RemoveEdge(child, parent)
	if err != nil && !errors.Is(err, graph.ErrEdgeNotFound) && !errors.Is(err, graph.ErrVertexNotFound) {
		return err
	}
	return nil
}

// RemoveRole removes name and every inheritance edge touching it.
func (rg *RoleGroup) RemoveRole(name string) error {
	am, err := rg.g.AdjacencyMap()
	if err != nil {
		return err
	}

	for target := range am[name] {
		if err := rg.RemoveInheritance(name, target); err != nil {
			return err
		}
	}
	for src, targets := range am {
		if src == name {
			continue
		}
		if _, ok := targets[name]; ok {
			if err := rg.RemoveInheritance(src, name); err != nil {
				return err
			}
		}
	}

	err = rg.g.RemoveVertex(name)
	if err != nil && !errors.Is(err, graph.ErrVertexNotFound) {
		return err
	}
	return nil
}

// InheritsFrom reports whether child transitively inherits from parent by
// depth-first search over the inheritance graph. a == b always succeeds
// without consulting the graph at all, matching every role implicitly
// inheriting from itself.
func (rg *RoleGroup) InheritsFrom(child, parent string) (bool, error) {
	if child == parent {
		return true, nil
	}
	am, err := rg.g.AdjacencyMap()
	if err != nil {
		return false, err
	}

	visited := make(map[string]bool)
	var dfs func(node string) bool
	dfs = func(node string) bool {
		if node == parent {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		for next := range am[node] {
			if dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(child), nil
}
