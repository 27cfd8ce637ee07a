// Package dag orders pipeline node instances by their link dependencies:
// an edge from an upstream instance to a downstream one means the
// downstream consumes the upstream's output.
package dag

import (
	"fmt"
	"sort"
	"sync"
)

type vertex struct {
	id         string
	deps       map[string]*vertex
	dependents map[string]*vertex
}

// Graph is a mutable dependency graph over node instance names.
type Graph struct {
	mutex    sync.RWMutex
	vertices map[string]*vertex
}

// New creates an initialized, empty Graph.
func New() *Graph {
	return &Graph{vertices: make(map[string]*vertex)}
}

// AddNode adds an instance to the graph. Adding an existing id is a no-op.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if _, ok := g.vertices[id]; ok {
		return
	}
	g.vertices[id] = &vertex{
		id:         id,
		deps:       make(map[string]*vertex),
		dependents: make(map[string]*vertex),
	}
}

// AddEdge records that toID consumes fromID's output. An error is returned
// if either instance is unknown or the edge is self-referential.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.vertices[fromID]
	if !ok {
		return fmt.Errorf("source instance not found: %s", fromID)
	}
	to, ok := g.vertices[toID]
	if !ok {
		return fmt.Errorf("destination instance not found: %s", toID)
	}

	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// Dependencies returns the ids the given instance consumes.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("instance not found: %s", id)
	}
	deps := make([]string, 0, len(v.deps))
	for depID := range v.deps {
		deps = append(deps, depID)
	}
	sort.Strings(deps)
	return deps, nil
}

// Dependents returns the ids that consume the given instance.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("instance not found: %s", id)
	}
	dependents := make([]string, 0, len(v.dependents))
	for depID := range v.dependents {
		dependents = append(dependents, depID)
	}
	sort.Strings(dependents)
	return dependents, nil
}

// DetectCycles returns a non-nil error when the graph contains a cycle,
// naming the first instance found inside one.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(v *vertex) error
	visit = func(v *vertex) error {
		if permanent[v.id] {
			return nil
		}
		if temporary[v.id] {
			return fmt.Errorf("cycle detected involving instance '%s'", v.id)
		}
		temporary[v.id] = true
		for _, dependent := range v.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, v.id)
		permanent[v.id] = true
		return nil
	}

	for _, v := range g.vertices {
		if !permanent[v.id] {
			if err := visit(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopoSort returns a deterministic execution order: upstream instances
// first, ties broken lexically. It fails when the graph has a cycle.
func (g *Graph) TopoSort() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	indegree := make(map[string]int, len(g.vertices))
	for id, v := range g.vertices {
		indegree[id] = len(v.deps)
	}

	var ready []string
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.vertices))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for depID := range g.vertices[id].dependents {
			indegree[depID]--
			if indegree[depID] == 0 {
				unlocked = append(unlocked, depID)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
		sort.Strings(ready)
	}
	return order, nil
}
