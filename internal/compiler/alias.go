package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/subcalc/internal/diagnostic"
	"github.com/roach88/subcalc/internal/term"
)

// aliasGraph maps an Other item to the item it points at. Every node has at
// most one successor.
type aliasGraph map[term.ID]term.ID

// AnalyzeAliases finds cycles of Other indirections (a: "b", b: "a") and
// marks the indirection that closes each cycle as recursive, so that
// dereferencing stops there instead of looping.
//
// The algorithm:
//  1. Build the graph of unmarked Other edges
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Mark and report each SCC with size > 1 or a self-loop
//
// Cycles already marked are not reported again. Each cycle yields one W101
// warning.
func AnalyzeAliases(s *term.Store) []diagnostic.Diagnostic {
	graph, nodes := buildAliasGraph(s)
	if len(graph) == 0 {
		return nil
	}

	var diags []diagnostic.Diagnostic
	for _, scc := range tarjanSCC(graph, nodes) {
		if len(scc) == 1 && graph[scc[0]] != scc[0] {
			continue
		}
		path := reconstructCyclePath(scc, graph)
		closing := path[len(path)-2]
		if err := s.MarkRecursive(closing); err != nil {
			// Only Other nodes are in the graph.
			panic(err)
		}

		labels := make([]string, len(path))
		for i, id := range path {
			labels[i] = s.Label(id)
		}
		diags = append(diags, diagnostic.New(
			diagnostic.LevelWarning,
			diagnostic.CodeRecursiveAlias,
			fmt.Sprintf("alias cycle %s; %s is treated as recursive", strings.Join(labels, " -> "), s.Label(closing)),
			path[:len(path)-1]...,
		).WithPos(s.Pos(closing)))
	}
	return diags
}

func buildAliasGraph(s *term.Store) (aliasGraph, []term.ID) {
	graph := make(aliasGraph)
	var nodes []term.ID
	for i := range s.Len() {
		id := term.ID(i)
		if other, ok := s.Definition(id).(term.Other); ok && !other.Recursive {
			graph[id] = other.Target
			nodes = append(nodes, id)
		}
	}
	return graph, nodes
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order and components are returned sorted
// by their smallest member, so the result is deterministic.
func tarjanSCC(graph aliasGraph, nodes []term.ID) [][]term.ID {
	var (
		index   = 0
		stack   []term.ID
		indices = make(map[term.ID]int)
		lowlink = make(map[term.ID]int)
		onStack = make(map[term.ID]bool)
		sccs    [][]term.ID
	)

	var strongConnect func(term.ID)
	strongConnect = func(v term.ID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		if w, ok := graph[v]; ok {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []term.ID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	slices.SortFunc(sccs, func(a, b []term.ID) int { return int(a[0]) - int(b[0]) })
	return sccs
}

// reconstructCyclePath walks the cycle from its smallest member back to
// itself. For a self-loop the path is [id, id].
func reconstructCyclePath(scc []term.ID, graph aliasGraph) []term.ID {
	start := scc[0]
	path := []term.ID{start}
	for cur := graph[start]; ; cur = graph[cur] {
		path = append(path, cur)
		if cur == start || len(path) > len(scc) {
			return path
		}
	}
}
