// Copyright (c) 2024 santosr2
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package planner

import (
	"fmt"
	"sort"
)

// CycleError is returned by topoSort when the successor relation is not a
// DAG; it carries every cluster still unresolved when the queue drained.
type CycleError struct {
	Remaining []ClusterId
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected among %d clusters", len(e.Remaining))
}

// topoSort orders nodes so that every edge a -> b in successors (meaning
// "a must precede b") is satisfied. Ties among simultaneously-ready nodes
// are broken by ascending ClusterId (stable first-seen order) unless
// permuter reorders a ready batch, letting tests prove the algorithm's
// correctness does not depend on a particular tie-break.
func topoSort(nodes []ClusterId, successors map[ClusterId][]ClusterId, permuter Permuter) ([]ClusterId, error) {
	indegree := make(map[ClusterId]int, len(nodes))
	for _, n := range nodes {
		indegree[n] = 0
	}
	for _, n := range nodes {
		for _, succ := range successors[n] {
			if _, ok := indegree[succ]; ok {
				indegree[succ]++
			}
		}
	}

	var ready []ClusterId
	for _, n := range nodes {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]ClusterId, 0, len(nodes))
	for len(ready) > 0 {
		batch := permuter.Permute(append([]ClusterId(nil), ready...))
		var next []ClusterId
		for _, n := range batch {
			order = append(order, n)
			for _, succ := range successors[n] {
				if _, ok := indegree[succ]; !ok {
					continue
				}
				indegree[succ]--
				if indegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		ready = next
	}

	if len(order) != len(nodes) {
		seen := make(map[ClusterId]bool, len(order))
		for _, n := range order {
			seen[n] = true
		}
		var remaining []ClusterId
		for _, n := range nodes {
			if !seen[n] {
				remaining = append(remaining, n)
			}
		}
		return nil, &CycleError{Remaining: remaining}
	}
	return order, nil
}
