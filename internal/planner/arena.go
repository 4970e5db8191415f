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

import "github.com/cppkit/portman/internal/pkgid"

// arena owns every Cluster created during one planning run, addressed by
// ClusterId so clusters can hold edges to each other (including to
// themselves on another triplet) without forming a reference cycle.
type arena struct {
	clusters []*Cluster
	index    map[pkgid.PackageSpec]ClusterId
}

func newArena() *arena {
	return &arena{index: make(map[pkgid.PackageSpec]ClusterId)}
}

// create allocates a new, empty Cluster for spec. spec must not already
// exist in the arena.
func (a *arena) create(spec pkgid.PackageSpec) *Cluster {
	id := ClusterId(len(a.clusters))
	c := &Cluster{ID: id, Spec: spec}
	a.clusters = append(a.clusters, c)
	a.index[spec] = id
	return c
}

// lookup returns the existing cluster for spec, if any.
func (a *arena) lookup(spec pkgid.PackageSpec) (*Cluster, bool) {
	id, ok := a.index[spec]
	if !ok {
		return nil, false
	}
	return a.clusters[id], true
}

// get returns the cluster addressed by id.
func (a *arena) get(id ClusterId) *Cluster {
	return a.clusters[id]
}

// all returns every cluster in first-seen (creation) order.
func (a *arena) all() []*Cluster {
	return a.clusters
}
