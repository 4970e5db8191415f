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

package triplet

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/platform"
)

// DepInfoVarProvider resolves platform.Vars for triplets, batching the
// underlying file loads for a whole dependency graph behind a single
// fan-out call instead of resolving one triplet at a time. The name and
// two-call shape (load then get) mirror the scanner's batched engine
// lookups, generalized from HTTP calls to triplet-file reads.
type DepInfoVarProvider struct {
	searchDirs []string

	mu    sync.RWMutex
	cache map[pkgid.Triplet]platform.Vars
}

// NewDepInfoVarProvider builds a provider that resolves triplet names
// against the given search directories, in order, each holding
// "<triplet>.hcl" files.
func NewDepInfoVarProvider(searchDirs []string) *DepInfoVarProvider {
	return &DepInfoVarProvider{
		searchDirs: searchDirs,
		cache:      make(map[pkgid.Triplet]platform.Vars),
	}
}

// LoadDepInfoVars resolves and caches platform.Vars for every triplet in
// triplets concurrently, returning the first error encountered (if any)
// after all in-flight loads finish. Triplets already cached are skipped.
func (p *DepInfoVarProvider) LoadDepInfoVars(ctx context.Context, triplets []pkgid.Triplet) error {
	pending := p.uncached(triplets)
	if len(pending) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range pending {
		t := t
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			f, err := p.load(t)
			if err != nil {
				return err
			}
			p.mu.Lock()
			p.cache[t] = f.Vars
			p.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// GetDepInfoVars returns the previously-loaded platform.Vars for t. The
// second return value is false if LoadDepInfoVars was never called, or
// failed, for t.
func (p *DepInfoVarProvider) GetDepInfoVars(t pkgid.Triplet) (platform.Vars, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.cache[t]
	return v, ok
}

func (p *DepInfoVarProvider) uncached(triplets []pkgid.Triplet) []pkgid.Triplet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	seen := make(map[pkgid.Triplet]bool)
	var out []pkgid.Triplet
	for _, t := range triplets {
		if seen[t] {
			continue
		}
		seen[t] = true
		if _, ok := p.cache[t]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (p *DepInfoVarProvider) load(t pkgid.Triplet) (File, error) {
	for _, dir := range p.searchDirs {
		path := filepath.Join(dir, string(t)+".hcl")
		f, err := Load(path)
		if err == nil {
			return f, nil
		}
	}
	return File{}, fmt.Errorf("no triplet file found for %q in %v", t, p.searchDirs)
}
