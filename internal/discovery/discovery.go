// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/mdcatalog/mdcatalog/internal/dag"
	"github.com/mdcatalog/mdcatalog/internal/scanner"
	"github.com/mdcatalog/mdcatalog/pkg/catalog"
	"github.com/mdcatalog/mdcatalog/pkg/identity"
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

// DefaultFramework is the simple name of the composition framework module.
// Modules that do not reference it are never classified.
const DefaultFramework = "System.ComponentModel.Composition"

type (
	// Resolver maps a module identity to a file path.
	Resolver interface {
		Resolve(identity string) (string, bool)
	}

	// Config configures a Discovery.
	Config struct {
		// Opener opens module files. Required.
		Opener metadata.Opener
		// Resolver resolves referenced identities. When nil, only modules
		// requested by path are scanned.
		Resolver Resolver
		// Denylist defaults to DefaultDenylist().
		Denylist *Denylist
		// Framework defaults to DefaultFramework.
		Framework string
		// MaxParallel bounds concurrently running scans; defaults to
		// GOMAXPROCS.
		MaxParallel int
	}

	// Discovery schedules module scans and caches their results for the
	// lifetime of the process. Each distinct path is scanned at most once;
	// failed and absent results are cached and never retried. It is safe
	// for concurrent use.
	Discovery struct {
		opener    metadata.Opener
		resolver  Resolver
		denylist  *Denylist
		framework string
		slots     *semaphore.Weighted

		mu      sync.Mutex
		entries map[string]*entry
		// waits holds an edge A -> B while the scan of A awaits B.
		waits *dag.Graph
		// refs holds an edge B -> A when A references B.
		refs *dag.Graph
	}

	entry struct {
		path   string
		future *Future
		// cause records why a module is absent; written before the future
		// completes.
		cause error
	}
)

// New creates a Discovery.
func New(cfg Config) *Discovery {
	if cfg.Denylist == nil {
		cfg.Denylist = DefaultDenylist()
	}
	if cfg.Framework == "" {
		cfg.Framework = DefaultFramework
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = runtime.GOMAXPROCS(0)
	}
	return &Discovery{
		opener:    cfg.Opener,
		resolver:  cfg.Resolver,
		denylist:  cfg.Denylist,
		framework: cfg.Framework,
		slots:     semaphore.NewWeighted(int64(cfg.MaxParallel)),
		entries:   make(map[string]*entry),
		waits:     dag.New(),
		refs:      dag.New(),
	}
}

// ScanPath returns the scan of the module at path, starting it on first
// request. Paths compare case-insensitively.
func (d *Discovery) ScanPath(path string) *Future {
	return d.entryFor(path).future
}

// ScanIdentity returns the scan of the module with the given identity.
// Denylisted and unresolvable identities yield a completed absent future
// without touching the file system.
func (d *Discovery) ScanIdentity(id string) *Future {
	e := d.entryForIdentity(id)
	if e == nil {
		return absent
	}
	return e.future
}

// Graph returns a snapshot of the observed reference graph. An edge B -> A
// means A references B, so TopologicalSort yields dependencies first.
func (d *Discovery) Graph() *dag.Graph {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := dag.New()
	for _, node := range d.refs.Nodes() {
		g.AddNode(node)
		for _, next := range d.refs.Successors(node) {
			g.AddEdge(node, next)
		}
	}
	return g
}

func (d *Discovery) entryForIdentity(id string) *entry {
	name := identity.SimpleName(id)
	if d.denylist.Contains(name) {
		return nil
	}
	if d.resolver == nil {
		return nil
	}
	path, ok := d.resolver.Resolve(id)
	if !ok {
		slog.Debug("module not resolved", "identity", id)
		return nil
	}
	return d.entryFor(path)
}

// entryFor returns the cache entry for path, registering it and starting
// its scan when absent.
func (d *Discovery) entryFor(path string) *entry {
	key := pathKey(path)

	d.mu.Lock()
	if e, ok := d.entries[key]; ok {
		d.mu.Unlock()
		return e
	}
	e := &entry{path: displayPath(path), future: newFuture()}
	d.entries[key] = e
	d.mu.Unlock()

	go d.run(e)
	return e
}

// Cause returns why the completed scan of path found no module: the open or
// metadata error of an unreadable file. It returns nil for modules that are
// present, pending, unknown or not composition modules.
func (d *Discovery) Cause(path string) error {
	d.mu.Lock()
	e, ok := d.entries[pathKey(path)]
	d.mu.Unlock()
	if !ok || !e.future.IsDone() {
		return nil
	}
	return e.cause
}

func (d *Discovery) run(e *entry) {
	ctx := context.Background()
	if err := d.slots.Acquire(ctx, 1); err != nil {
		e.future.complete(nil, err)
		return
	}
	result, err := d.scan(ctx, e)
	d.slots.Release(1)
	e.future.complete(result, err)
}

// scan opens the module, checks that it references the composition
// framework and classifies it. Read failures make the module absent; only
// contract and cycle errors are returned.
func (d *Discovery) scan(ctx context.Context, e *entry) (*catalog.Assembly, error) {
	a := catalog.NewAssembly(e.path)

	r, err := d.opener.Open(e.path)
	if err != nil {
		return d.unreadable(e, a, err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			slog.Debug("close module", "path", e.path, "error", cerr)
		}
	}()

	uses, err := metadata.ReferencesAssembly(r, d.framework)
	if err != nil {
		return d.unreadable(e, a, err)
	}
	if !uses {
		_ = a.Transition(catalog.StateNotComposition)
		return nil, nil
	}

	result, err := scanner.New(r, a, &references{d: d, from: e}).Scan(ctx)
	if err == nil {
		return result, nil
	}
	if scanner.IsFatal(err) || errors.Is(err, dag.ErrCycle) {
		return nil, fmt.Errorf("scan %s: %w", e.path, err)
	}
	return d.unreadable(e, a, err)
}

func (d *Discovery) unreadable(e *entry, a *catalog.Assembly, err error) (*catalog.Assembly, error) {
	slog.Debug("module unreadable", "path", e.path, "error", err)
	if a.State() == catalog.StateUnscanned {
		_ = a.Transition(catalog.StateFailed)
	}
	e.cause = err
	return nil, nil
}

func pathKey(path string) string {
	return strings.ToLower(displayPath(path))
}

func displayPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
