// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mdcatalog/mdcatalog/pkg/catalog"
)

// references lets one scan await the modules it references. While waiting
// the scan gives up its worker slot so that the referenced scans can run.
type references struct {
	d    *Discovery
	from *entry
}

// Await implements scanner.References.
func (r *references) Await(ctx context.Context, ids []string) ([]*catalog.Assembly, error) {
	targets := make([]*entry, len(ids))
	for i, id := range ids {
		targets[i] = r.d.entryForIdentity(id)
	}

	if err := r.block(targets); err != nil {
		return nil, err
	}
	defer r.unblock(targets)

	r.d.slots.Release(1)
	defer func() {
		// Scans hold exactly one slot outside of Await.
		_ = r.d.slots.Acquire(context.Background(), 1)
	}()

	out := make([]*catalog.Assembly, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		if target == nil {
			continue
		}
		g.Go(func() error {
			result, err := target.future.Wait(gctx)
			out[i] = result
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// block records that r.from waits for every pending target, failing with a
// *dag.CycleError when a wait would close a cycle. It also records the
// reference edges of the module graph.
func (r *references) block(targets []*entry) error {
	d := r.d
	d.mu.Lock()
	defer d.mu.Unlock()

	d.refs.AddNode(r.from.path)
	var added []string
	for _, target := range targets {
		if target == nil {
			continue
		}
		d.refs.AddEdge(target.path, r.from.path)
		if target.future.IsDone() {
			continue
		}
		if err := d.waits.AddEdgeAcyclic(r.from.path, target.path); err != nil {
			for _, to := range added {
				d.waits.RemoveEdge(r.from.path, to)
			}
			return err
		}
		added = append(added, target.path)
	}
	return nil
}

func (r *references) unblock(targets []*entry) {
	d := r.d
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, target := range targets {
		if target != nil {
			d.waits.RemoveEdge(r.from.path, target.path)
		}
	}
}
