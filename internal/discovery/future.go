// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"

	"github.com/mdcatalog/mdcatalog/pkg/catalog"
)

// absent is the shared completed future of modules that have no result.
var absent = completed(nil, nil)

// Future is the eventual result of one module scan. Every caller asking for
// the same module receives the same Future.
type Future struct {
	done   chan struct{}
	result *catalog.Assembly
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func completed(result *catalog.Assembly, err error) *Future {
	f := newFuture()
	f.complete(result, err)
	return f
}

func (f *Future) complete(result *catalog.Assembly, err error) {
	f.result, f.err = result, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the result is available without blocking.
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the scan finishes or ctx is done. A nil result with a
// nil error means the module is absent: not a composition module,
// unresolvable or unreadable. A non-nil error is a fatal scan failure.
// Cancelling ctx abandons the wait only; the scan keeps running.
func (f *Future) Wait(ctx context.Context) (*catalog.Assembly, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
