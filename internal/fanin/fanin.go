// Package fanin provides the composite read aggregate used to fan out
// store reads and fan them back in as a single settlement.
//
// A Composite owns zero or more named children. Each child is an
// asynchronous operation issued at Add time. The composite settles
// exactly once, after every child has individually settled, regardless
// of per-child success or failure: failures are surfaced per child so
// the continuation can apply policy (a missing optional key and a
// transport failure need different handling) without re-issuing reads.
//
// The composite performs no retries. Retry and backoff, if any, belong
// to the store client.
package fanin

import (
	"context"
	"fmt"
	"sync"
)

// Op is one asynchronous child operation.
type Op func(ctx context.Context) ([]byte, error)

// Child is a settled or in-flight named sub-operation. Value must not
// be called before the composite's continuation has fired.
type Child struct {
	name  string
	value []byte
	err   error
}

// Name returns the name the child was registered under.
func (c *Child) Name() string { return c.name }

// Value returns the child's settled result.
func (c *Child) Value() ([]byte, error) { return c.value, c.err }

// Composite is a fan-in aggregate over named child operations.
//
// Usage discipline: all children are added before the composite is
// armed with OnSettle, so no settlement can be missed. Adding a child
// after arming is a programming error and panics.
type Composite struct {
	ctx context.Context

	mu       sync.Mutex
	children map[string]*Child
	armed    bool

	wg sync.WaitGroup
}

// New creates an empty composite. Children inherit ctx; cancelling it
// settles every child with the cancellation error.
func New(ctx context.Context) *Composite {
	return &Composite{
		ctx:      ctx,
		children: make(map[string]*Child),
	}
}

// Add registers a new child under name and issues op immediately.
// Returns false if name is already present (idempotent no-op; the
// existing child is left untouched).
func (f *Composite) Add(name string, op Op) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.armed {
		panic(fmt.Sprintf("fanin: Add(%q) after OnSettle", name))
	}
	if _, ok := f.children[name]; ok {
		return false
	}

	child := &Child{name: name}
	f.children[name] = child
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		child.value, child.err = op(f.ctx)
	}()
	return true
}

// OnSettle arms the composite with its single completion continuation.
// The continuation fires exactly once, after every child has settled.
// It runs on its own goroutine and must not call Add.
func (f *Composite) OnSettle(fn func()) {
	f.mu.Lock()
	if f.armed {
		f.mu.Unlock()
		panic("fanin: OnSettle called twice")
	}
	f.armed = true
	f.mu.Unlock()

	go func() {
		f.wg.Wait()
		fn()
	}()
}

// Child returns the named child, or false if it was never added.
// Intended for use from the continuation, which re-reads results by
// name rather than arrival order.
func (f *Composite) Child(name string) (*Child, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.children[name]
	return c, ok
}

// Len reports the number of registered children.
func (f *Composite) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.children)
}
