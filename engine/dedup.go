package engine

import (
	"context"
	"sync"

	"github.com/pithecene-io/macadam/types"
)

// claim tracks one in-flight upload for a content hash. done is closed
// exactly once, by Resolve or Fail, after which id/err are immutable.
type claim struct {
	owner types.LogicalKey
	done  chan struct{}
	id    string
	err   error
}

// Index deduplicates uploads by content hash within a single run. The
// first asset to claim a hash owns the backend call; later claimants
// wait on the claim and share its outcome.
type Index struct {
	mu     sync.Mutex
	claims map[types.ContentHash]*claim
}

func NewIndex() *Index {
	return &Index{claims: make(map[types.ContentHash]*claim)}
}

// Claim registers intent to upload the hash. It returns true when the
// caller is the owner and must settle the claim with Resolve or Fail.
func (x *Index) Claim(h types.ContentHash, key types.LogicalKey) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.claims[h]; ok {
		return false
	}
	x.claims[h] = &claim{owner: key, done: make(chan struct{})}
	return true
}

// Resolve settles the claim with the uploaded identifier.
func (x *Index) Resolve(h types.ContentHash, id string) {
	x.mu.Lock()
	c := x.claims[h]
	x.mu.Unlock()

	c.id = id
	close(c.done)
}

// Fail settles the claim with the owner's terminal error. Failure is
// sticky for the run: every waiter on this hash shares it.
func (x *Index) Fail(h types.ContentHash, err error) {
	x.mu.Lock()
	c := x.claims[h]
	x.mu.Unlock()

	c.err = err
	close(c.done)
}

// Wait blocks until the claim for the hash settles, returning the
// identifier and the owning key. Waiters hold no worker slot.
func (x *Index) Wait(ctx context.Context, h types.ContentHash) (string, types.LogicalKey, error) {
	x.mu.Lock()
	c := x.claims[h]
	x.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", c.owner, ctx.Err()
	case <-c.done:
		return c.id, c.owner, c.err
	}
}
