package buffer

import (
	"fmt"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// Pool is a fixed-size array of buffers plus a bitmap of "in use"
// flags, per spec.md §3. Pool is not safe for concurrent use without
// external synchronization (spec.md §5) — see pkg/metrics for a
// Prometheus view over a pool guarded by its owner's mutex.
type Pool struct {
	buffers []Buffer
	used    []bool
	size    uint64
}

// NewPool creates a pool of count buffers, each with the given initial
// capacity and the Double growth strategy.
func NewPool(count int, size uint64) (*Pool, error) {
	if count <= 0 {
		return nil, errkind.New(errkind.InvalidParam, fmt.Errorf("pool: count must be positive, got %d", count))
	}
	p := &Pool{
		buffers: make([]Buffer, count),
		used:    make([]bool, count),
		size:    size,
	}
	for i := range p.buffers {
		b, err := Create(size)
		if err != nil {
			return nil, err
		}
		p.buffers[i] = *b
	}
	return p, nil
}

// Count returns the number of slots in the pool.
func (p *Pool) Count() int { return len(p.buffers) }

// InUse returns the number of currently acquired buffers.
func (p *Pool) InUse() int {
	n := 0
	for _, u := range p.used {
		if u {
			n++
		}
	}
	return n
}

// Acquire scans the used-flag bitmap linearly for the first free index
// (O(pool size), per spec.md §4.C), marks it used, clears it, and
// returns its index and a pointer to the buffer.
func (p *Pool) Acquire() (int, *Buffer, error) {
	for i, used := range p.used {
		if !used {
			p.used[i] = true
			p.buffers[i].Clear()
			return i, &p.buffers[i], nil
		}
	}
	return -1, nil, errkind.New(errkind.Busy, fmt.Errorf("pool: no free buffers (capacity %d)", len(p.buffers)))
}

// At returns the buffer at index without acquiring it, for callers
// that already hold the index from a prior Acquire.
func (p *Pool) At(index int) (*Buffer, error) {
	if index < 0 || index >= len(p.buffers) {
		return nil, errkind.New(errkind.InvalidParam, fmt.Errorf("pool: index %d out of range", index))
	}
	return &p.buffers[index], nil
}

// Release clears the used flag for index. Releasing an already-free
// index is an error (spec.md §8's idempotent-close style invariant
// applied to pool slots).
func (p *Pool) Release(index int) error {
	if index < 0 || index >= len(p.used) {
		return errkind.New(errkind.InvalidParam, fmt.Errorf("pool: index %d out of range", index))
	}
	if !p.used[index] {
		return errkind.New(errkind.FileClosed, fmt.Errorf("pool: index %d already released", index))
	}
	p.used[index] = false
	return nil
}

// Resize grows or shrinks the pool's free set. Resizing below the
// current in-use count fails with Busy (spec.md §8 boundary
// behavior: "Pool resize below in-use count returns busy"), as does a
// shrink that would drop an in-use slot at index >= newCount.
func (p *Pool) Resize(newCount int) error {
	if newCount < p.InUse() {
		return errkind.New(errkind.Busy, fmt.Errorf("pool: cannot resize to %d slots with %d in use", newCount, p.InUse()))
	}
	switch {
	case newCount == len(p.buffers):
		return nil
	case newCount < len(p.buffers):
		for i := newCount; i < len(p.used); i++ {
			if p.used[i] {
				return errkind.New(errkind.Busy, fmt.Errorf("pool: cannot resize to %d slots, slot %d is in use", newCount, i))
			}
		}
		p.buffers = p.buffers[:newCount]
		p.used = p.used[:newCount]
		return nil
	default:
		for len(p.buffers) < newCount {
			b, err := Create(p.size)
			if err != nil {
				return err
			}
			p.buffers = append(p.buffers, *b)
			p.used = append(p.used, false)
		}
		return nil
	}
}

// Destroy releases every buffer owned by the pool.
func (p *Pool) Destroy() error {
	var firstErr error
	for i := range p.buffers {
		if err := p.buffers[i].Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.buffers = nil
	p.used = nil
	return firstErr
}
