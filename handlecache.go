package columndb

import (
	"container/list"
	"fmt"
	"sync"
)

// handleCache is a bounded LRU of open RandomAccessFile readers for
// rotated-off blob files, keyed by log number. A single mutex guards the
// entry map and LRU order; files are opened outside it. Capacity-driven
// eviction skips pinned entries, so it never closes a handle a reader is
// mid-ReadAt on; an explicit evict closes the handle regardless of pins.
//
// Capacity is options.max_open_files; eviction is LRU among entries
// whose pin count is zero. A reader-open failure never leaves a partial
// entry in the cache.
type handleCache struct {
	env    Env
	prefix string
	cap    int

	mu      sync.Mutex
	entries map[uint32]*list.Element // log number -> list element
	order   *list.List               // front = most recently used
}

type cacheEntry struct {
	logNumber uint32
	handle    RandomAccessFile
	pinned    int
}

func newHandleCache(env Env, prefix string, capacity int) *handleCache {
	if capacity < 1 {
		capacity = 1
	}
	return &handleCache{
		env:     env,
		prefix:  prefix,
		cap:     capacity,
		entries: make(map[uint32]*list.Element),
		order:   list.New(),
	}
}

// get returns a pinned handle for logNumber, opening the blob file on
// miss. Callers must call release when done with the returned handle.
func (c *handleCache) get(logNumber uint32) (RandomAccessFile, error) {
	c.mu.Lock()
	if el, ok := c.entries[logNumber]; ok {
		c.order.MoveToFront(el)
		ent := el.Value.(*cacheEntry)
		ent.pinned++
		h := ent.handle
		c.mu.Unlock()
		return h, nil
	}
	c.mu.Unlock()

	// Open outside the lock: file-open is a blocking syscall and must
	// not stall lookups of other log numbers.
	path := blobPath(c.prefix, logNumber)
	h, err := c.env.NewRandomAccessFile(path)
	if err != nil {
		return nil, Class.Wrap(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[logNumber]; ok {
		// Lost the race with another opener; keep the winner's handle
		// and discard ours.
		_ = h.Close()
		c.order.MoveToFront(el)
		ent := el.Value.(*cacheEntry)
		ent.pinned++
		return ent.handle, nil
	}

	ent := &cacheEntry{logNumber: logNumber, handle: h, pinned: 1}
	el := c.order.PushFront(ent)
	c.entries[logNumber] = el
	c.evictLocked()
	return h, nil
}

// release decrements the pin count for logNumber, making it eligible
// for eviction once it reaches zero.
func (c *handleCache) release(logNumber uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[logNumber]
	if !ok {
		return
	}
	ent := el.Value.(*cacheEntry)
	if ent.pinned > 0 {
		ent.pinned--
	}
}

// evict removes logNumber from the cache unconditionally, closing its
// handle, even if it is pinned. Used by tests.
func (c *handleCache) evict(logNumber uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[logNumber]
	if !ok {
		return
	}
	c.removeLocked(el)
}

// evictLocked drops least-recently-used, unpinned entries until the
// cache is within capacity. Pinned entries are skipped and may cause
// the cache to temporarily exceed cap; they are retried for eviction on
// the next call once unpinned.
func (c *handleCache) evictLocked() {
	for c.order.Len() > c.cap {
		el := c.order.Back()
		evicted := false
		for el != nil {
			ent := el.Value.(*cacheEntry)
			if ent.pinned == 0 {
				c.removeLocked(el)
				evicted = true
				break
			}
			el = el.Prev()
		}
		if !evicted {
			return
		}
	}
}

func (c *handleCache) removeLocked(el *list.Element) {
	ent := el.Value.(*cacheEntry)
	delete(c.entries, ent.logNumber)
	c.order.Remove(el)
	_ = ent.handle.Close()
}

// len reports the current number of cached entries, used by tests to
// verify capacity is respected.
func (c *handleCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *handleCache) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, el := range c.entries {
		_ = el.Value.(*cacheEntry).handle.Close()
	}
	c.entries = make(map[uint32]*list.Element)
	c.order = list.New()
}

// blobPath returns the six-digit zero-padded blob file path for logNumber
// under prefix, e.g. "<prefix>/000042.dat".
func blobPath(prefix string, logNumber uint32) string {
	return fmt.Sprintf("%s/%06d.dat", prefix, logNumber)
}
