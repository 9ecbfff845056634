package compile

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// CacheDirName is the on-disk cache directory under the project root.
const CacheDirName = ".wu-cache"

// ringSize bounds the in-memory cache level.
const ringSize = 256

// cacheEntry is one in-memory slot. mtime is the file's modification
// time in nanoseconds at the instant of insertion.
type cacheEntry struct {
	pathHash uint64
	mtime    int64
	body     []byte
}

// Cache is the two-level compile cache: a mutex-guarded in-memory ring
// in front of best-effort .dat files under .wu-cache/. Entries are keyed
// by (path, mtime); a body is only ever returned for the exact mtime it
// was stored under, so hash collisions cost a recompute, never a wrong
// result.
type Cache struct {
	mu      sync.Mutex
	ring    [ringSize]cacheEntry
	next    int
	diskDir string // empty disables the disk level
}

// NewCache opens a cache rooted at dir. The disk level lives in
// dir/.wu-cache; if the directory cannot be created the disk level is
// silently disabled and the cache runs memory-only.
func NewCache(dir string) *Cache {
	c := &Cache{}
	diskDir := filepath.Join(dir, CacheDirName)
	if err := os.MkdirAll(diskDir, 0o755); err == nil {
		c.diskDir = diskDir
	}
	return c
}

// DiskDir returns the disk-level directory, or "" when disabled.
func (c *Cache) DiskDir() string {
	return c.diskDir
}

// PathHash mixes a path into the cache's 64-bit key domain.
func PathHash(path string) uint64 {
	return xxhash.Sum64String(path)
}

// Get returns a copy of the cached body for (path, mtime), or nil. A
// stored entry whose mtime differs is stale: it is dropped and the
// caller recomputes.
func (c *Cache) Get(path string, mtime int64) []byte {
	hash := PathHash(path)

	c.mu.Lock()
	for i := range c.ring {
		e := &c.ring[i]
		if e.body == nil || e.pathHash != hash {
			continue
		}
		if e.mtime != mtime {
			e.body = nil
			break
		}
		body := append([]byte(nil), e.body...)
		c.mu.Unlock()
		return body
	}
	c.mu.Unlock()

	body := c.diskGet(hash, mtime)
	if body == nil {
		return nil
	}
	c.memPut(hash, mtime, body)
	return append([]byte(nil), body...)
}

// Put stores body for (path, mtime) in both levels. Disk errors are
// swallowed; an entry that cannot be persisted just recompiles after the
// next restart.
func (c *Cache) Put(path string, mtime int64, body []byte) {
	hash := PathHash(path)
	owned := append([]byte(nil), body...)
	c.memPut(hash, mtime, owned)
	c.diskPut(hash, mtime, owned)
}

// memPut replaces an existing slot for the hash, or overwrites the next
// round-robin slot.
func (c *Cache) memPut(hash uint64, mtime int64, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.ring {
		if c.ring[i].body != nil && c.ring[i].pathHash == hash {
			c.ring[i] = cacheEntry{pathHash: hash, mtime: mtime, body: body}
			return
		}
	}
	c.ring[c.next] = cacheEntry{pathHash: hash, mtime: mtime, body: body}
	c.next = (c.next + 1) % ringSize
}

// diskPath returns the .dat file for a hash.
func (c *Cache) diskPath(hash uint64) string {
	return filepath.Join(c.diskDir, hexHash(hash)+".dat")
}

func hexHash(hash uint64) string {
	const digits = "0123456789abcdef"
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = digits[hash&0xF]
		hash >>= 4
	}
	return string(buf[:])
}

// diskGet reads a .dat file: the first line is the stored mtime as a
// signed decimal, the remainder is the body.
func (c *Cache) diskGet(hash uint64, mtime int64) []byte {
	if c.diskDir == "" {
		return nil
	}
	data, err := os.ReadFile(c.diskPath(hash))
	if err != nil {
		return nil
	}
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return nil
	}
	stored, err := strconv.ParseInt(string(data[:nl]), 10, 64)
	if err != nil || stored != mtime {
		return nil
	}
	return data[nl+1:]
}

func (c *Cache) diskPut(hash uint64, mtime int64, body []byte) {
	if c.diskDir == "" {
		return
	}
	data := make([]byte, 0, len(body)+24)
	data = strconv.AppendInt(data, mtime, 10)
	data = append(data, '\n')
	data = append(data, body...)
	_ = os.WriteFile(c.diskPath(hash), data, 0o644)
}

// Close drops every in-memory body. Disk entries survive for the next
// run.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.ring {
		c.ring[i] = cacheEntry{}
	}
}
