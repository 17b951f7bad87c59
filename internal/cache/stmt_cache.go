// Package cache keeps prepared read statements for reuse across queries.
//
// Only reads are cached. UPSERT and INSERT statements change text with every
// batch shape, so preparing them would fill the cache with one-shot entries.
package cache

import (
	"container/list"
	"context"
	"database/sql"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultStmtCacheCapacity is the number of statements kept when no capacity
// is configured.
const DefaultStmtCacheCapacity = 1000

// Preparer is satisfied by *sql.DB and *sql.Conn.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Cacheable reports whether query is a read worth keeping prepared.
func Cacheable(query string) bool {
	head := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(head, "SELECT") || strings.HasPrefix(head, "WITH")
}

// StmtCache is an LRU of prepared statements keyed by SQL text. Evicted and
// replaced statements are closed.
type StmtCache struct {
	capacity int

	mu      sync.Mutex
	byQuery map[string]*list.Element
	order   *list.List // front is most recently used

	hits, misses, evictions atomic.Uint64
}

type entry struct {
	query string
	stmt  *sql.Stmt
}

// NewStmtCache returns a cache of DefaultStmtCacheCapacity statements.
func NewStmtCache() *StmtCache {
	return NewStmtCacheWithCapacity(DefaultStmtCacheCapacity)
}

// NewStmtCacheWithCapacity returns a cache of at most capacity statements.
// Non-positive values fall back to DefaultStmtCacheCapacity.
func NewStmtCacheWithCapacity(capacity int) *StmtCache {
	if capacity <= 0 {
		capacity = DefaultStmtCacheCapacity
	}
	return &StmtCache{
		capacity: capacity,
		byQuery:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Prepare returns a prepared statement for query. Reads come from the cache
// or are prepared on p and stored. Other statements are prepared but not
// stored; cached is false and the caller must close them.
func (c *StmtCache) Prepare(ctx context.Context, p Preparer, query string) (stmt *sql.Stmt, cached bool, err error) {
	if !Cacheable(query) {
		stmt, err = p.PrepareContext(ctx, query)
		return stmt, false, err
	}
	if stmt, ok := c.Get(query); ok {
		return stmt, true, nil
	}

	stmt, err = p.PrepareContext(ctx, query)
	if err != nil {
		return nil, false, err
	}
	return c.add(query, stmt), true, nil
}

// add stores stmt unless another goroutine cached query first, in which case
// stmt is closed and the stored statement returned.
func (c *StmtCache) add(query string, stmt *sql.Stmt) *sql.Stmt {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byQuery[query]; ok {
		c.order.MoveToFront(el)
		_ = stmt.Close()
		return el.Value.(*entry).stmt
	}
	c.insert(query, stmt)
	return stmt
}

// Get returns the statement cached for query and marks it recently used.
func (c *StmtCache) Get(query string) (*sql.Stmt, bool) {
	c.mu.Lock()
	el, ok := c.byQuery[query]
	if ok {
		c.order.MoveToFront(el)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return el.Value.(*entry).stmt, true
}

// insert requires c.mu.
func (c *StmtCache) insert(query string, stmt *sql.Stmt) {
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		c.drop(oldest)
		c.evictions.Add(1)
	}
	c.byQuery[query] = c.order.PushFront(&entry{query: query, stmt: stmt})
}

// drop requires c.mu.
func (c *StmtCache) drop(el *list.Element) {
	e := c.order.Remove(el).(*entry)
	delete(c.byQuery, e.query)
	_ = e.stmt.Close()
}

// Invalidate closes and forgets the statement for query, for example after
// CockroachDB rejected it because the schema changed underneath. It reports
// whether query was cached.
func (c *StmtCache) Invalidate(query string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byQuery[query]
	if ok {
		c.drop(el)
	}
	return ok
}

// Clear closes every cached statement.
func (c *StmtCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Front(); el != nil; el = el.Next() {
		_ = el.Value.(*entry).stmt.Close()
	}
	clear(c.byQuery)
	c.order.Init()
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// Stats returns current counters.
func (c *StmtCache) Stats() Stats {
	c.mu.Lock()
	size := c.order.Len()
	c.mu.Unlock()

	s := Stats{
		Size:      size,
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
