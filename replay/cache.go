package replay

// Cache bounds the number of open SessionQuery mmaps kept around between
// queries, evicting the least recently used session once the bound is
// exceeded. Grounded on the original's Long2ObjectCache(cacheNumSets,
// cacheSetSize, SessionQuery::close) used by ReplayQuery to avoid mapping
// every session's index file on every single query.
type Cache struct {
	capacity int
	order    []int64
	entries  map[int64]*SessionQuery
	openFn   func(sessionID int64) (*SessionQuery, error)
}

// NewCache constructs a cache that opens missing entries with openFn and
// evicts (closing) the least recently used entry once more than capacity
// sessions are resident.
func NewCache(capacity int, openFn func(sessionID int64) (*SessionQuery, error)) *Cache {
	return &Cache{
		capacity: capacity,
		entries:  make(map[int64]*SessionQuery, capacity),
		openFn:   openFn,
	}
}

// Get returns the SessionQuery for sessionID, opening and caching it if
// absent, and evicting the least recently used entry if the cache is full.
func (c *Cache) Get(sessionID int64) (*SessionQuery, error) {
	if q, ok := c.entries[sessionID]; ok {
		c.touch(sessionID)
		return q, nil
	}

	if len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	q, err := c.openFn(sessionID)
	if err != nil {
		return nil, err
	}
	c.entries[sessionID] = q
	c.order = append(c.order, sessionID)
	return q, nil
}

// Close evicts and closes every cached session query.
func (c *Cache) Close() error {
	var firstErr error
	for _, q := range c.entries {
		if err := q.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.entries = make(map[int64]*SessionQuery, c.capacity)
	c.order = nil
	return firstErr
}

func (c *Cache) touch(sessionID int64) {
	for i, id := range c.order {
		if id == sessionID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, sessionID)
}

func (c *Cache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	if q, ok := c.entries[oldest]; ok {
		_ = q.Close()
		delete(c.entries, oldest)
	}
}
