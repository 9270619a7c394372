package store

// record is what every stored entity provides.
type record interface {
	Validate() error
}

// collection is one ordered in-memory table. All methods expect the
// Store mutex to be held.
type collection[T record] struct {
	table string
	id    func(T) string
	// unique, when set, is a secondary key; putting a record evicts other
	// records with the same unique key.
	unique func(T) string

	items []T
	// pending holds the undo of every unsettled mutation per id, oldest
	// first.
	pending map[string][]*undo[T]
	// tail is closed when the most recent mutation settles. Mutations of
	// one table reach the backend in call order.
	tail <-chan struct{}
}

func newCollection[T record](table string, id func(T) string) *collection[T] {
	return &collection[T]{
		table:   table,
		id:      id,
		pending: map[string][]*undo[T]{},
	}
}

func (c *collection[T]) index(id string) int {
	for i, it := range c.items {
		if c.id(it) == id {
			return i
		}
	}
	return -1
}

func (c *collection[T]) get(id string) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *collection[T]) findUnique(key string) (T, bool) {
	if c.unique != nil {
		for _, it := range c.items {
			if c.unique(it) == key {
				return it, true
			}
		}
	}
	var zero T
	return zero, false
}

// placed is a record and the position it held.
type placed[T any] struct {
	rec T
	pos int
}

// put replaces the record with the same id in place or appends it. It
// returns the records evicted through the unique key.
func (c *collection[T]) put(rec T) []placed[T] {
	id := c.id(rec)
	var evicted []placed[T]
	if c.unique != nil {
		key := c.unique(rec)
		kept := c.items[:0]
		for i, it := range c.items {
			if c.id(it) != id && c.unique(it) == key {
				evicted = append(evicted, placed[T]{rec: it, pos: i})
				continue
			}
			kept = append(kept, it)
		}
		c.items = kept
	}
	if i := c.index(id); i >= 0 {
		c.items[i] = rec
		return evicted
	}
	c.items = append(c.items, rec)
	return evicted
}

// remove deletes the record and returns its former position.
func (c *collection[T]) remove(id string) int {
	i := c.index(id)
	if i < 0 {
		return -1
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return i
}

// restore puts rec back at position pos (or in place if present).
func (c *collection[T]) restore(rec T, pos int) {
	if c.index(c.id(rec)) >= 0 || pos < 0 || pos > len(c.items) {
		c.put(rec)
		return
	}
	c.items = append(c.items, rec)
	copy(c.items[pos+1:], c.items[pos:])
	c.items[pos] = rec
}

func (c *collection[T]) list() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// undo is the state one mutation replaced.
type undo[T any] struct {
	prev    T
	existed bool
	// pos is the former position of a deleted record, -1 otherwise.
	pos     int
	evicted []placed[T]
}

// rollback puts back what the mutation of id replaced.
func (c *collection[T]) rollback(id string, u *undo[T]) {
	if u.existed {
		if u.pos >= 0 {
			c.remove(id)
		}
		c.restore(u.prev, u.pos)
	} else {
		c.remove(id)
	}
	for _, e := range u.evicted {
		c.restore(e.rec, e.pos)
	}
}

// inherit moves the undo of a rejected mutation onto the next pending
// mutation of the same id, which was applied on top of it.
func (u *undo[T]) inherit(from *undo[T]) {
	u.prev, u.existed = from.prev, from.existed
	if u.pos < 0 {
		u.pos = from.pos
	}
	u.evicted = append(from.evicted, u.evicted...)
}

func (c *collection[T]) isPending(id string) bool {
	return len(c.pending[id]) > 0
}

func (c *collection[T]) begin(id string, u *undo[T]) {
	c.pending[id] = append(c.pending[id], u)
}

// end unregisters u and returns the next pending mutation of id, if any.
func (c *collection[T]) end(id string, u *undo[T]) *undo[T] {
	list := c.pending[id]
	for i, p := range list {
		if p != u {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(c.pending, id)
			return nil
		}
		c.pending[id] = list
		if i < len(list) {
			return list[i]
		}
		return nil
	}
	return nil
}
