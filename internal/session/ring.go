package session

// Ring is a fixed-capacity FIFO of question IDs with O(1) membership.
// Pushing onto a full ring evicts the oldest entry.
type Ring struct {
	buf   []string
	head  int // next write position
	size  int
	count map[string]int
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]string, capacity), count: make(map[string]int, capacity)}
}

// Push appends id, returning the evicted ID if the ring was full.
func (r *Ring) Push(id string) (evicted string, ok bool) {
	if r.size == len(r.buf) {
		evicted, ok = r.buf[r.head], true
		if r.count[evicted]--; r.count[evicted] == 0 {
			delete(r.count, evicted)
		}
	} else {
		r.size++
	}
	r.buf[r.head] = id
	r.head = (r.head + 1) % len(r.buf)
	r.count[id]++
	return evicted, ok
}

// Contains reports whether id is in the ring.
func (r *Ring) Contains(id string) bool {
	return r.count[id] > 0
}

func (r *Ring) Len() int { return r.size }

func (r *Ring) Cap() int { return len(r.buf) }

// Items returns the IDs oldest first.
func (r *Ring) Items() []string {
	out := make([]string, 0, r.size)
	start := (r.head - r.size + len(r.buf)) % len(r.buf)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
