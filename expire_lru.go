package kvstorage

import "time"

// expireNode is a non-intrusive doubly-linked list node wrapping an
// Element reference, so the eviction order can be maintained without
// embedding link pointers inside Element itself.
type expireNode struct {
	elt        *Element
	prev, next *expireNode
}

// LRUExpire maintains elements in insertion order: Insert appends to the
// tail, Step always inspects the head. There is no promote-on-lookup, so
// the order is strictly FIFO — the same approximation the original
// LRU queue made.
type LRUExpire struct {
	head, tail *expireNode
	size       int
}

// NewLRUExpire constructs an empty LRUExpire.
func NewLRUExpire() *LRUExpire {
	return &LRUExpire{}
}

func (l *LRUExpire) Insert(e *Element) {
	n := &expireNode{elt: e}
	e.node = n
	if l.tail == nil {
		l.head, l.tail = n, n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.size++
}

func (l *LRUExpire) Delete(e *Element) {
	n := e.node
	if n == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	e.node = nil
	l.size--
}

func (l *LRUExpire) Step(s *Storage, now time.Time, forced bool) bool {
	head := l.head
	if head == nil {
		return false
	}
	elt := head.elt
	if !forced && (elt.hasFlag(FlagPersistent) || elt.hasFlag(FlagDirty)) {
		// Abandon without releasing; caller's step counter bears the cost.
		return true
	}

	if elt.Expired(now) {
		s.disposeVictim(elt, true)
		for l.head != nil {
			cur := l.head.elt
			if cur.hasFlag(FlagPersistent) || cur.hasFlag(FlagDirty) {
				break
			}
			if !cur.Expired(now) {
				break
			}
			s.disposeVictim(cur, true)
		}
	} else {
		s.disposeVictim(elt, false)
	}
	return true
}

func (l *LRUExpire) Destroy() {
	l.head, l.tail = nil, nil
	l.size = 0
}
