package kvstorage

import (
	"encoding/binary"
	"net"
)

// radixNode is one level of the 32-bit binary trie. Each node branches on
// one address bit; a leaf (zero/one both nil) carries the stored element.
type radixNode struct {
	elt        *Element
	zero, one  *radixNode
}

// RadixCache indexes elements whose keys are IPv4 dotted-quad strings,
// keyed by their 32-bit big-endian address with a full /32 mask — there is
// no prefix matching, only exact-address lookup. Unlike HashCache, insert
// on a duplicate key is idempotent: the existing entry is left untouched
// and returned as-is.
//
// RadixCache is not safe for concurrent use on its own; see HashCache.
type RadixCache struct {
	root *radixNode
}

// NewRadixCache constructs an empty RadixCache.
func NewRadixCache() *RadixCache {
	return &RadixCache{root: &radixNode{}}
}

// radixKey validates key as an IPv4 dotted-quad and returns its 32-bit
// big-endian address. ok is false for anything else (IPv6, hostnames,
// malformed strings).
func radixKey(key string) (uint32, bool) {
	ip := net.ParseIP(key)
	if ip == nil {
		return 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}

func (c *RadixCache) walk(addr uint32, create bool) *radixNode {
	n := c.root
	for bit := 31; bit >= 0; bit-- {
		var next **radixNode
		if addr&(1<<uint(bit)) != 0 {
			next = &n.one
		} else {
			next = &n.zero
		}
		if *next == nil {
			if !create {
				return nil
			}
			*next = &radixNode{}
		}
		n = *next
	}
	return n
}

func (c *RadixCache) Insert(e *Element) (*Element, bool) {
	addr, ok := radixKey(e.Key)
	if !ok {
		return nil, false
	}
	n := c.walk(addr, true)
	if n.elt != nil {
		// Idempotent: existing entry wins on duplicate insert.
		return n.elt, true
	}
	n.elt = e
	return e, true
}

func (c *RadixCache) Replace(key string, e *Element) (*Element, bool) {
	addr, ok := radixKey(key)
	if !ok {
		return nil, false
	}
	n := c.walk(addr, false)
	if n == nil || n.elt == nil {
		return nil, false
	}
	prev := n.elt
	n.elt = e
	return prev, true
}

func (c *RadixCache) Lookup(key string) (*Element, bool) {
	addr, ok := radixKey(key)
	if !ok {
		return nil, false
	}
	n := c.walk(addr, false)
	if n == nil || n.elt == nil {
		return nil, false
	}
	return n.elt, true
}

func (c *RadixCache) Delete(key string) (*Element, bool) {
	addr, ok := radixKey(key)
	if !ok {
		return nil, false
	}
	n := c.walk(addr, false)
	if n == nil || n.elt == nil {
		return nil, false
	}
	e := n.elt
	n.elt = nil
	return e, true
}

func (c *RadixCache) Steal(key string) (*Element, bool) {
	return c.Delete(key)
}

func (c *RadixCache) Len() int {
	return countRadix(c.root)
}

func countRadix(n *radixNode) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.elt != nil {
		count++
	}
	return count + countRadix(n.zero) + countRadix(n.one)
}

func (c *RadixCache) Destroy() {
	c.root = nil
}
