// Package base holds the admission-pipeline primitives shared by every
// checker: resource identity, the per-goroutine Context/Entry pair, the
// slot chain and its three slot interfaces, and the TokenResult returned
// by a pass through the chain. See SPEC_FULL.md §2/§3/§4.3/§4.4.
package base

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// EntryType distinguishes inbound (server-side) from outbound (client-side)
// resource acquisitions, per SPEC_FULL.md §3.
type EntryType uint8

const (
	EntryTypeIn EntryType = iota
	EntryTypeOut
)

func (t EntryType) String() string {
	if t == EntryTypeOut {
		return "OUT"
	}
	return "IN"
}

// ResourceWrapper identifies a resource by (name, EntryType). Equality is
// by name+type; instances are interned so two calls naming the same
// resource observe the same pointer.
type ResourceWrapper struct {
	Name      string
	EntryType EntryType
}

func (r *ResourceWrapper) String() string {
	return r.Name + "#" + r.EntryType.String()
}

var resourceRegistry = xsync.NewMap[string, *ResourceWrapper]()

func resourceKey(name string, t EntryType) string {
	return name + "\x00" + t.String()
}

// GetResource interns and returns the ResourceWrapper for (name, t).
func GetResource(name string, t EntryType) *ResourceWrapper {
	key := resourceKey(name, t)
	if rw, ok := resourceRegistry.Load(key); ok {
		return rw
	}
	rw, _ := resourceRegistry.LoadOrStore(key, &ResourceWrapper{Name: name, EntryType: t})
	return rw
}
