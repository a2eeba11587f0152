package hotspot

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/zeebo/xxh3"
)

// keyFor canonicalizes an argument value into a stable map key. Scalar,
// naturally comparable values use their plain string form so small-
// cardinality dimensions (user IDs, status codes) stay human-readable in
// debugging; anything else is hashed with xxh3 so the LRU maps never carry
// unbounded or non-comparable key material (SPEC_FULL.md §1.2 domain
// stack, grounded on Resinat-Resin's internal/node/hash.go).
func keyFor(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", t)
	default:
		h := xxh3.HashString(fmt.Sprintf("%#v", t))
		return strconv.FormatUint(h, 16)
	}
}

// flatten expands a slice/array argument into its individual elements so
// each is checked independently, per SPEC_FULL.md §4.9; anything else
// (including nil, handled by the caller) is returned as a single element.
func flatten(v interface{}) []interface{} {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make([]interface{}, n)
		for i := 0; i < n; i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	default:
		return []interface{}{v}
	}
}
