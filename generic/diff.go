/*
diff.go - Structural before/after differ for audit entries

PURPOSE:
  Produces a flat, path-addressable list of leaf changes between two
  JSON-like snapshots. Every audit entry that records a mutation carries
  this list so the history can be read without replaying snapshots.

ALGORITHM:
  Recursive walk, symmetric on both sides:
  - Primitives compare by value (NaN equals NaN).
  - Objects: union of keys, keys of "before" first in their order, then
    keys only present in "after". A key missing on one side is absent
    (JSON has no undefined, so absence is carried as a flag).
  - Arrays: a length change emits "<path>.length", then elements are
    compared index-wise. Composite elements are compared by canonical
    serialization and reported whole when unequal; they are never
    descended into, so reordered lists stay readable.

PATHS:
  "finder.lastName", "investigationSteps[2]", "receipts.length".
  A change of the root value itself has the empty path.

RESULT:
  nil when nothing changed, so callers can test len(diff) == 0 cheaply.

SEE ALSO:
  - audit.go: Stores the diff with each entry
  - lostitem/snapshot.go: Slim snapshots fed into Diff
*/
package generic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/gowebpki/jcs"
)

// Change is one leaf-level difference.
type Change struct {
	Path       string `json:"path"`
	From       any    `json:"from"`
	To         any    `json:"to"`
	FromAbsent bool   `json:"fromAbsent,omitempty"`
	ToAbsent   bool   `json:"toAbsent,omitempty"`
}

// =============================================================================
// ORDERED TREE - JSON objects that remember key order
// =============================================================================

// Object is a JSON object that keeps its keys in insertion order.
type Object struct {
	Keys   []string
	Values map[string]any
}

func NewObject() *Object {
	return &Object{Values: make(map[string]any)}
}

// Set assigns key, appending it to the key order when new.
func (o *Object) Set(key string, v any) {
	if _, exists := o.Values[key]; !exists {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = v
}

// Delete removes key and its position.
func (o *Object) Delete(key string) {
	if _, exists := o.Values[key]; !exists {
		return
	}
	delete(o.Values, key)
	for i, k := range o.Keys {
		if k == key {
			o.Keys = append(o.Keys[:i], o.Keys[i+1:]...)
			break
		}
	}
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.Values[key]
	return v, ok
}

// MarshalJSON writes the keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.Values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToTree converts v into the ordered tree used by Diff: *Object, []any,
// string, bool, nil, json.Number, or float64 for non-finite values.
// Structs go through their JSON encoding, so json tags and field order apply.
func ToTree(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *Object:
		return t, nil
	case bool, string, json.Number:
		return t, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return t, nil
		}
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := ToTree(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return DecodeTree(raw)
}

// DecodeTree parses raw JSON into an ordered tree.
func DecodeTree(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return decodeNode(dec)
}

func decodeNode(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			val, err := decodeNode(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeNode(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("snapshot: unexpected delimiter %q", delim)
}

// =============================================================================
// DIFF
// =============================================================================

// Diff returns every leaf change from before to after, or nil if equal.
func Diff(before, after any) ([]Change, error) {
	a, err := ToTree(before)
	if err != nil {
		return nil, err
	}
	b, err := ToTree(after)
	if err != nil {
		return nil, err
	}
	d := &differ{}
	d.walk("", a, b, false, false)
	if d.err != nil {
		return nil, d.err
	}
	if len(d.out) == 0 {
		return nil, nil
	}
	return d.out, nil
}

type differ struct {
	out []Change
	err error
}

func (d *differ) emit(path string, a, b any, aAbsent, bAbsent bool) {
	c := Change{Path: path, FromAbsent: aAbsent, ToAbsent: bAbsent}
	if !aAbsent {
		c.From = a
	}
	if !bAbsent {
		c.To = b
	}
	d.out = append(d.out, c)
}

func (d *differ) walk(path string, a, b any, aAbsent, bAbsent bool) {
	if !aAbsent && !bAbsent {
		ao, aIsObj := a.(*Object)
		bo, bIsObj := b.(*Object)
		if aIsObj && bIsObj {
			d.walkObject(path, ao, bo)
			return
		}
		aa, aIsArr := a.([]any)
		ba, bIsArr := b.([]any)
		if aIsArr && bIsArr {
			d.walkArray(path, aa, ba)
			return
		}
	}
	if !d.equal(a, b, aAbsent, bAbsent) {
		d.emit(path, a, b, aAbsent, bAbsent)
	}
}

func (d *differ) walkObject(path string, a, b *Object) {
	for _, k := range a.Keys {
		bv, inB := b.Values[k]
		d.walk(joinKey(path, k), a.Values[k], bv, false, !inB)
	}
	for _, k := range b.Keys {
		if _, inA := a.Values[k]; inA {
			continue
		}
		d.walk(joinKey(path, k), nil, b.Values[k], true, false)
	}
}

func (d *differ) walkArray(path string, a, b []any) {
	if len(a) != len(b) {
		d.out = append(d.out, Change{Path: joinKey(path, "length"), From: len(a), To: len(b)})
	}
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		var av, bv any
		aAbsent, bAbsent := i >= len(a), i >= len(b)
		if !aAbsent {
			av = a[i]
		}
		if !bAbsent {
			bv = b[i]
		}
		p := path + "[" + strconv.Itoa(i) + "]"
		if isComposite(av) || isComposite(bv) {
			if !d.equal(av, bv, aAbsent, bAbsent) {
				d.emit(p, av, bv, aAbsent, bAbsent)
			}
			continue
		}
		d.walk(p, av, bv, aAbsent, bAbsent)
	}
}

func (d *differ) equal(a, b any, aAbsent, bAbsent bool) bool {
	if aAbsent || bAbsent {
		return aAbsent == bAbsent
	}
	if isComposite(a) || isComposite(b) {
		ca, err := canonical(a)
		if err != nil {
			d.err = err
			return true
		}
		cb, err := canonical(b)
		if err != nil {
			d.err = err
			return true
		}
		return bytes.Equal(ca, cb)
	}
	return primitiveEqual(a, b)
}

func primitiveEqual(a, b any) bool {
	af, aIsFloat := a.(float64)
	bf, bIsFloat := b.(float64)
	if aIsFloat && bIsFloat {
		return af == bf || (math.IsNaN(af) && math.IsNaN(bf))
	}
	an, aIsNum := a.(json.Number)
	bn, bIsNum := b.(json.Number)
	if aIsNum && bIsNum {
		if an == bn {
			return true
		}
		x, errA := an.Float64()
		y, errB := bn.Float64()
		return errA == nil && errB == nil && x == y
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}

func isComposite(v any) bool {
	switch v.(type) {
	case *Object, []any:
		return true
	}
	return false
}

// canonical returns the RFC 8785 form of v.
func canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
