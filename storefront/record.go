package storefront

import (
	"strconv"
	"strings"
)

// Record is an untyped JSON object read from a third-party payload.
// Every accessor has an explicit absent-case result: missing keys and
// values of the wrong type read as the zero value, never panic.
type Record map[string]any

// Text returns the string at key, or "".
func (r Record) Text(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool reports whether key holds the boolean true. Strings and numbers are
// not coerced.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Record returns the object at key, or nil.
func (r Record) Record(key string) Record {
	return asRecord(r[key])
}

// Records returns the objects in the array at key. Non-object elements are
// skipped.
func (r Record) Records(key string) []Record {
	arr, _ := r[key].([]any)
	out := make([]Record, 0, len(arr))
	for _, v := range arr {
		if rec := asRecord(v); rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

// Texts returns the scalar elements of the array at key as strings.
// Numbers are formatted without exponent; other elements are skipped.
func (r Record) Texts(key string) []string {
	arr, _ := r[key].([]any)
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		}
	}
	return out
}

// At walks a dotted path of object keys and returns the object found there,
// or nil if any segment is missing or not an object.
func (r Record) At(path string) Record {
	cur := r
	for _, seg := range strings.Split(path, ".") {
		if cur == nil {
			return nil
		}
		if seg == "" {
			continue
		}
		cur = cur.Record(seg)
	}
	return cur
}

// RecordsAt returns the object array found at a dotted path.
// A missing path reads as an empty list.
func (r Record) RecordsAt(path string) []Record {
	parent, key := "", path
	if i := strings.LastIndex(path, "."); i >= 0 {
		parent, key = path[:i], path[i+1:]
	}
	holder := r
	if parent != "" {
		holder = r.At(parent)
	}
	if holder == nil {
		return []Record{}
	}
	return holder.Records(key)
}

func asRecord(v any) Record {
	switch t := v.(type) {
	case map[string]any:
		return Record(t)
	case Record:
		return t
	}
	return nil
}
