package datatable

import (
	"reflect"
	"strconv"
	"strings"
)

// Lookup resolves a dot path ("college.name", "tags.0") against v. Maps
// are indexed by key, structs by json tag and then by field name, slices
// by position. The second result is false when any step is missing or
// lands on a nil pointer.
func Lookup(v any, path string) (any, bool) {
	cur := reflect.ValueOf(v)
	for _, part := range strings.Split(path, ".") {
		cur = indirect(cur)
		if !cur.IsValid() {
			return nil, false
		}
		switch cur.Kind() {
		case reflect.Map:
			if cur.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			next := cur.MapIndex(reflect.ValueOf(part).Convert(cur.Type().Key()))
			if !next.IsValid() {
				return nil, false
			}
			cur = next
		case reflect.Struct:
			next, ok := structField(cur, part)
			if !ok {
				return nil, false
			}
			cur = next
		case reflect.Slice, reflect.Array:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= cur.Len() {
				return nil, false
			}
			cur = cur.Index(i)
		default:
			return nil, false
		}
	}
	cur = indirect(cur)
	if !cur.IsValid() {
		return nil, false
	}
	return cur.Interface(), true
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func structField(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == name {
			return v.Field(i), true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && strings.EqualFold(f.Name, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
