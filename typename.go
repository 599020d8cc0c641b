package eventlog

import "reflect"

// TypeName returns the bare struct name of v, dereferencing pointers. Used
// to key query handlers by their query type.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
