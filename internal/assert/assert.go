// Package assert panics on programmer errors, it is never used to validate
// user input.
package assert

import "reflect"

// NotNil panics if value is nil, including typed nil pointers, maps, slices,
// funcs and interfaces wrapped in an interface value.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		if v.IsNil() {
			panic("expected value to be not nil")
		}
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

// NoError panics if err is not nil.
func NoError(err error) {
	if err != nil {
		panic("unexpected error: " + err.Error())
	}
}
