package service

import (
	"fmt"
	"reflect"
	"strings"
)

// QueryParam is one name=value pair of a query string.
type QueryParam struct {
	Name  string
	Value any
}

func Param(name string, value any) QueryParam {
	return QueryParam{Name: name, Value: value}
}

// String renders name=value; a nil value renders as an empty string.
func (p QueryParam) String() string {
	if isNil(p.Value) {
		return p.Name + "="
	}
	return p.Name + "=" + fmt.Sprint(p.Value)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// QueryString joins params as name=value pairs with "&" in the order given.
// Names and values are written as-is; callers escape their own values.
func QueryString(params []QueryParam) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, "&")
}

// HeaderSet maps header names to values. Lookups ignore case.
type HeaderSet map[string]string

// Get returns the value for name, matched case-insensitively.
func (h HeaderSet) Get(name string) (string, bool) {
	if v, ok := h[name]; ok {
		return v, true
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func (h HeaderSet) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}
