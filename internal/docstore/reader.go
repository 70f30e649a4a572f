package docstore

import (
	"fmt"
	"math"
	"sort"

	"github.com/palemoky/party-games/internal/apperrors"
)

// Reader 带类型检查的字段读取器。缺失字段返回默认值，类型不符记录第一个错误。
type Reader struct {
	path string
	m    map[string]any
	err  *error
}

// NewReader 从文档的 path 处开始读取；path 为空表示根
func NewReader(doc Doc, path string) *Reader {
	var firstErr error
	r := &Reader{path: path, m: map[string]any{}, err: &firstErr}
	if path == "" {
		r.m = map[string]any(doc)
		return r
	}
	v, ok := doc.Get(path)
	if !ok || v == nil {
		return r
	}
	m, ok := asMap(v)
	if !ok {
		r.fail(path, "expected map, got %T", v)
		return r
	}
	r.m = m
	return r
}

func (r *Reader) fail(path, format string, args ...any) {
	if *r.err == nil {
		*r.err = &apperrors.DecodeError{Path: path, Reason: fmt.Sprintf(format, args...)}
	}
}

func (r *Reader) child(key string) string {
	return joinPath(r.path, key)
}

// Err 返回第一个解析错误
func (r *Reader) Err() error { return *r.err }

// Has 字段是否存在且非 nil
func (r *Reader) Has(key string) bool {
	v, ok := r.m[key]
	return ok && v != nil
}

// Keys 返回排序后的字段名
func (r *Reader) Keys() []string {
	keys := make([]string, 0, len(r.m))
	for k := range r.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String 读取字符串
func (r *Reader) String(key, def string) string {
	v, ok := r.m[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail(r.child(key), "expected string, got %T", v)
		return def
	}
	return s
}

// Int 读取整数
func (r *Reader) Int(key string, def int) int {
	v, ok := r.m[key]
	if !ok || v == nil {
		return def
	}
	n, ok := toInt(v)
	if !ok {
		r.fail(r.child(key), "expected integer, got %T", v)
		return def
	}
	return n
}

// Int64 读取 64 位整数
func (r *Reader) Int64(key string, def int64) int64 {
	v, ok := r.m[key]
	if !ok || v == nil {
		return def
	}
	n, ok := toInt(v)
	if !ok {
		r.fail(r.child(key), "expected integer, got %T", v)
		return def
	}
	return int64(n)
}

// Bool 读取布尔值
func (r *Reader) Bool(key string, def bool) bool {
	v, ok := r.m[key]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(r.child(key), "expected bool, got %T", v)
		return def
	}
	return b
}

// List 读取列表
func (r *Reader) List(key string) []any {
	v, ok := r.m[key]
	if !ok || v == nil {
		return nil
	}
	l, ok := v.([]any)
	if !ok {
		r.fail(r.child(key), "expected list, got %T", v)
		return nil
	}
	return l
}

// Strings 读取字符串列表
func (r *Reader) Strings(key string) []string {
	l := r.List(key)
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l))
	for i, v := range l {
		s, ok := v.(string)
		if !ok {
			r.fail(fmt.Sprintf("%s[%d]", r.child(key), i), "expected string, got %T", v)
			return nil
		}
		out = append(out, s)
	}
	return out
}

// Ints 读取整数列表
func (r *Reader) Ints(key string) []int {
	l := r.List(key)
	if l == nil {
		return nil
	}
	out := make([]int, 0, len(l))
	for i, v := range l {
		n, ok := toInt(v)
		if !ok {
			r.fail(fmt.Sprintf("%s[%d]", r.child(key), i), "expected integer, got %T", v)
			return nil
		}
		out = append(out, n)
	}
	return out
}

// IntLists 读取整数列表的列表
func (r *Reader) IntLists(key string) [][]int {
	l := r.List(key)
	if l == nil {
		return nil
	}
	out := make([][]int, 0, len(l))
	for i, v := range l {
		inner, ok := v.([]any)
		if !ok {
			r.fail(fmt.Sprintf("%s[%d]", r.child(key), i), "expected list, got %T", v)
			return nil
		}
		row := make([]int, 0, len(inner))
		for j, x := range inner {
			n, ok := toInt(x)
			if !ok {
				r.fail(fmt.Sprintf("%s[%d][%d]", r.child(key), i, j), "expected integer, got %T", x)
				return nil
			}
			row = append(row, n)
		}
		out = append(out, row)
	}
	return out
}

// Map 读取子 map，缺失时返回空读取器
func (r *Reader) Map(key string) *Reader {
	c := &Reader{path: r.child(key), m: map[string]any{}, err: r.err}
	v, ok := r.m[key]
	if !ok || v == nil {
		return c
	}
	m, ok := asMap(v)
	if !ok {
		r.fail(c.path, "expected map, got %T", v)
		return c
	}
	c.m = m
	return c
}

// MapList 读取元素为 map 的列表
func (r *Reader) MapList(key string) []*Reader {
	l := r.List(key)
	if l == nil {
		return nil
	}
	out := make([]*Reader, 0, len(l))
	for i, v := range l {
		path := fmt.Sprintf("%s[%d]", r.child(key), i)
		m, ok := asMap(v)
		if !ok {
			r.fail(path, "expected map, got %T", v)
			return nil
		}
		out = append(out, &Reader{path: path, m: m, err: r.err})
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}
