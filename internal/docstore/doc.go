// Package docstore 提供房间文档存储：嵌套文档、点分字段路径、原子自增、乐观事务和变更订阅。
package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath 字段路径非法（空段、包含保留前缀）
var ErrInvalidPath = errors.New("docstore: invalid field path")

// Doc 嵌套文档。叶子为 string/int64/float64/bool/nil/[]any，分支为 map[string]any。
type Doc map[string]any

// splitPath 拆分点分路径
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" || strings.HasPrefix(p, "_") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return parts, nil
}

// Get 读取路径上的值
func (d Doc) Get(path string) (any, bool) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	var cur any = map[string]any(d)
	for _, p := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set 写入路径上的值，缺失的中间节点会被创建，非 map 的中间节点会被覆盖
func (d Doc) Set(path string, v any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	cur := map[string]any(d)
	for _, p := range parts[:len(parts)-1] {
		next, ok := asMap(cur[p])
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = Normalize(v)
	return nil
}

// Delete 删除路径上的值
func (d Doc) Delete(path string) {
	parts, err := splitPath(path)
	if err != nil {
		return
	}
	cur := map[string]any(d)
	for _, p := range parts[:len(parts)-1] {
		next, ok := asMap(cur[p])
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// Clone 深拷贝
func (d Doc) Clone() Doc {
	if d == nil {
		return nil
	}
	return Doc(cloneValue(map[string]any(d)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = cloneValue(child)
		}
		return out
	case Doc:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return v
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Doc:
		return map[string]any(t), true
	}
	return nil, false
}

// Normalize 把 Go 值转换为文档的规范形式
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case int8:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case json.Number:
		return numberValue(t)
	case Doc:
		return Normalize(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = Normalize(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = Normalize(child)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = int64(n)
		}
		return out
	case []int64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	case map[string]int:
		out := make(map[string]any, len(t))
		for k, n := range t {
			out[k] = int64(n)
		}
		return out
	}

	// 其余类型（结构体、自定义切片）走一次 JSON
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	decoded, err := decodeLeaf(string(data))
	if err != nil {
		return nil
	}
	return decoded
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}
