package docstore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// emptyMapMarker 保存没有子字段的 map，避免空 map 在存储中消失
const emptyMapMarker = "{}"

// flatten 把文档展开为 点分路径 -> JSON 叶子
func flatten(prefix string, v any, out map[string]string) error {
	if m, ok := asMap(v); ok {
		if len(m) == 0 {
			if prefix != "" {
				out[prefix] = emptyMapMarker
			}
			return nil
		}
		for k, child := range m {
			if k == "" || strings.Contains(k, ".") || strings.HasPrefix(k, "_") {
				return fmt.Errorf("%w: key %q under %q", ErrInvalidPath, k, prefix)
			}
			if err := flatten(joinPath(prefix, k), child, out); err != nil {
				return err
			}
		}
		return nil
	}
	if prefix == "" {
		return fmt.Errorf("%w: root must be a map", ErrInvalidPath)
	}
	data, err := json.Marshal(Normalize(v))
	if err != nil {
		return fmt.Errorf("docstore: encode %s: %w", prefix, err)
	}
	out[prefix] = string(data)
	return nil
}

// unflatten 把 点分路径 -> JSON 叶子 还原为文档
func unflatten(fields map[string]string) (Doc, error) {
	doc := Doc{}
	for path, raw := range fields {
		if strings.HasPrefix(path, "_") {
			continue
		}
		v, err := decodeLeaf(raw)
		if err != nil {
			return nil, fmt.Errorf("docstore: decode %s: %w", path, err)
		}
		parts := strings.Split(path, ".")
		cur := map[string]any(doc)
		for _, p := range parts[:len(parts)-1] {
			next, ok := asMap(cur[p])
			if !ok {
				next = map[string]any{}
				cur[p] = next
			}
			cur = next
		}
		last := parts[len(parts)-1]
		// 空 map 标记不能覆盖已经还原出的子字段
		if existing, ok := asMap(cur[last]); ok && len(existing) > 0 {
			continue
		}
		cur[last] = v
	}
	return doc, nil
}

// decodeLeaf 解析 JSON 叶子，整数保持 int64
func decodeLeaf(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return fromJSON(v), nil
}

func fromJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		return numberValue(t)
	case map[string]any:
		for k, child := range t {
			t[k] = fromJSON(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = fromJSON(child)
		}
		return t
	default:
		return t
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// ancestors 返回路径的所有真前缀，a.b.c -> [a, a.b]
func ancestors(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			out = append(out, path[:i])
		}
	}
	return out
}

// coveredFields 返回 fields 中等于 path 或位于 path 之下的字段
func coveredFields(fields map[string]string, path string) []string {
	var out []string
	prefix := path + "."
	for f := range fields {
		if f == path || strings.HasPrefix(f, prefix) {
			out = append(out, f)
		}
	}
	return out
}
