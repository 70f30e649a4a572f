package docstore

import (
	"context"
	"errors"
	"slices"
	"strings"
)

var (
	ErrNotFound = errors.New("docstore: document not found")
	ErrExists   = errors.New("docstore: document already exists")
	ErrConflict = errors.New("docstore: transaction conflict, retries exhausted")
	// ErrAbort 事务回调返回它表示放弃写入但不算失败
	ErrAbort = errors.New("docstore: transaction aborted")
)

// Snapshot 文档在某个版本的快照
type Snapshot struct {
	Key    string
	Rev    int64
	Exists bool
	Data   Doc
}

// ID 返回文档 id（key 中 collection/ 之后的部分）
func (s *Snapshot) ID() string {
	_, id := SplitKey(s.Key)
	return id
}

// Updates 点分路径 -> 新值；值可以是 Increment 或 DeleteField 哨兵
type Updates map[string]any

type increment struct{ n int64 }

type deleteField struct{}

// Increment 原子自增
func Increment(n int64) any { return increment{n: n} }

// DeleteField 删除字段
func DeleteField() any { return deleteField{} }

// TxFunc 事务回调，根据当前快照计算要写入的字段
type TxFunc func(snap *Snapshot) (Updates, error)

// Store 文档存储
type Store interface {
	Get(ctx context.Context, key string) (*Snapshot, error)
	Create(ctx context.Context, key string, doc Doc) error
	Update(ctx context.Context, key string, updates Updates) error
	Transaction(ctx context.Context, key string, fn TxFunc) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, collection string) ([]*Snapshot, error)
	Watch(ctx context.Context, key string) (<-chan *Snapshot, error)
	WatchCollection(ctx context.Context, collection string) (<-chan string, error)
}

// Key 拼接文档 key
func Key(collection, id string) string {
	return collection + "/" + id
}

// SplitKey 拆分文档 key
func SplitKey(key string) (collection, id string) {
	collection, id, found := strings.Cut(key, "/")
	if !found {
		return "", key
	}
	return collection, id
}

// applyLocal 在内存中应用更新，用于计算写入后的快照
func applyLocal(doc Doc, updates Updates) error {
	for _, path := range sortedPaths(updates) {
		v := updates[path]
		switch u := v.(type) {
		case deleteField:
			doc.Delete(path)
		case increment:
			cur, _ := doc.Get(path)
			n, _ := cur.(int64)
			if err := doc.Set(path, n+u.n); err != nil {
				return err
			}
		default:
			if err := doc.Set(path, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// sortedPaths 按路径长度排序，父路径先于子路径处理
func sortedPaths(updates Updates) []string {
	paths := make([]string, 0, len(updates))
	for p := range updates {
		paths = append(paths, p)
	}
	slices.SortFunc(paths, func(a, b string) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		return strings.Compare(a, b)
	})
	return paths
}
