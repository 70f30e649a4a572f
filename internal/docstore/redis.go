package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/party-games/internal/logger"
)

const (
	// Redis key 前缀
	docKeyPrefix      = "doc:"
	collKeyPrefix     = "coll:"
	docChannelPrefix  = "docstore:doc:"
	collChannelPrefix = "docstore:coll:"

	// 版本号字段，不属于文档内容
	revField = "_rev"

	defaultMaxRetries = 10
	watchBuffer       = 16
)

// RedisStore 基于 Redis hash 的文档存储
type RedisStore struct {
	client     *redis.Client
	ttl        time.Duration
	maxRetries int
}

// Option RedisStore 配置项
type Option func(*RedisStore)

// WithTTL 每次写入后刷新文档过期时间，0 表示不过期
func WithTTL(ttl time.Duration) Option {
	return func(s *RedisStore) { s.ttl = ttl }
}

// WithMaxRetries 乐观事务的最大尝试次数
func WithMaxRetries(n int) Option {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewRedisStore 创建 Redis 文档存储
func NewRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	s := &RedisStore{client: client, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*RedisStore)(nil)

// Get 读取文档
func (s *RedisStore) Get(ctx context.Context, key string) (*Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, docKeyPrefix+key).Result()
	if err != nil {
		return nil, err
	}
	snap, err := snapshotFrom(key, fields)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, ErrNotFound
	}
	return snap, nil
}

// Create 创建文档，已存在时返回 ErrExists
func (s *RedisStore) Create(ctx context.Context, key string, doc Doc) error {
	flat := make(map[string]string)
	if err := flatten("", doc, flat); err != nil {
		return err
	}
	collection, id := SplitKey(key)
	rk := docKeyPrefix + key

	values := make(map[string]any, len(flat)+1)
	for f, v := range flat {
		values[f] = v
	}
	values[revField] = 1

	for range s.maxRetries {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, rk).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrExists
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, rk, values)
				if collection != "" {
					pipe.SAdd(ctx, collKeyPrefix+collection, id)
				}
				if s.ttl > 0 {
					pipe.Expire(ctx, rk, s.ttl)
				}
				return nil
			})
			return err
		}, rk)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}

		data, err := unflatten(flat)
		if err != nil {
			return err
		}
		s.publish(ctx, &Snapshot{Key: key, Rev: 1, Exists: true, Data: data})
		return nil
	}
	return ErrConflict
}

// Update 更新字段（内部以事务执行，保证路径覆盖语义正确）
func (s *RedisStore) Update(ctx context.Context, key string, updates Updates) error {
	return s.Transaction(ctx, key, func(snap *Snapshot) (Updates, error) {
		if !snap.Exists {
			return nil, ErrNotFound
		}
		return updates, nil
	})
}

// Transaction 乐观事务：WATCH 文档，读取、计算、MULTI/EXEC 写入；被并发写入打断时重试
func (s *RedisStore) Transaction(ctx context.Context, key string, fn TxFunc) error {
	rk := docKeyPrefix + key

	for range s.maxRetries {
		var committed *Snapshot
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			fields, err := tx.HGetAll(ctx, rk).Result()
			if err != nil {
				return err
			}
			snap, err := snapshotFrom(key, fields)
			if err != nil {
				return err
			}
			base := snap.Data.Clone()

			updates, err := fn(snap)
			if err != nil {
				return err
			}
			if len(updates) == 0 {
				return nil
			}
			if !snap.Exists {
				return ErrNotFound
			}

			p, err := planUpdates(fields, updates)
			if err != nil {
				return err
			}
			if err := applyLocal(base, updates); err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if len(p.del) > 0 {
					pipe.HDel(ctx, rk, p.del...)
				}
				if len(p.set) > 0 {
					pipe.HSet(ctx, rk, p.set)
				}
				for f, n := range p.incr {
					pipe.HIncrBy(ctx, rk, f, n)
				}
				pipe.HIncrBy(ctx, rk, revField, 1)
				if s.ttl > 0 {
					pipe.Expire(ctx, rk, s.ttl)
				}
				return nil
			})
			if err != nil {
				return err
			}
			committed = &Snapshot{Key: key, Rev: snap.Rev + 1, Exists: true, Data: base}
			return nil
		}, rk)

		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrAbort):
			return nil
		case err != nil:
			return err
		}
		if committed != nil {
			s.publish(ctx, committed)
		}
		return nil
	}
	return ErrConflict
}

// Delete 删除文档
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	collection, id := SplitKey(key)
	rk := docKeyPrefix + key

	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, rk)
		if collection != "" {
			pipe.SRem(ctx, collKeyPrefix+collection, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	s.publish(ctx, &Snapshot{Key: key, Exists: false})
	return nil
}

// List 列出集合内所有文档，顺带清理已过期的成员
func (s *RedisStore) List(ctx context.Context, collection string) ([]*Snapshot, error) {
	setKey := collKeyPrefix + collection
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, docKeyPrefix+Key(collection, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	var (
		out   []*Snapshot
		stale []any
	)
	for i, cmd := range cmds {
		snap, err := snapshotFrom(Key(collection, ids[i]), cmd.Val())
		if err != nil {
			logger.WithField("key", Key(collection, ids[i])).Warnf("⚠️ 跳过无法解析的文档: %v", err)
			continue
		}
		if !snap.Exists {
			stale = append(stale, ids[i])
			continue
		}
		out = append(out, snap)
	}
	if len(stale) > 0 {
		_ = s.client.SRem(ctx, setKey, stale...).Err()
	}
	return out, nil
}

// Watch 订阅单个文档。先推送当前快照，之后每次提交推送一次；文档被删除时推送 Exists=false 并关闭。
func (s *RedisStore) Watch(ctx context.Context, key string) (<-chan *Snapshot, error) {
	ps := s.client.Subscribe(ctx, docChannelPrefix+key)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", key, err)
	}

	current, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		current = &Snapshot{Key: key, Exists: false}
	} else if err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan *Snapshot, watchBuffer)
	go func() {
		defer close(out)
		defer func() { _ = ps.Close() }()

		send := func(snap *Snapshot) bool {
			select {
			case out <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(current) || !current.Exists {
			return
		}
		last := current.Rev
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				snap, err := decodeNotification([]byte(msg.Payload))
				if err != nil {
					logger.WithField("key", key).Warnf("⚠️ 丢弃无法解析的变更通知: %v", err)
					continue
				}
				if !snap.Exists {
					send(snap)
					return
				}
				if snap.Rev <= last {
					continue
				}
				last = snap.Rev
				if !send(snap) {
					return
				}
			}
		}
	}()
	return out, nil
}

// WatchCollection 订阅集合，推送发生变化的文档 key
func (s *RedisStore) WatchCollection(ctx context.Context, collection string) (<-chan string, error) {
	ps := s.client.Subscribe(ctx, collChannelPrefix+collection)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe collection %s: %w", collection, err)
	}

	out := make(chan string, watchBuffer)
	go func() {
		defer close(out)
		defer func() { _ = ps.Close() }()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// publish 提交后广播快照；写入已经成功，广播失败只记录日志
func (s *RedisStore) publish(ctx context.Context, snap *Snapshot) {
	ctx = context.WithoutCancel(ctx)
	payload, err := encodeNotification(snap)
	if err != nil {
		logger.WithField("key", snap.Key).Errorf("编码变更通知失败: %v", err)
		return
	}
	if err := s.client.Publish(ctx, docChannelPrefix+snap.Key, payload).Err(); err != nil {
		logger.WithField("key", snap.Key).Warnf("发布文档变更失败: %v", err)
	}
	if collection, _ := SplitKey(snap.Key); collection != "" {
		if err := s.client.Publish(ctx, collChannelPrefix+collection, snap.Key).Err(); err != nil {
			logger.WithField("key", snap.Key).Warnf("发布集合变更失败: %v", err)
		}
	}
}

// snapshotFrom 从 hash 字段构造快照
func snapshotFrom(key string, fields map[string]string) (*Snapshot, error) {
	if len(fields) == 0 {
		return &Snapshot{Key: key, Exists: false, Data: Doc{}}, nil
	}
	var rev int64
	if raw, ok := fields[revField]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("docstore: bad revision on %s: %w", key, err)
		}
		rev = parsed
	}
	data, err := unflatten(fields)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Key: key, Rev: rev, Exists: true, Data: data}, nil
}

// writePlan 一次事务对 hash 的具体操作
type writePlan struct {
	del  []string
	set  map[string]any
	incr map[string]int64
}

// planUpdates 把点分路径更新转换为 HDEL/HSET/HINCRBY
func planUpdates(fields map[string]string, updates Updates) (*writePlan, error) {
	working := make(map[string]string, len(fields))
	for f, v := range fields {
		if f != revField {
			working[f] = v
		}
	}
	p := &writePlan{set: map[string]any{}, incr: map[string]int64{}}
	dropped := map[string]bool{}

	drop := func(f string) {
		delete(working, f)
		delete(p.set, f)
		if !dropped[f] {
			dropped[f] = true
			p.del = append(p.del, f)
		}
	}

	for _, path := range sortedPaths(updates) {
		if _, err := splitPath(path); err != nil {
			return nil, err
		}
		switch v := updates[path].(type) {
		case deleteField:
			for _, f := range coveredFields(working, path) {
				drop(f)
			}
		case increment:
			for _, a := range ancestors(path) {
				if _, ok := working[a]; ok {
					drop(a)
				}
			}
			for _, f := range coveredFields(working, path) {
				if f != path {
					return nil, fmt.Errorf("%w: cannot increment map %q", ErrInvalidPath, path)
				}
			}
			if _, ok := p.set[path]; ok {
				return nil, fmt.Errorf("%w: %q both set and incremented", ErrInvalidPath, path)
			}
			p.incr[path] += v.n
		default:
			for _, f := range coveredFields(working, path) {
				drop(f)
			}
			for _, a := range ancestors(path) {
				if _, ok := working[a]; ok {
					drop(a)
				}
			}
			leaves := make(map[string]string)
			if err := flatten(path, v, leaves); err != nil {
				return nil, err
			}
			for f, raw := range leaves {
				working[f] = raw
				p.set[f] = raw
			}
		}
	}
	return p, nil
}
