//go:build !production

package testutil

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"github.com/palemoky/party-games/internal/docstore"
	"github.com/palemoky/party-games/internal/game"
)

// NewRedis 启动 miniredis 并返回客户端
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// NewStore 基于 miniredis 的文档存储
func NewStore(t *testing.T) *docstore.RedisStore {
	t.Helper()
	client, _ := NewRedis(t)
	return docstore.NewRedisStore(client, docstore.WithMaxRetries(100))
}

// MockRecorder 对局结果记录 mock
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordResult(ctx context.Context, res game.Result) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}
