// Package scheduler 周期任务与延迟任务，统一支持取消
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/palemoky/party-games/internal/logger"
)

// Task 已调度的任务
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newTask(ctx context.Context) (*Task, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Task{cancel: cancel, done: make(chan struct{})}, ctx
}

// Stop 停止任务并等待正在执行的回调返回，可重复调用
func (t *Task) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}

// Done 任务结束时关闭
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Every 每隔 interval 调用一次 fn，直到 ctx 取消、Stop 被调用或 fn 返回 false
func Every(ctx context.Context, interval time.Duration, fn func(ctx context.Context) bool) *Task {
	task, ctx := newTask(ctx)
	go func() {
		defer close(task.done)
		defer recoverTask("every")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !fn(ctx) {
					return
				}
			}
		}
	}()
	return task
}

// After 在 delay 之后调用一次 fn，期间取消则不再调用
func After(ctx context.Context, delay time.Duration, fn func(ctx context.Context)) *Task {
	task, ctx := newTask(ctx)
	go func() {
		defer close(task.done)
		defer recoverTask("after")

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			fn(ctx)
		}
	}()
	return task
}

func recoverTask(kind string) {
	if r := recover(); r != nil {
		logger.WithField("task", kind).Errorf("💥 定时任务 panic: %v", r)
	}
}
