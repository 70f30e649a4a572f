package gamesync

import (
	"context"

	"github.com/palemoky/party-games/internal/game/room"
)

// View 推送给某位玩家的状态视图（已隐藏对其不可见的信息）
type View struct {
	Room  *room.Room
	State any
	Rev   int64
	Err   error
}

// Project 把会话流转换为视图流
func Project[S any](ctx context.Context, in <-chan Update[S], view func(r *room.Room, s S) any) <-chan View {
	out := make(chan View, 1)
	go func() {
		defer close(out)
		for u := range in {
			v := View{Room: u.Room, Rev: u.Rev, Err: u.Err}
			if u.Err == nil {
				v.State = view(u.Room, u.Session)
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
