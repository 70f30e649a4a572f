//go:build !production

package room

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// SeatPlayers 开房并让玩家依次入座，第一个 uid 是房主，返回房间号
func SeatPlayers(t testing.TB, d *Directory, gameID string, uids ...string) string {
	t.Helper()
	require.NotEmpty(t, uids)
	ctx := context.Background()

	code, err := d.Host(ctx, HostRequest{GameID: gameID, HostUID: uids[0], HostName: uids[0]})
	require.NoError(t, err)
	for _, uid := range uids[1:] {
		_, err = d.Join(ctx, code, Player{UID: uid, Name: uid}, "")
		require.NoError(t, err)
	}
	return code
}

// StartWith 入座后由房主开局
func StartWith(t testing.TB, d *Directory, gameID string, uids ...string) string {
	t.Helper()
	code := SeatPlayers(t, d, gameID, uids...)
	require.NoError(t, d.Start(context.Background(), code, uids[0]))
	return code
}
