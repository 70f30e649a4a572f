package room

import (
	"time"

	"github.com/palemoky/party-games/internal/docstore"
)

// ToDoc 把房间编码为存储文档
func (r *Room) ToDoc() docstore.Doc {
	state := docstore.Doc{}
	if r.GameState != nil {
		state = r.GameState.Clone()
	}
	votes := r.RematchVotes
	if votes == nil {
		votes = []string{}
	}
	return docstore.Doc{
		"code":         r.Code,
		"gameId":       r.GameID,
		"name":         r.Name,
		"hostUid":      r.HostUID,
		"hostName":     r.HostName,
		"passwordHash": r.PasswordHash,
		"private":      r.Private,
		"capacity":     r.Capacity,
		"players":      PlayersValue(r.Players),
		"status":       string(r.Status),
		"rematchVotes": votes,
		"createdAt":    r.CreatedAt.UnixMilli(),
		"gameState":    map[string]any{r.GameID: map[string]any(state)},
	}
}

// PlayersValue 玩家列表的文档表示
func PlayersValue(players []Player) []any {
	out := make([]any, len(players))
	for i, p := range players {
		out[i] = map[string]any{"uid": p.UID, "name": p.Name}
	}
	return out
}

// FromSnapshot 解析房间文档；类型错误返回 *apperrors.DecodeError
func FromSnapshot(snap *docstore.Snapshot) (*Room, error) {
	r := docstore.NewReader(snap.Data, "")
	room := &Room{
		Code:         r.String("code", snap.ID()),
		GameID:       r.String("gameId", ""),
		Name:         r.String("name", ""),
		HostUID:      r.String("hostUid", ""),
		HostName:     r.String("hostName", ""),
		PasswordHash: r.String("passwordHash", ""),
		Private:      r.Bool("private", false),
		Status:       Status(r.String("status", string(StatusWaiting))),
		RematchVotes: r.Strings("rematchVotes"),
		CreatedAt:    time.UnixMilli(r.Int64("createdAt", 0)),
	}
	room.Capacity = r.Int("capacity", Capacity(room.GameID))
	for _, p := range r.MapList("players") {
		room.Players = append(room.Players, Player{UID: p.String("uid", ""), Name: p.String("name", "")})
	}

	if room.GameID != "" {
		r.Map("gameState").Map(room.GameID)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	room.GameState = docstore.Doc{}
	if v, ok := snap.Data.Get(GameStatePath(room.GameID)); ok {
		if m, ok := v.(map[string]any); ok {
			room.GameState = docstore.Doc(m).Clone()
		}
	}
	return room, nil
}
