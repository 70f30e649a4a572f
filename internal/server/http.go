package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/server/handler"
)

// HealthStatus /health 响应
type HealthStatus struct {
	Status      string `json:"status"`
	Online      int    `json:"online"`
	Maintenance bool   `json:"maintenance"`
}

// handleHealth 健康检查接口，Redis 不可用时返回 503
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "ok", Online: s.GetOnlineCount(), Maintenance: s.IsMaintenanceMode()}
	code := http.StatusOK
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			status.Status = "redis unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

// handleListRooms GET /api/rooms?game=<id>
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	if !room.IsMultiplayer(gameID) {
		writeError(w, http.StatusBadRequest, apperrors.ErrUnknownGame)
		return
	}
	list, err := s.rooms.ListPublic(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.RoomListPayload{Game: gameID, Rooms: handler.RoomInfos(list)})
}

// handleLeaderboard GET /api/leaderboard/{game}?limit=<n>
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "game")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if s.leaderboard == nil {
		writeError(w, http.StatusServiceUnavailable, apperrors.ErrDisconnected)
		return
	}
	entries, err := s.leaderboard.Top(r.Context(), gameID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.LeaderboardPayload{Game: gameID, Entries: entries})
}

// handleHistory GET /api/history/{game}?limit=<n>
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "game")
	if !room.IsMultiplayer(gameID) {
		writeError(w, http.StatusBadRequest, apperrors.ErrUnknownGame)
		return
	}
	if s.leaderboard == nil {
		writeError(w, http.StatusServiceUnavailable, apperrors.ErrDisconnected)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := s.leaderboard.History(r.Context(), gameID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debugf("写入响应失败: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	code := apperrors.Code(err)
	if code == protocol.ErrCodeUnknown {
		logger.Errorf("❌ HTTP 请求失败: %v", err)
	}
	writeJSON(w, status, protocol.ErrorPayload{Code: code, Message: protocol.ErrorMessages[code]})
}
